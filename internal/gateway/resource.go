package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/model"
)

// Resource is the gateway side of one entity store.
type Resource[T any] struct {
	c  *Client
	ep Endpoint
}

var _ entity.Gateway[model.Coupon] = (*Resource[model.Coupon])(nil)

func NewResource[T any](c *Client, ep Endpoint) *Resource[T] {
	return &Resource[T]{c: c, ep: ep}
}

func (r *Resource[T]) Endpoint() Endpoint { return r.ep }

// List fetches one page. Unpaginated resources ignore page and limit and
// always report a single page.
func (r *Resource[T]) List(ctx context.Context, page, limit int, filters entity.FilterSet) (entity.Page[T], error) {
	q := url.Values{}
	if r.ep.Paginated {
		q = filters.Values()
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := r.c.do(ctx, call{
		entity: r.ep.Entity,
		op:     "list",
		method: http.MethodGet,
		path:   r.ep.ListPath(),
		query:  q,
	})
	if err != nil {
		return entity.Page[T]{}, err
	}
	return decodePage[T](body, r.ep.ListKey)
}

func decodePage[T any](body []byte, listKey string) (entity.Page[T], error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return entity.Page[T]{}, decodeError("response has no data")
	}

	list, total := data, 1
	if !data.IsArray() {
		list = data.Get(listKey)
		if listKey == "" || !list.IsArray() {
			return entity.Page[T]{}, decodeError("data.%s is not a list", listKey)
		}
		if tp := data.Get("totalPages"); tp.Exists() {
			total = int(tp.Int())
		}
	}

	var items []T
	if err := json.Unmarshal([]byte(list.Raw), &items); err != nil {
		return entity.Page[T]{}, decodeError("%v", err)
	}
	if items == nil {
		items = []T{}
	}
	return entity.Page[T]{Items: items, TotalPages: total}, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	body, err := r.c.do(ctx, call{
		entity: r.ep.Entity,
		op:     "get",
		method: http.MethodGet,
		path:   r.ep.GetPath(id),
	})
	if err != nil {
		return out, err
	}
	if err := decodeData(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, payload model.Payload) error {
	return r.send(ctx, "create", http.MethodPost, r.ep.AddPath(), payload)
}

func (r *Resource[T]) Update(ctx context.Context, id string, payload model.Payload) error {
	return r.send(ctx, "update", http.MethodPut, r.ep.UpdatePath(id), payload)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.send(ctx, "delete", http.MethodDelete, r.ep.DeletePath(id), nil)
}

// Remove is a PUT without a body; the backend flips the record's status.
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	return r.send(ctx, "remove", http.MethodPut, r.ep.RemovePath(id), nil)
}

func (r *Resource[T]) send(ctx context.Context, op, method, path string, payload model.Payload) error {
	cl := call{entity: r.ep.Entity, op: op, method: method, path: path}
	if payload != nil {
		var err error
		cl.body, cl.contentType, err = encodePayload(payload)
		if err != nil {
			return err
		}
	}
	_, err := r.c.do(ctx, cl)
	return err
}

func encodePayload(payload model.Payload) (io.Reader, string, error) {
	if m, ok := payload.(model.Multipart); ok {
		return multipartBody(m)
	}
	return jsonBody(payload)
}

func decodeData(body []byte, out any) error {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return decodeError("response has no data")
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return decodeError("%v", err)
	}
	return nil
}
