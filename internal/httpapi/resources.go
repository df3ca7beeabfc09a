package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

const (
	defaultLimit  = 20
	maxLimit      = 100
	statusActive  = "active"
	statusRemoved = "removed"
)

// requestError is a handler failure with a status for the client.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// resource serves the six routes of one gateway endpoint over a collection.
type resource[T any, In model.Payload] struct {
	api    *API
	ep     gateway.Endpoint
	module permission.Module
	data   *collection[T]
	// decode reads the request body; JSON when nil.
	decode func(*http.Request) (In, error)
	// build returns the record to store for a create (prev == nil) or an
	// update. It runs under the API write lock, so it may read any collection.
	build func(id string, in In, prev *T) (T, error)
	// status points at the record's status field. Records without one are
	// deleted by remove.
	status func(*T) *string
	// beforeDelete may veto a delete or remove.
	beforeDelete func(id string) error
}

func (res *resource[T, In]) routes(r *mux.Router) {
	ep := res.ep
	a := res.api
	r.HandleFunc("/"+ep.ListPath(), a.guard(res.module, permission.Read, res.list)).Methods(http.MethodGet)
	r.HandleFunc("/"+ep.Entity+"/"+ep.ReadVerb()+"/{id}", a.guard(res.module, permission.Read, res.get)).Methods(http.MethodGet)
	r.HandleFunc("/"+ep.AddPath(), a.guard(res.module, permission.Create, res.add)).Methods(http.MethodPost)
	r.HandleFunc("/"+ep.Entity+"/update"+ep.Singular+"/{id}", a.guard(res.module, permission.Update, res.update)).Methods(http.MethodPut)
	r.HandleFunc("/"+ep.Entity+"/delete"+ep.Singular+"/{id}", a.guard(res.module, permission.Delete, res.delete)).Methods(http.MethodDelete)
	r.HandleFunc("/"+ep.Entity+"/remove"+ep.Singular+"/{id}", a.guard(res.module, permission.Delete, res.remove)).Methods(http.MethodPut)
}

func (res *resource[T, In]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := make(map[string]string, len(q))
	for key := range q {
		if key == "page" || key == "limit" {
			continue
		}
		filters[key] = q.Get(key)
	}
	items := res.data.list(func(v T) bool {
		return !res.removed(&v) && matches(v, filters)
	})

	switch {
	case res.ep.Paginated:
		pageNo, err := parsePositiveInt(q.Get("page"), 1, 0)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid page")
			return
		}
		limit, err := parsePositiveInt(q.Get("limit"), defaultLimit, maxLimit)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		chunk, total := page(items, pageNo, limit)
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{res.ep.ListKey: chunk, "totalPages": total},
		})
	case res.ep.ListKey == "":
		writeJSON(w, http.StatusOK, map[string]any{"data": items})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{res.ep.ListKey: items},
		})
	}
}

func (res *resource[T, In]) get(w http.ResponseWriter, r *http.Request) {
	v, ok := res.data.get(mux.Vars(r)["id"])
	if !ok {
		res.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

func (res *resource[T, In]) add(w http.ResponseWriter, r *http.Request) {
	in, ok := res.read(w, r)
	if !ok {
		return
	}
	a := res.api
	a.mu.Lock()
	id := uuid.NewString()
	v, err := res.build(id, in, nil)
	if err == nil {
		res.data.put(id, v)
	}
	a.mu.Unlock()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.activity.add(fmt.Sprintf("%s %s added", res.ep.Singular, id))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": res.ep.Singular + " added successfully",
		"data":    v,
	})
}

func (res *resource[T, In]) update(w http.ResponseWriter, r *http.Request) {
	in, ok := res.read(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	a := res.api
	a.mu.Lock()
	var (
		v   T
		err error
	)
	cur, found := res.data.get(id)
	if found {
		v, err = res.build(id, in, &cur)
		if err == nil {
			res.data.put(id, v)
		}
	}
	a.mu.Unlock()
	switch {
	case !found:
		res.notFound(w, r)
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}
	a.activity.add(fmt.Sprintf("%s %s updated", res.ep.Singular, id))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": res.ep.Singular + " updated successfully",
		"data":    v,
	})
}

func (res *resource[T, In]) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a := res.api
	a.mu.Lock()
	err := res.vetoDelete(id)
	found := false
	if err == nil {
		found = res.data.delete(id)
	}
	a.mu.Unlock()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		res.notFound(w, r)
		return
	}
	a.activity.add(fmt.Sprintf("%s %s deleted", res.ep.Singular, id))
	writeJSON(w, http.StatusOK, map[string]any{"message": res.ep.Singular + " deleted successfully"})
}

func (res *resource[T, In]) remove(w http.ResponseWriter, r *http.Request) {
	if res.status == nil {
		res.delete(w, r)
		return
	}
	id := mux.Vars(r)["id"]
	a := res.api
	a.mu.Lock()
	err := res.vetoDelete(id)
	found := false
	if err == nil {
		var cur T
		if cur, found = res.data.get(id); found {
			*res.status(&cur) = statusRemoved
			res.data.put(id, cur)
		}
	}
	a.mu.Unlock()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !found {
		res.notFound(w, r)
		return
	}
	a.activity.add(fmt.Sprintf("%s %s removed", res.ep.Singular, id))
	writeJSON(w, http.StatusOK, map[string]any{"message": res.ep.Singular + " removed successfully"})
}

func (res *resource[T, In]) read(w http.ResponseWriter, r *http.Request) (In, bool) {
	var (
		in  In
		err error
	)
	if res.decode != nil {
		in, err = res.decode(r)
	} else {
		err = decodeJSON(r, &in)
	}
	if err != nil {
		res.api.fail(w, r, err)
		return in, false
	}
	if err := in.Validate(); err != nil {
		res.api.fail(w, r, err)
		return in, false
	}
	return in, true
}

func (res *resource[T, In]) removed(v *T) bool {
	return res.status != nil && *res.status(v) == statusRemoved
}

func (res *resource[T, In]) vetoDelete(id string) error {
	if res.beforeDelete == nil {
		return nil
	}
	return res.beforeDelete(id)
}

func (res *resource[T, In]) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, res.ep.Singular+" not found")
}

// fail writes err with the status it carries. Payload validation failures
// are 400s; anything else is a 500.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	var re *requestError
	switch {
	case errors.As(err, &re):
		writeError(w, r, re.status, re.msg)
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": "))
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
