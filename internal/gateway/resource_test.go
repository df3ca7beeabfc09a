package gateway

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/model"
)

type seen struct {
	mu       sync.Mutex
	method   string
	path     string
	rawQuery string
	ctype    string
	body     []byte
}

func (s *seen) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = r.Method
	s.path = r.URL.EscapedPath()
	s.rawQuery = r.URL.RawQuery
	s.ctype = r.Header.Get("Content-Type")
	s.body = body
}

func recorder(s *seen, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}
}

func TestListPaginated(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"data":{"products":[{"_id":"p1","model":"X"},{"_id":"p2"}],"totalPages":4}}`))
	res := NewResource[model.Product](c, Products)

	page, err := res.List(context.Background(), 2, 20, entity.Filters("categoryName", "Phones", "model", ""))
	require.NoError(t, err)

	assert.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p1", page.Items[0].ID)
	assert.Equal(t, "X", page.Items[0].Model)

	assert.Equal(t, http.MethodGet, s.method)
	assert.Equal(t, "/api/product/getAllProducts", s.path)
	assert.Equal(t, "categoryName=Phones&limit=20&model=&page=2", s.rawQuery)
}

func TestListWithoutTotalIsOnePage(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"data":{"users":[]}}`))
	page, err := NewResource[model.User](c, Users).List(context.Background(), 1, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestListBareArray(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"data":[{"_id":"r1","roleName":"admin","permission":"[{\"module\":\"Users\",\"permissionsList\":{\"read\":true}}]"}]}`))
	page, err := NewResource[model.Role](c, Roles).List(context.Background(), 3, 20, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "admin", page.Items[0].RoleName)
	assert.Contains(t, string(page.Items[0].Permission), `"module":"Users"`)
	assert.Equal(t, "/api/role/getAllRoles", s.path)
	assert.Empty(t, s.rawQuery, "unpaginated lists send no paging params")
}

func TestListCategoriesEitherShape(t *testing.T) {
	for _, reply := range []string{
		`{"data":[{"_id":"c1","name":"Phones"}]}`,
		`{"data":{"categories":[{"_id":"c1","name":"Phones"}]}}`,
	} {
		var s seen
		c := newTestClient(t, recorder(&s, reply))
		page, err := NewResource[model.Category](c, Categories).List(context.Background(), 1, 20, nil)
		require.NoError(t, err, reply)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Phones", page.Items[0].Name)
	}
}

func TestListMalformed(t *testing.T) {
	for _, reply := range []string{`{}`, `{"data":{"products":{}}}`, `{"data":{"products":[1,2]}}`} {
		var s seen
		c := newTestClient(t, recorder(&s, reply))
		_, err := NewResource[model.Product](c, Products).List(context.Background(), 1, 20, nil)
		require.ErrorIs(t, err, ErrDecode, reply)
	}
}

func TestGetUsesEndpointVerb(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"data":{"_id":"a b","model":"Pixel"}}`))

	p, err := NewResource[model.Product](c, Products).Get(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "Pixel", p.Model)
	assert.Equal(t, "/api/product/getProductById/a%20b", s.path)

	_, err = NewResource[model.Coupon](c, Coupons).Get(context.Background(), "c9")
	require.NoError(t, err)
	assert.Equal(t, "/api/coupon/getCoupon/c9", s.path)
}

func TestGetWithoutData(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"data":null}`))
	_, err := NewResource[model.User](c, Users).Get(context.Background(), "u1")
	require.ErrorIs(t, err, ErrDecode)
}

func TestMutationsRequestShape(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"message":"ok"}`))
	coupons := NewResource[model.Coupon](c, Coupons)
	ctx := context.Background()
	in := model.CouponInput{Code: "SAVE10", DiscountType: model.DiscountFlat, DiscountValue: 10}

	require.NoError(t, coupons.Create(ctx, in))
	assert.Equal(t, http.MethodPost, s.method)
	assert.Equal(t, "/api/coupon/addCoupon", s.path)
	assert.Equal(t, "application/json", s.ctype)
	assert.Contains(t, string(s.body), `"code":"SAVE10"`)

	require.NoError(t, coupons.Update(ctx, "c1", in))
	assert.Equal(t, http.MethodPut, s.method)
	assert.Equal(t, "/api/coupon/updateCoupon/c1", s.path)

	require.NoError(t, coupons.Delete(ctx, "c1"))
	assert.Equal(t, http.MethodDelete, s.method)
	assert.Equal(t, "/api/coupon/deleteCoupon/c1", s.path)
	assert.Empty(t, s.body)

	require.NoError(t, coupons.Remove(ctx, "c1"))
	assert.Equal(t, http.MethodPut, s.method)
	assert.Equal(t, "/api/coupon/removeCoupon/c1", s.path)
	assert.Empty(t, s.body)
}

func TestCreateProductIsMultipart(t *testing.T) {
	var s seen
	c := newTestClient(t, recorder(&s, `{"message":"created"}`))
	in := model.ProductInput{
		Model:        "Pixel 8",
		CategoryName: "Phones",
		Price:        499,
		Color:        []string{"black", "white"},
		Media:        []model.File{{Name: "front.jpg", Data: []byte("jpeg-bytes")}},
	}
	require.NoError(t, NewResource[model.Product](c, Products).Create(context.Background(), in))

	mediaType, params, err := mime.ParseMediaType(s.ctype)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(strings.NewReader(string(s.body)), params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pixel 8"}, form.Value["model"])
	assert.Equal(t, []string{"black", "white"}, form.Value["color"])
	require.Len(t, form.File["media"], 1)
	assert.Equal(t, "front.jpg", form.File["media"][0].Filename)
}

func TestLookup(t *testing.T) {
	ep, ok := Lookup("products")
	require.True(t, ok)
	assert.Equal(t, "product", ep.Entity)
	assert.Equal(t, "model", ep.SearchParam())

	ep, ok = Lookup("Address")
	require.True(t, ok)
	assert.Equal(t, "address/getAllAddresses", ep.ListPath())
	assert.Equal(t, "search", ep.SearchParam())

	_, ok = Lookup("ledger")
	assert.False(t, ok)
	assert.Len(t, Endpoints(), 8)
}
