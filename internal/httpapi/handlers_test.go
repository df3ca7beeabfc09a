package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return env
}

func TestHealthzIsPublic(t *testing.T) {
	_, srv := newTestServer(t)
	resp, body := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"mockgateway"`) {
		t.Fatalf("unexpected healthz %d %s", resp.StatusCode, body)
	}
}

func TestLogin(t *testing.T) {
	_, srv := newTestServer(t)
	if token := login(t, srv, AdminEmail); token == "" {
		t.Fatal("expected token")
	}

	resp, body := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": AdminEmail, "password": "nope",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if env := decodeEnvelope(t, body); env.Message != "invalid email or password" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	resp, _ = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": AdminEmail})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	_, srv := newTestServer(t)
	for _, path := range []string{"/user/getAllUsers", "/get/profile", "/dashboard/getData"} {
		resp, _ := doJSON(t, srv, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		resp, _ = doJSON(t, srv, http.MethodGet, path, "garbage", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for bad token, got %d", path, resp.StatusCode)
		}
	}
}

func TestProfileEmbedsRole(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, ViewerEmail)
	resp, body := doJSON(t, srv, http.MethodGet, "/get/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var user model.User
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &user); err != nil {
		t.Fatal(err)
	}
	if user.Email != ViewerEmail || user.RoleAttribute == nil || user.RoleAttribute.RoleName != "Viewer" {
		t.Fatalf("unexpected profile %+v", user)
	}
	set, err := permission.ParseSet(string(user.RoleAttribute.Permission))
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if got := set.Get("Products"); !got.Read || got.Create || got.Delete {
		t.Fatalf("viewer should be read-only, got %+v", got)
	}
}

func TestViewerCannotMutate(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, ViewerEmail)

	resp, _ := doJSON(t, srv, http.MethodGet, "/coupon/getAllCoupons", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("viewer should read coupons, got %d", resp.StatusCode)
	}
	resp, body := doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, model.CouponInput{
		Code: "NOPE", DiscountType: model.DiscountFlat, DiscountValue: 5,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if !strings.Contains(decodeEnvelope(t, body).Message, "create Coupons") {
		t.Fatalf("unexpected message %s", body)
	}
}

func TestCouponLifecycle(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)

	resp, body := doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, model.CouponInput{
		Code: "save10", DiscountType: model.DiscountPercentage, DiscountValue: 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", resp.StatusCode, body)
	}
	var created model.Coupon
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Code != "SAVE10" || created.Status != statusActive {
		t.Fatalf("unexpected coupon %+v", created)
	}

	resp, body = doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, model.CouponInput{
		Code: "SAVE10", DiscountType: model.DiscountFlat, DiscountValue: 1,
	})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "already exists") {
		t.Fatalf("expected duplicate rejection, got %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, srv, http.MethodPut, "/coupon/updateCoupon/"+created.ID, token, model.CouponInput{
		Code: "SAVE10", DiscountType: model.DiscountPercentage, DiscountValue: 15,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, srv, http.MethodGet, "/coupon/getCoupon/"+created.ID, token, nil)
	var got model.Coupon
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &got); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d %v", resp.StatusCode, err)
	}
	if got.DiscountValue != 15 {
		t.Fatalf("update not applied: %+v", got)
	}

	resp, _ = doJSON(t, srv, http.MethodDelete, "/coupon/deleteCoupon/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodGet, "/coupon/getCoupon/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodDelete, "/coupon/deleteCoupon/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestValidationErrorsAre400(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	resp, body := doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, model.CouponInput{
		Code: "X", DiscountType: "bogo", DiscountValue: 5,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if msg := decodeEnvelope(t, body).Message; msg != `unsupported discount type "bogo"` {
		t.Fatalf("unexpected message %q", msg)
	}

	resp, _ = doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, map[string]any{"bogus": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestProductPagingAndFilters(t *testing.T) {
	api, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	for i := 1; i <= 25; i++ {
		category := "Phones"
		if i%5 == 0 {
			category = "Laptops"
		}
		resp, body := postMultipart(t, srv.URL+"/product/addProduct", token, map[string][]string{
			"model":        {fmt.Sprintf("Model %02d", i)},
			"categoryName": {category},
			"price":        {"100"},
			"color":        {"Black", "Blue"},
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add product %d: %d %s", i, resp.StatusCode, body)
		}
	}
	if api.products.len() != 25 {
		t.Fatalf("expected 25 products, got %d", api.products.len())
	}

	type productPage struct {
		Products   []model.Product `json:"products"`
		TotalPages int             `json:"totalPages"`
	}
	list := func(query string) productPage {
		t.Helper()
		resp, body := doJSON(t, srv, http.MethodGet, "/product/getAllProducts?"+query, token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list %s: %d %s", query, resp.StatusCode, body)
		}
		var p productPage
		if err := json.Unmarshal(decodeEnvelope(t, body).Data, &p); err != nil {
			t.Fatal(err)
		}
		return p
	}

	first := list("page=1&limit=20")
	if len(first.Products) != 20 || first.TotalPages != 2 || first.Products[0].Model != "Model 01" {
		t.Fatalf("unexpected first page: %d items, %d pages", len(first.Products), first.TotalPages)
	}
	if got := first.Products[0].Color; len(got) != 2 {
		t.Fatalf("expected repeated form values to become a list, got %v", got)
	}
	second := list("page=2&limit=20")
	if len(second.Products) != 5 {
		t.Fatalf("expected 5 on page 2, got %d", len(second.Products))
	}
	laptops := list("page=1&limit=20&categoryName=Laptops&model=")
	if len(laptops.Products) != 5 || laptops.TotalPages != 1 {
		t.Fatalf("expected 5 laptops, got %d", len(laptops.Products))
	}
	one := list("model=Model%2007")
	if len(one.Products) != 1 {
		t.Fatalf("expected model filter to match once, got %d", len(one.Products))
	}

	resp, _ := doJSON(t, srv, http.MethodGet, "/product/getAllProducts?page=0", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %d", resp.StatusCode)
	}
}

func TestProductRequiresKnownCategory(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	resp, body := postMultipart(t, srv.URL+"/product/addProduct", token, map[string][]string{
		"model": {"Mystery"}, "categoryName": {"Toasters"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "unknown category") {
		t.Fatalf("expected 400, got %d %s", resp.StatusCode, body)
	}
}

func TestProductMediaUpload(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	resp, body := postMultipart(t, srv.URL+"/product/addProduct", token, map[string][]string{
		"model": {"Pixel 8"}, "categoryName": {"Phones"},
	}, map[string]string{"front.jpg": "jpegdata"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", resp.StatusCode, body)
	}
	var p model.Product
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Media) != 1 || !strings.HasSuffix(p.Media[0], "-front.jpg") {
		t.Fatalf("unexpected media %v", p.Media)
	}

	resp, body = postMultipart(t, srv.URL+"/product/addProduct", token, map[string][]string{
		"model": {"Pixel 9"}, "categoryName": {"Phones"}, "price": {"cheap"},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "price must be a number") {
		t.Fatalf("expected 400 for bad price, got %d %s", resp.StatusCode, body)
	}
}

func TestRemoveHidesFromList(t *testing.T) {
	api, srv := newTestServer(t, func(o *Options) { o.Demo = true })
	token := login(t, srv, AdminEmail)
	features := api.features.list(nil)
	if len(features) != 1 {
		t.Fatalf("expected one demo feature, got %d", len(features))
	}
	id := features[0].ID

	resp, _ := doJSON(t, srv, http.MethodPut, "/feature/removeFeature/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove: %d", resp.StatusCode)
	}
	_, body := doJSON(t, srv, http.MethodGet, "/feature/getAllFeatures", token, nil)
	if strings.Contains(string(body), id) {
		t.Fatalf("removed feature still listed: %s", body)
	}
	resp, body = doJSON(t, srv, http.MethodGet, "/feature/getFeature/"+id, token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), statusRemoved) {
		t.Fatalf("removed feature should still be readable, got %d %s", resp.StatusCode, body)
	}
}

func TestRolesListIsBareArray(t *testing.T) {
	api, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	_, body := doJSON(t, srv, http.MethodGet, "/role/getAllRoles", token, nil)
	var roles []model.Role
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &roles); err != nil {
		t.Fatalf("roles should be a bare array: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 seeded roles, got %d", len(roles))
	}

	resp, body := doJSON(t, srv, http.MethodDelete, "/role/deleteRole/"+api.viewerRoleID, token, nil)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "assigned") {
		t.Fatalf("expected role in use rejection, got %d %s", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, srv, http.MethodDelete, "/role/deleteRole/"+api.adminRoleID, token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("admin role must not be deletable, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, srv, http.MethodPost, "/role/addRole", token, map[string]any{
		"roleName":   "Support",
		"permission": `[{"module":"Orders","permissionsList":{"create":false,"read":true,"update":true,"delete":false}}]`,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add role: %d %s", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/role/addRole", token, map[string]any{
		"roleName":   "Broken",
		"permission": `[{"module":"Spaceships","permissionsList":{"read":true}}]`,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected unknown module rejection, got %d", resp.StatusCode)
	}
}

func TestUserEmailUnique(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	in := model.UserInput{Name: "Dup", Email: strings.ToUpper(ViewerEmail), PhoneNumber: "9876543210", Password: "pw"}
	resp, body := doJSON(t, srv, http.MethodPost, "/user/addUser", token, in)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "already registered") {
		t.Fatalf("expected duplicate email rejection, got %d %s", resp.StatusCode, body)
	}

	in.Email = "new@example.com"
	in.Password = ""
	resp, _ = doJSON(t, srv, http.MethodPost, "/user/addUser", token, in)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected password required, got %d", resp.StatusCode)
	}

	in.Password = "pw-123456"
	resp, body = doJSON(t, srv, http.MethodPost, "/user/addUser", token, in)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add user: %d %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "$2a$") {
		t.Fatalf("password hash leaked: %s", body)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{"email": "new@example.com", "password": "pw-123456"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new user should log in, got %d", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	api, srv := newTestServer(t, func(o *Options) { o.Demo = true })
	token := login(t, srv, ViewerEmail)
	admin := login(t, srv, AdminEmail)
	resp, body := doJSON(t, srv, http.MethodPost, "/order/addOrder", admin, model.OrderInput{
		Status: "delivered", TotalAmount: 250, PaymentMethod: "upi",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add order: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, srv, http.MethodGet, "/dashboard/getData", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: %d", resp.StatusCode)
	}
	var d model.Dashboard
	if err := json.Unmarshal(decodeEnvelope(t, body).Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.TotalUsers != 2 || d.TotalOrders != 1 || d.TotalRevenue != 250 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.TotalProducts != api.products.len() {
		t.Fatalf("expected %d products, got %d", api.products.len(), d.TotalProducts)
	}
	if len(d.Recent) == 0 || !strings.HasPrefix(d.Recent[0].Message, "Order ") {
		t.Fatalf("expected the order first in the feed, got %v", d.Recent)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)
	resp, _ := doJSON(t, srv, http.MethodGet, "/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/coupon/getAllCoupons", token, map[string]string{})
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func postMultipart(t *testing.T, url, token string, fields map[string][]string, files map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("media", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestEventsStreamActivity(t *testing.T) {
	_, srv := newTestServer(t)
	token := login(t, srv, AdminEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/dashboard/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := bufio.NewReader(resp.Body)
	if first, _ := lines.ReadString('\n'); !strings.HasPrefix(first, ": stream started") {
		t.Fatalf("unexpected preamble %q", first)
	}

	added, body := doJSON(t, srv, http.MethodPost, "/coupon/addCoupon", token, model.CouponInput{
		Code: "LIVE5", DiscountType: model.DiscountFlat, DiscountValue: 5,
	})
	if added.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", added.StatusCode, body)
	}

	for {
		line, err := lines.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended before the event: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt model.Activity
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		if !strings.HasPrefix(evt.Message, "Coupon ") || evt.At == 0 {
			t.Fatalf("unexpected event %+v", evt)
		}
		return
	}
}
