package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret-pass"

func newTestAPI(t *testing.T, mod ...func(*Options)) *API {
	t.Helper()
	opts := Options{
		Secret:        "test-secret",
		AdminPassword: testPassword,
		BcryptCost:    bcrypt.MinCost,
		Version:       "test",
	}
	for _, m := range mod {
		m(&opts)
	}
	api, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return api
}

func newTestServer(t *testing.T, mod ...func(*Options)) (*API, *httptest.Server) {
	t.Helper()
	api := newTestAPI(t, mod...)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func login(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, resp.StatusCode, body)
	}
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Data.Token == "" {
		t.Fatalf("login response %s: %v", body, err)
	}
	return out.Data.Token
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}
