package gateway

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"adminpanel.org/internal/model"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	body, ctype, err := jsonBody(creds)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, call{
		entity:      "auth",
		op:          "login",
		method:      http.MethodPost,
		path:        "auth/login",
		body:        body,
		contentType: ctype,
	})
	if err != nil {
		return "", err
	}
	token := gjson.GetBytes(resp, "data.token").String()
	if token == "" {
		return "", decodeError("login response carries no token")
	}
	return token, nil
}

// Profile fetches the user behind token. An empty token falls back to the
// client's token source.
func (c *Client) Profile(ctx context.Context, token string) (model.User, error) {
	var user model.User
	resp, err := c.do(ctx, call{
		entity: "auth",
		op:     "profile",
		method: http.MethodGet,
		path:   "get/profile",
		token:  token,
	})
	if err != nil {
		return user, err
	}
	if err := decodeData(resp, &user); err != nil {
		return user, err
	}
	return user, nil
}

// Dashboard fetches the landing page aggregate.
func (c *Client) Dashboard(ctx context.Context) (model.Dashboard, error) {
	var out model.Dashboard
	resp, err := c.do(ctx, call{
		entity: "dashboard",
		op:     "get",
		method: http.MethodGet,
		path:   "dashboard/getData",
	})
	if err != nil {
		return out, err
	}
	if err := decodeData(resp, &out); err != nil {
		return out, err
	}
	return out, nil
}
