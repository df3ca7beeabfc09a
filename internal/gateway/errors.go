package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Error kinds. Every failed call unwraps to exactly one of them.
var (
	ErrNetwork    = errors.New("gateway: network error")
	ErrValidation = errors.New("gateway: request rejected")
	ErrAuth       = errors.New("gateway: not authorized")
	ErrNotFound   = errors.New("gateway: not found")
	ErrServer     = errors.New("gateway: server error")
	ErrDecode     = errors.New("gateway: malformed response")
)

// Error is a failed gateway call. Message is what the backend said, or the
// transport error, and is what the stores surface to the operator.
type Error struct {
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Outcome is the metric label for an error kind.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "server"
	}
}

const maxMessage = 200

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(status int, body []byte) *Error {
	kind := ErrServer
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuth
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status >= 400 && status < 500:
		kind = ErrValidation
	}
	msg := messageOf(body)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status code %d", status)
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

func messageOf(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error", "data.message"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
		return ""
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxMessage {
		s = s[:maxMessage]
	}
	return s
}

func networkError(err error) *Error {
	return &Error{Kind: ErrNetwork, Message: err.Error()}
}

func decodeError(format string, args ...any) *Error {
	return &Error{Kind: ErrDecode, Message: fmt.Sprintf("%s: %s", ErrDecode, fmt.Sprintf(format, args...))}
}
