// Package audit records operator intents (mutations and denials) as
// structured log lines, enriched with the request id and signed-in user.
package audit

import (
	"context"
	"errors"
	"strings"

	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}

	ev := obs.Logger().Info().
		Str("type", "audit").
		Str("event", event)
	if rid := RequestIDFromContext(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	if user, ok := auth.UserFromContext(ctx); ok {
		ev = ev.Str("user_id", user.ID)
		if user.RoleAttribute != nil {
			ev = ev.Str("role", user.RoleAttribute.RoleName)
		}
	}
	ev.Interface("fields", copyFields).Msg("audit")
	return nil
}
