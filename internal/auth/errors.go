package auth

import "errors"

var (
	// ErrNoToken means nothing is persisted; the operator has to log in.
	ErrNoToken = errors.New("auth: no stored token")
	// ErrTokenExpired is returned by Restore when the stored token's exp
	// claim is in the past. The token is erased.
	ErrTokenExpired = errors.New("auth: stored token expired")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
)
