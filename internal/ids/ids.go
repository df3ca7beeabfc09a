package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier. Gateway calls carry one
// as X-Request-ID so console and backend logs can be joined.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestID returns New() prefixed with the lower-cased operation name, e.g.
// "list-01J...".
func RequestID(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	if op == "" {
		return New()
	}
	return op + "-" + New()
}
