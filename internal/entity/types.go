// Package entity implements the client-side cache shared by every console
// screen: one Store per entity type, mirroring the last successful gateway
// read together with its request lifecycle and pagination state.
package entity

import (
	"context"
	"errors"
	"net/url"

	"adminpanel.org/internal/model"
)

var (
	// ErrPageOutOfRange is returned, before any gateway call, for a page
	// outside [1, totalPages].
	ErrPageOutOfRange = errors.New("entity: page out of range")
	// ErrMissingID is returned when an operation needs a record id.
	ErrMissingID = errors.New("entity: id is required")
)

// Status is the request lifecycle of a store.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Filter is one query parameter of a list request.
type Filter struct {
	Key   string
	Value string
}

// FilterSet is an ordered list of filters. Empty values are still sent, the
// gateway treats them as "no filter".
type FilterSet []Filter

// Filters builds a FilterSet from alternating key/value pairs. A trailing key
// without a value is ignored.
func Filters(kv ...string) FilterSet {
	out := make(FilterSet, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Filter{Key: kv[i], Value: kv[i+1]})
	}
	return out
}

// Values encodes the set as URL query values.
func (f FilterSet) Values() url.Values {
	v := make(url.Values, len(f))
	for _, filter := range f {
		v.Add(filter.Key, filter.Value)
	}
	return v
}

// Get returns the first value for key.
func (f FilterSet) Get(key string) string {
	for _, filter := range f {
		if filter.Key == key {
			return filter.Value
		}
	}
	return ""
}

// With returns a copy of the set with key set to value, replacing the first
// existing entry or appending a new one.
func (f FilterSet) With(key, value string) FilterSet {
	out := f.clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Filter{Key: key, Value: value})
}

func (f FilterSet) equal(o FilterSet) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if f[i] != o[i] {
			return false
		}
	}
	return true
}

func (f FilterSet) clone() FilterSet {
	if f == nil {
		return nil
	}
	out := make(FilterSet, len(f))
	copy(out, f)
	return out
}

// Page is one list response.
type Page[T any] struct {
	Items      []T
	TotalPages int
}

// Gateway is the remote collection a Store mirrors.
type Gateway[T any] interface {
	List(ctx context.Context, page, limit int, filters FilterSet) (Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload model.Payload) error
	Update(ctx context.Context, id string, payload model.Payload) error
	Delete(ctx context.Context, id string) error
	// Remove is the soft delete: the record stays but leaves active listings.
	Remove(ctx context.Context, id string) error
}

// MinSearchLength is the shortest non-empty search term worth a request.
const MinSearchLength = 5

// SearchReady reports whether a search box value should trigger a load: when
// cleared, or once it is at least MinSearchLength characters long.
func SearchReady(term string) bool {
	n := len([]rune(term))
	return n == 0 || n >= MinSearchLength
}
