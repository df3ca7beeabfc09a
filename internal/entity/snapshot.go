package entity

import (
	"context"
	"sync"

	"adminpanel.org/internal/obs"
)

// Loader fetches a single aggregate value.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot caches one value with the same lifecycle as a Store. The dashboard
// uses it.
type Snapshot[T any] struct {
	name string
	load Loader[T]

	mu     sync.Mutex
	value  *T
	status Status
	errMsg string
}

func NewSnapshot[T any](name string, load Loader[T]) *Snapshot[T] {
	return &Snapshot[T]{name: name, load: load, status: Idle}
}

// Load replaces the value on success; on failure the old value is kept.
func (s *Snapshot[T]) Load(ctx context.Context) error {
	s.set(func() {
		s.status = Loading
		s.errMsg = ""
	})
	v, err := s.load(ctx)
	if err != nil {
		obs.Logger().Warn().Str("store", s.name).Err(err).Msg("load failed")
		s.set(func() {
			s.status = Failed
			s.errMsg = err.Error()
		})
		return err
	}
	s.set(func() {
		s.value = &v
		s.status = Loaded
	})
	return nil
}

func (s *Snapshot[T]) set(apply func()) {
	s.mu.Lock()
	prev := s.status
	apply()
	next := s.status
	s.mu.Unlock()
	if next != prev {
		obs.StoreTransitions.WithLabelValues(s.name, next.String()).Inc()
	}
}

func (s *Snapshot[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		var zero T
		return zero, false
	}
	return *s.value, true
}

func (s *Snapshot[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Snapshot[T]) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
