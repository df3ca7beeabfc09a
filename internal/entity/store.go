package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
)

// DefaultPageSize is the limit sent with list requests.
const DefaultPageSize = 20

// State is a copy of a store's contents.
type State[T any] struct {
	Items        []T
	Status       Status
	ErrorMessage string
	CurrentPage  int
	TotalPages   int
	Selected     *T
	Filters      FilterSet
}

// Store caches one entity collection. Items and Selected are replaced
// wholesale on each successful read; mutations never patch them locally and
// instead trigger a reload.
//
// Loads are not sequenced: when two are in flight the one that returns last
// wins.
type Store[T any] struct {
	name     string
	gw       Gateway[T]
	pageSize int

	mu     sync.Mutex
	state  State[T]
	loaded bool
	subs   []func(State[T])
}

// Option configures a Store.
type Option func(*options)

type options struct {
	pageSize int
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// NewStore returns an idle store named name (used in logs and metrics).
func NewStore[T any](name string, gw Gateway[T], opts ...Option) *Store[T] {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:     name,
		gw:       gw,
		pageSize: o.pageSize,
		state: State[T]{
			Status:      Idle,
			CurrentPage: 1,
			TotalPages:  1,
		},
	}
}

func (s *Store[T]) Name() string { return s.name }

// Subscribe registers fn to be called with a copy of the state after every
// transition. fn runs on the goroutine that caused the transition.
func (s *Store[T]) Subscribe(fn func(State[T])) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// LoadPage fetches one page of the collection. Pages below 1 are rejected
// without a gateway call, and so are pages above totalPages when filters are
// the ones that total was loaded with; a new filter set may have a different
// page count, so its first request goes through. On failure the previous
// items stay visible and the error is recorded and returned.
func (s *Store[T]) LoadPage(ctx context.Context, page int, filters FilterSet) error {
	s.mu.Lock()
	known := s.loaded && filters.equal(s.state.Filters)
	if page < 1 || (known && page > s.state.TotalPages) {
		total := s.state.TotalPages
		s.mu.Unlock()
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, total)
	}
	s.mu.Unlock()
	return s.load(ctx, page, filters)
}

// Reload fetches the current page with the last filters.
func (s *Store[T]) Reload(ctx context.Context) error {
	s.mu.Lock()
	page, filters := s.state.CurrentPage, s.state.Filters.clone()
	s.mu.Unlock()
	return s.load(ctx, page, filters)
}

func (s *Store[T]) load(ctx context.Context, page int, filters FilterSet) error {
	s.transition(func(st *State[T]) {
		st.Status = Loading
		st.ErrorMessage = ""
	})

	resp, err := s.gw.List(ctx, page, s.pageSize, filters)
	if err != nil {
		s.fail(err)
		return err
	}
	current := page
	total := pageCount(resp)
	if current > total {
		// The collection shrank past the requested page; show the last one.
		current = total
		resp, err = s.gw.List(ctx, current, s.pageSize, filters)
		if err != nil {
			s.fail(err)
			return err
		}
		total = pageCount(resp)
		current = min(current, total)
	}
	items := make([]T, len(resp.Items))
	copy(items, resp.Items)

	s.transition(func(st *State[T]) {
		st.Items = items
		st.TotalPages = total
		st.CurrentPage = current
		st.Filters = filters.clone()
		st.Status = Loaded
		s.loaded = true
	})
	return nil
}

// LoadByID fetches a single record into the selected slot.
func (s *Store[T]) LoadByID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	s.transition(func(st *State[T]) {
		st.Status = Loading
		st.ErrorMessage = ""
	})

	item, err := s.gw.Get(ctx, id)
	if err != nil {
		s.fail(err)
		return err
	}
	s.transition(func(st *State[T]) {
		st.Selected = &item
		st.Status = Loaded
	})
	return nil
}

// Select opens item in the detail slot without a gateway call.
func (s *Store[T]) Select(item T) {
	s.transition(func(st *State[T]) { st.Selected = &item })
}

// ClearSelected closes the detail slot.
func (s *Store[T]) ClearSelected() {
	s.transition(func(st *State[T]) { st.Selected = nil })
}

// Create adds a record and reloads page 1, since the new total may shift
// page boundaries. A nil error means the gateway accepted the record; the
// outcome of the reload is recorded in the store state.
func (s *Store[T]) Create(ctx context.Context, payload model.Payload) error {
	if err := validate(payload); err != nil {
		return err
	}
	if err := s.gw.Create(ctx, payload); err != nil {
		return s.rejected("create", err)
	}
	s.reloadAfter(ctx, "create", 1)
	return nil
}

// Update changes a record and reloads the current page.
func (s *Store[T]) Update(ctx context.Context, id string, payload model.Payload) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if err := validate(payload); err != nil {
		return err
	}
	if err := s.gw.Update(ctx, id, payload); err != nil {
		return s.rejected("update", err)
	}
	s.mu.Lock()
	page := s.state.CurrentPage
	s.mu.Unlock()
	s.reloadAfter(ctx, "update", page)
	return nil
}

// Delete removes a record permanently and reloads page 1.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if err := s.gw.Delete(ctx, id); err != nil {
		return s.rejected("delete", err)
	}
	s.reloadAfter(ctx, "delete", 1)
	return nil
}

// Remove soft-deletes a record and reloads page 1.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if err := s.gw.Remove(ctx, id); err != nil {
		return s.rejected("remove", err)
	}
	s.reloadAfter(ctx, "remove", 1)
	return nil
}

func pageCount[T any](p Page[T]) int {
	return max(1, p.TotalPages)
}

func (s *Store[T]) reloadAfter(ctx context.Context, op string, page int) {
	s.mu.Lock()
	filters := s.state.Filters.clone()
	s.mu.Unlock()
	if err := s.load(ctx, page, filters); err != nil {
		obs.Logger().Warn().Str("store", s.name).Str("op", op).Err(err).Msg("reload after mutation failed")
	}
}

func (s *Store[T]) rejected(op string, err error) error {
	obs.Logger().Warn().Str("store", s.name).Str("op", op).Err(err).Msg("mutation rejected")
	return err
}

func (s *Store[T]) fail(err error) {
	obs.Logger().Warn().Str("store", s.name).Err(err).Msg("load failed")
	s.transition(func(st *State[T]) {
		st.Status = Failed
		st.ErrorMessage = err.Error()
	})
}

func (s *Store[T]) transition(apply func(*State[T])) {
	s.mu.Lock()
	prev := s.state.Status
	apply(&s.state)
	snapshot := s.copyLocked()
	subs := append([]func(State[T]){}, s.subs...)
	s.mu.Unlock()

	if snapshot.Status != prev {
		obs.StoreTransitions.WithLabelValues(s.name, snapshot.Status.String()).Inc()
	}
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Store[T]) copyLocked() State[T] {
	out := s.state
	if s.state.Items != nil {
		out.Items = make([]T, len(s.state.Items))
		copy(out.Items, s.state.Items)
	}
	if s.state.Selected != nil {
		sel := *s.state.Selected
		out.Selected = &sel
	}
	out.Filters = s.state.Filters.clone()
	return out
}

// Selectors. Each returns a copy and never touches the gateway.

func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store[T]) Items() []T {
	return s.Snapshot().Items
}

func (s *Store[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// ErrorMessage is empty unless Status is Failed.
func (s *Store[T]) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ErrorMessage
}

func (s *Store[T]) Selected() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Selected == nil {
		var zero T
		return zero, false
	}
	return *s.state.Selected, true
}

func (s *Store[T]) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentPage
}

func (s *Store[T]) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPages
}

func (s *Store[T]) Filters() FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filters.clone()
}

func validate(payload model.Payload) error {
	if payload == nil {
		return fmt.Errorf("%w: payload is required", model.ErrInvalidInput)
	}
	return payload.Validate()
}
