package app

import (
	"context"
	"encoding/json"
	"fmt"

	"adminpanel.org/internal/audit"
	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/ids"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

// View is an untyped copy of a collection's state, for callers that handle
// every entity the same way.
type View struct {
	Entity       string
	Status       entity.Status
	ErrorMessage string
	CurrentPage  int
	TotalPages   int
	Items        any
	Selected     any
	Filters      entity.FilterSet
}

// Collection is the entity-agnostic face of a Guarded store.
type Collection interface {
	Module() permission.Module
	Endpoint() gateway.Endpoint
	LoadPage(ctx context.Context, page int, filters entity.FilterSet) error
	Reload(ctx context.Context) error
	Search(ctx context.Context, key, term string) (bool, error)
	SearchWithin(ctx context.Context, base entity.FilterSet, key, term string) (bool, error)
	LoadByID(ctx context.Context, id string) error
	Create(ctx context.Context, payload model.Payload) error
	Update(ctx context.Context, id string, payload model.Payload) error
	Delete(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	// DecodePayload parses a JSON mutation body into the entity's input type.
	DecodePayload(raw []byte) (model.Payload, error)
	View() View
}

// Guarded puts the permission check in front of every store operation.
// Denied intents are audited and never reach the gateway.
type Guarded[T any] struct {
	module  permission.Module
	ep      gateway.Endpoint
	store   *entity.Store[T]
	perms   *permission.Resolver
	session *auth.Session
	decode  func([]byte) (model.Payload, error)
}

func newGuarded[T any, In model.Payload](module permission.Module, ep gateway.Endpoint, store *entity.Store[T], perms *permission.Resolver, session *auth.Session) *Guarded[T] {
	return &Guarded[T]{
		module:  module,
		ep:      ep,
		store:   store,
		perms:   perms,
		session: session,
		decode:  decodeInto[In],
	}
}

func decodeInto[In model.Payload](raw []byte) (model.Payload, error) {
	var in In
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return in, nil
}

// Store exposes the underlying store for typed selectors and subscriptions.
func (g *Guarded[T]) Store() *entity.Store[T] { return g.store }

func (g *Guarded[T]) Module() permission.Module { return g.module }

func (g *Guarded[T]) Endpoint() gateway.Endpoint { return g.ep }

func (g *Guarded[T]) LoadPage(ctx context.Context, page int, filters entity.FilterSet) error {
	if err := g.require(ctx, permission.Read, "list"); err != nil {
		return err
	}
	return g.store.LoadPage(ctx, page, filters)
}

func (g *Guarded[T]) Reload(ctx context.Context) error {
	if err := g.require(ctx, permission.Read, "list"); err != nil {
		return err
	}
	return g.store.Reload(ctx)
}

// Search sets filter key to term on the current filters and loads page 1. An
// empty key means the endpoint's search parameter. Terms shorter than
// entity.MinSearchLength are held back and Search reports false.
func (g *Guarded[T]) Search(ctx context.Context, key, term string) (bool, error) {
	return g.SearchWithin(ctx, g.store.Filters(), key, term)
}

// SearchWithin is Search over base instead of the current filters.
func (g *Guarded[T]) SearchWithin(ctx context.Context, base entity.FilterSet, key, term string) (bool, error) {
	if !entity.SearchReady(term) {
		return false, nil
	}
	if err := g.require(ctx, permission.Read, "search"); err != nil {
		return false, err
	}
	if key == "" {
		key = g.ep.SearchParam()
	}
	return true, g.store.LoadPage(ctx, 1, base.With(key, term))
}

func (g *Guarded[T]) LoadByID(ctx context.Context, id string) error {
	if err := g.require(ctx, permission.Read, "get"); err != nil {
		return err
	}
	return g.store.LoadByID(ctx, id)
}

func (g *Guarded[T]) Create(ctx context.Context, payload model.Payload) error {
	ctx, err := g.intent(ctx, permission.Create, "create", "")
	if err != nil {
		return err
	}
	return g.store.Create(ctx, payload)
}

func (g *Guarded[T]) Update(ctx context.Context, id string, payload model.Payload) error {
	ctx, err := g.intent(ctx, permission.Update, "update", id)
	if err != nil {
		return err
	}
	return g.store.Update(ctx, id, payload)
}

func (g *Guarded[T]) Delete(ctx context.Context, id string) error {
	ctx, err := g.intent(ctx, permission.Delete, "delete", id)
	if err != nil {
		return err
	}
	return g.store.Delete(ctx, id)
}

// Remove is the soft delete and needs the delete permission.
func (g *Guarded[T]) Remove(ctx context.Context, id string) error {
	ctx, err := g.intent(ctx, permission.Delete, "remove", id)
	if err != nil {
		return err
	}
	return g.store.Remove(ctx, id)
}

func (g *Guarded[T]) DecodePayload(raw []byte) (model.Payload, error) {
	return g.decode(raw)
}

func (g *Guarded[T]) View() View {
	st := g.store.Snapshot()
	v := View{
		Entity:       g.ep.Entity,
		Status:       st.Status,
		ErrorMessage: st.ErrorMessage,
		CurrentPage:  st.CurrentPage,
		TotalPages:   st.TotalPages,
		Items:        st.Items,
		Filters:      st.Filters,
	}
	if st.Selected != nil {
		v.Selected = *st.Selected
	}
	return v
}

// intent checks the permission and records the mutation attempt.
func (g *Guarded[T]) intent(ctx context.Context, action permission.Action, op, id string) (context.Context, error) {
	ctx = g.actor(ctx, op)
	if err := g.require(ctx, action, op); err != nil {
		return ctx, err
	}
	fields := map[string]any{"module": string(g.module)}
	if id != "" {
		fields["id"] = id
	}
	_ = audit.LogEvent(ctx, g.ep.Entity+"."+op, fields)
	return ctx, nil
}

func (g *Guarded[T]) require(ctx context.Context, action permission.Action, op string) error {
	err := g.perms.Require(g.module, action)
	if err != nil {
		_ = audit.LogEvent(g.actor(ctx, op), "permission.denied", map[string]any{
			"module": string(g.module),
			"action": string(action),
			"op":     op,
		})
	}
	return err
}

func (g *Guarded[T]) actor(ctx context.Context, op string) context.Context {
	if audit.RequestIDFromContext(ctx) == "" {
		ctx = audit.WithRequestID(ctx, ids.RequestID(op))
	}
	if _, ok := auth.UserFromContext(ctx); !ok {
		ctx = auth.ContextWithUser(ctx, g.session.CurrentUser())
	}
	return ctx
}
