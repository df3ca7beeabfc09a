// Package app is the process-wide state container: one store per entity,
// the auth session, the permission resolver and the dashboard, created once
// at start and torn down at exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"adminpanel.org/internal/audit"
	"adminpanel.org/internal/auth"
	"adminpanel.org/internal/config"
	"adminpanel.org/internal/entity"
	"adminpanel.org/internal/gateway"
	"adminpanel.org/internal/ids"
	"adminpanel.org/internal/menu"
	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
	"adminpanel.org/internal/permission"
	"adminpanel.org/internal/store/sqlstore"
)

type App struct {
	Config      config.Console
	Client      *gateway.Client
	Tokens      auth.TokenStore
	Session     *auth.Session
	Permissions *permission.Resolver

	Users      *Guarded[model.User]
	Roles      *Guarded[model.Role]
	Products   *Guarded[model.Product]
	Categories *Guarded[model.Category]
	Coupons    *Guarded[model.Coupon]
	Orders     *Guarded[model.Order]
	Addresses  *Guarded[model.Address]
	Features   *Guarded[model.Feature]

	Dashboard *entity.Snapshot[model.Dashboard]

	collections map[string]Collection
	closers     []func() error
}

// New wires the container around an existing client and token store. The
// session registers itself as the client's token source.
func New(cfg config.Console, client *gateway.Client, tokens auth.TokenStore) *App {
	if tokens == nil {
		tokens = auth.NewMemoryTokenStore()
	}
	session := auth.NewSession(client, tokens)
	client.SetTokenSource(session)
	perms := permission.NewResolver(session)

	pageSize := entity.WithPageSize(cfg.PageSize)
	a := &App{
		Config:      cfg,
		Client:      client,
		Tokens:      tokens,
		Session:     session,
		Permissions: perms,
	}
	a.Users = newGuarded[model.User, model.UserInput](permission.Users, gateway.Users,
		entity.NewStore[model.User]("users", gateway.NewResource[model.User](client, gateway.Users), pageSize), perms, session)
	a.Roles = newGuarded[model.Role, model.RoleInput](permission.Roles, gateway.Roles,
		entity.NewStore[model.Role]("roles", gateway.NewResource[model.Role](client, gateway.Roles), pageSize), perms, session)
	a.Products = newGuarded[model.Product, model.ProductInput](permission.Products, gateway.Products,
		entity.NewStore[model.Product]("products", gateway.NewResource[model.Product](client, gateway.Products), pageSize), perms, session)
	a.Categories = newGuarded[model.Category, model.CategoryInput](permission.Categories, gateway.Categories,
		entity.NewStore[model.Category]("categories", gateway.NewResource[model.Category](client, gateway.Categories), pageSize), perms, session)
	a.Coupons = newGuarded[model.Coupon, model.CouponInput](permission.Coupons, gateway.Coupons,
		entity.NewStore[model.Coupon]("coupons", gateway.NewResource[model.Coupon](client, gateway.Coupons), pageSize), perms, session)
	a.Orders = newGuarded[model.Order, model.OrderInput](permission.Orders, gateway.Orders,
		entity.NewStore[model.Order]("orders", gateway.NewResource[model.Order](client, gateway.Orders), pageSize), perms, session)
	a.Addresses = newGuarded[model.Address, model.AddressInput](permission.Address, gateway.Addresses,
		entity.NewStore[model.Address]("addresses", gateway.NewResource[model.Address](client, gateway.Addresses), pageSize), perms, session)
	a.Features = newGuarded[model.Feature, model.FeatureInput](permission.Features, gateway.Features,
		entity.NewStore[model.Feature]("features", gateway.NewResource[model.Feature](client, gateway.Features), pageSize), perms, session)

	a.Dashboard = entity.NewSnapshot[model.Dashboard]("dashboard", client.Dashboard)

	a.collections = make(map[string]Collection)
	for _, c := range []Collection{a.Users, a.Roles, a.Products, a.Categories, a.Coupons, a.Orders, a.Addresses, a.Features} {
		ep := c.Endpoint()
		a.collections[ep.Entity] = c
	}
	return a
}

// Open builds the whole container from configuration: gateway client, token
// store (migrated when durable) and stores.
func Open(ctx context.Context, cfg config.Console) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	obs.SetLevel(cfg.LogLevel)

	client, err := gateway.New(cfg.GatewayURL,
		gateway.WithTimeout(cfg.HTTPTimeout),
		gateway.WithRateLimit(cfg.RatePerSecond, cfg.RateBurst),
	)
	if err != nil {
		return nil, err
	}

	var (
		tokens  auth.TokenStore
		closers []func() error
	)
	switch cfg.SessionDriver {
	case "memory":
		tokens = auth.NewMemoryTokenStore()
	default:
		store, err := sqlstore.Open(cfg.SessionDriver, cfg.SessionDSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate session store: %w", err)
		}
		tokens = store
		closers = append(closers, store.Close)
	}

	a := New(cfg, client, tokens)
	a.closers = closers
	return a, nil
}

// Close releases the token store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Start restores a persisted session. An expired token is not an error for
// the process; the operator simply has to log in again.
func (a *App) Start(ctx context.Context) error {
	err := a.Session.Restore(ctx)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil
	}
	return err
}

func (a *App) Login(ctx context.Context, creds model.Credentials) error {
	ctx = audit.WithRequestID(ctx, ids.RequestID("login"))
	if err := a.Session.Login(ctx, creds); err != nil {
		_ = audit.LogEvent(ctx, "auth.login_failed", map[string]any{"email": creds.Email})
		return err
	}
	_ = audit.LogEvent(auth.ContextWithUser(ctx, a.Session.CurrentUser()), "auth.login", nil)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx = auth.ContextWithUser(audit.WithRequestID(ctx, ids.RequestID("logout")), a.Session.CurrentUser())
	_ = audit.LogEvent(ctx, "auth.logout", nil)
	return a.Session.Logout(ctx)
}

// Menu is the navigation the signed-in role may see.
func (a *App) Menu() []menu.Item {
	return menu.Items(a.Permissions)
}

// LoadDashboard needs a session but no module permission.
func (a *App) LoadDashboard(ctx context.Context) error {
	if !a.Session.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	return a.Dashboard.Load(ctx)
}

// Collection looks up a store by entity name ("coupon") or plural ("coupons").
func (a *App) Collection(name string) (Collection, bool) {
	ep, ok := gateway.Lookup(name)
	if !ok {
		return nil, false
	}
	c, ok := a.collections[ep.Entity]
	return c, ok
}

// Entities lists the entity names Collection accepts, sorted.
func (a *App) Entities() []string {
	out := make([]string, 0, len(a.collections))
	for name := range a.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
