// Package httpapi is an in-memory implementation of the admin gateway REST
// contract. It backs the mockgateway command and the integration tests.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
)

// Seeded accounts.
const (
	AdminEmail  = "admin@example.com"
	ViewerEmail = "viewer@example.com"
)

const defaultMaxBody = 8 << 20

// Options configures the mock gateway.
type Options struct {
	Secret         string
	TokenTTL       time.Duration
	AdminPassword  string
	ViewerPassword string
	Version        string
	// Demo seeds sample products, a coupon and a feature.
	Demo bool
	// BcryptCost defaults to bcrypt.DefaultCost; tests lower it.
	BcryptCost int
	// RatePerSecond and RateBurst throttle each client IP; zero disables.
	RatePerSecond int
	RateBurst     int
	MaxBodyBytes  int64
	Clock         func() time.Time
}

// API is the HTTP layer of the mock gateway.
type API struct {
	router  *mux.Router
	tokens  *Issuer
	opts    Options
	version string
	now     func() time.Time

	bcryptCost int

	// mu serializes mutations so cross-collection checks stay consistent.
	mu           sync.Mutex
	passMu       sync.RWMutex
	passwords    map[string]string
	adminRoleID  string
	viewerRoleID string

	users      *collection[model.User]
	roles      *collection[model.Role]
	products   *collection[model.Product]
	categories *collection[model.Category]
	coupons    *collection[model.Coupon]
	orders     *collection[model.Order]
	addresses  *collection[model.Address]
	features   *collection[model.Feature]
	activity   *activityLog
}

func New(opts Options) (*API, error) {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	if opts.AdminPassword == "" {
		return nil, errors.New("httpapi: admin password is required")
	}
	if opts.ViewerPassword == "" {
		opts.ViewerPassword = opts.AdminPassword
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	issuer, err := NewIssuer(opts.Secret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	issuer.now = opts.Clock

	a := &API{
		router:     mux.NewRouter(),
		tokens:     issuer,
		opts:       opts,
		version:    opts.Version,
		now:        opts.Clock,
		bcryptCost: opts.BcryptCost,
		passwords:  make(map[string]string),
		users:      newCollection[model.User](),
		roles:      newCollection[model.Role](),
		products:   newCollection[model.Product](),
		categories: newCollection[model.Category](),
		coupons:    newCollection[model.Coupon](),
		orders:     newCollection[model.Order](),
		addresses:  newCollection[model.Address](),
		features:   newCollection[model.Feature](),
		activity:   newActivityLog(opts.Clock),
	}
	if err := a.seed(opts.AdminPassword, opts.ViewerPassword, opts.Demo); err != nil {
		return nil, err
	}

	a.router.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	a.router.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)
	a.router.HandleFunc("/auth/login", a.Login).Methods(http.MethodPost)
	a.router.HandleFunc("/get/profile", a.Profile).Methods(http.MethodGet)
	a.router.HandleFunc("/dashboard/getData", a.Dashboard).Methods(http.MethodGet)
	a.router.HandleFunc("/dashboard/events", a.Events).Methods(http.MethodGet)
	a.registerResources()

	a.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	a.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	return a, nil
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.router)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	if a.opts.RatePerSecond > 0 {
		burst := a.opts.RateBurst
		if burst <= 0 {
			burst = a.opts.RatePerSecond
		}
		h = RateLimit(h, burst, a.opts.RatePerSecond)
	}
	h = Logging(h)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "mockgateway",
		"version": a.version,
	})
}

// Login exchanges credentials for a signed session token.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := creds.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}
	user, ok := a.userByEmail(strings.ToLower(strings.TrimSpace(creds.Email)))
	if !ok || user.Status == statusRemoved || VerifyPassword(a.password(user.ID), creds.Password) != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, exp, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issue failed")
		return
	}
	a.activity.add(user.Name + " signed in")
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"data": map[string]any{
			"token":     token,
			"expiresAt": exp.UTC().Format(time.RFC3339),
		},
	})
}

// Profile returns the caller with the role embedded as roleAttribute.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": a.profileOf(p.user)})
}

func (a *API) profileOf(u model.User) model.User {
	if role, ok := a.roles.get(u.Role); ok {
		u.RoleAttribute = &model.RoleAttribute{ID: role.ID, RoleName: role.RoleName, Permission: role.Permission}
	}
	return u
}

// Dashboard aggregates counts across collections. Removed records and
// cancelled orders are left out.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := principalFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	live := func(status string) bool { return status != statusRemoved }
	orders := a.orders.list(func(o model.Order) bool { return live(o.Status) })
	var revenue float64
	for _, o := range orders {
		if o.Status != "cancelled" {
			revenue += o.TotalAmount
		}
	}
	out := model.Dashboard{
		TotalUsers:    len(a.users.list(func(u model.User) bool { return live(u.Status) })),
		TotalOrders:   len(orders),
		TotalProducts: len(a.products.list(func(p model.Product) bool { return live(p.Status) })),
		TotalRevenue:  revenue,
		Recent:        a.activity.recent(),
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (a *API) setPassword(userID, hash string) {
	a.passMu.Lock()
	a.passwords[userID] = hash
	a.passMu.Unlock()
}

func (a *API) password(userID string) string {
	a.passMu.RLock()
	defer a.passMu.RUnlock()
	return a.passwords[userID]
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"message": msg}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("invalid JSON body")
	}
	return nil
}

// parsePositiveInt parses s, returning def when empty and capping at max
// when max > 0.
func parsePositiveInt(s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
