package permission

import (
	"fmt"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
)

// SessionSource exposes the signed-in user, or nil when nobody is signed in.
type SessionSource interface {
	CurrentUser() *model.User
}

// Resolver reads the session's embedded role and answers permission lookups.
type Resolver struct {
	session SessionSource
}

func NewResolver(session SessionSource) *Resolver {
	return &Resolver{session: session}
}

// Resolve returns the tuple stored for module, or None when there is no
// session, no role, an unparseable payload, or no entry for the module.
func (r *Resolver) Resolve(module string) Tuple {
	return r.set().Get(module)
}

// ResolveModule is Resolve for an enumerated module.
func (r *Resolver) ResolveModule(module Module) Tuple {
	return r.Resolve(string(module))
}

// Can reports whether action is allowed on module.
func (r *Resolver) Can(module Module, action Action) bool {
	return r.ResolveModule(module).Allows(action)
}

// Require returns ErrPermissionDenied when action is not allowed on module.
func (r *Resolver) Require(module Module, action Action) error {
	if r.Can(module, action) {
		return nil
	}
	obs.PermissionDenials.WithLabelValues(string(module), string(action)).Inc()
	return fmt.Errorf("%w: %s on %s", ErrPermissionDenied, action, module)
}

func (r *Resolver) set() Set {
	if r == nil || r.session == nil {
		return nil
	}
	user := r.session.CurrentUser()
	if user == nil || user.RoleAttribute == nil {
		return nil
	}
	set, err := ParseSet(string(user.RoleAttribute.Permission))
	if err != nil {
		return nil
	}
	return set
}
