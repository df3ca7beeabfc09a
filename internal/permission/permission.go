// Package permission answers whether the signed-in user's role grants a CRUD
// capability on a console module. It gates UI actions only; the gateway
// enforces access on its own.
package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"adminpanel.org/internal/model"
)

// ErrPermissionDenied is returned by Require when the role does not grant the action.
var ErrPermissionDenied = errors.New("permission: denied")

// ErrMalformed reports a permission payload that could not be parsed.
var ErrMalformed = errors.New("permission: malformed payload")

// Module names a functional area of the console.
type Module string

const (
	Users      Module = "Users"
	Roles      Module = "Roles"
	Categories Module = "Categories"
	Products   Module = "Products"
	Orders     Module = "Orders"
	Address    Module = "Address"
	Coupons    Module = "Coupons"
	Features   Module = "Features"
)

// Modules returns the known modules in menu order.
func Modules() []Module {
	return []Module{Users, Roles, Categories, Products, Orders, Address, Coupons, Features}
}

// Known reports whether name is one of the enumerated modules.
func Known(name string) bool {
	for _, m := range Modules() {
		if string(m) == name {
			return true
		}
	}
	return false
}

type Action string

const (
	Create Action = "create"
	Read   Action = "read"
	Update Action = "update"
	Delete Action = "delete"
)

// Tuple is the four CRUD flags a role holds for one module.
type Tuple struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// None is the all-false tuple.
var None = Tuple{}

// All grants every action.
var All = Tuple{Create: true, Read: true, Update: true, Delete: true}

// Allows reports whether the tuple grants action. Unknown actions are denied.
func (t Tuple) Allows(action Action) bool {
	switch action {
	case Create:
		return t.Create
	case Read:
		return t.Read
	case Update:
		return t.Update
	case Delete:
		return t.Delete
	default:
		return false
	}
}

// Set maps module names to their tuple. A module appears at most once.
type Set map[string]Tuple

// Get returns the tuple for module, or None.
func (s Set) Get(module string) Tuple {
	if s == nil {
		return None
	}
	return s[module]
}

type entry struct {
	Module          string `json:"module"`
	PermissionsList Tuple  `json:"permissionsList"`
}

// ParseSet decodes the role permission list, e.g.
//
//	[{"module":"Products","permissionsList":{"create":true,"read":true,"update":false,"delete":false}}]
//
// The list may itself be wrapped in a JSON string. Entries with an empty module
// are skipped; for duplicate modules the first entry wins.
func ParseSet(raw string) (Set, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Set{}, nil
	}
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return Set{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = inner
	}
	var entries []entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	set := make(Set, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Module)
		if name == "" {
			continue
		}
		if _, dup := set[name]; dup {
			continue
		}
		set[name] = e.PermissionsList
	}
	return set, nil
}

// Encode renders a set in the wire format ParseSet reads, modules in menu
// order followed by any others in unspecified order.
func Encode(set Set) (model.RawPermission, error) {
	entries := make([]entry, 0, len(set))
	seen := make(map[string]struct{}, len(set))
	for _, m := range Modules() {
		if t, ok := set[string(m)]; ok {
			entries = append(entries, entry{Module: string(m), PermissionsList: t})
			seen[string(m)] = struct{}{}
		}
	}
	for name, t := range set {
		if _, ok := seen[name]; !ok {
			entries = append(entries, entry{Module: name, PermissionsList: t})
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return model.RawPermission(data), nil
}
