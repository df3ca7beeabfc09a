package menu

import (
	"testing"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/permission"
)

type fixedSession struct{ user *model.User }

func (f fixedSession) CurrentUser() *model.User { return f.user }

func withPermissions(raw string) *permission.Resolver {
	return permission.NewResolver(fixedSession{user: &model.User{
		RoleAttribute: &model.RoleAttribute{RoleName: "r", Permission: model.RawPermission(raw)},
	}})
}

func TestItemsFiltersByRead(t *testing.T) {
	r := withPermissions(`[
		{"module":"Products","permissionsList":{"read":true}},
		{"module":"Coupons","permissionsList":{"create":true,"update":true,"delete":true}},
		{"module":"Address","permissionsList":{"read":true}}
	]`)
	items := Items(r)
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Route != "/products" || items[1].Route != "/user/address" {
		t.Fatalf("unexpected order or routes: %+v", items)
	}
}

func TestItemsWithoutSession(t *testing.T) {
	if got := Items(permission.NewResolver(fixedSession{})); len(got) != 0 {
		t.Fatalf("anonymous menu = %+v", got)
	}
	if got := Items(nil); len(got) != 0 {
		t.Fatalf("nil reader menu = %+v", got)
	}
}

func TestAllIsACopy(t *testing.T) {
	all := All()
	if len(all) != len(permission.Modules()) {
		t.Fatalf("table has %d entries", len(all))
	}
	all[0].Route = "/mutated"
	if r, _ := Route(permission.Users); r != "/users" {
		t.Fatalf("All exposed the table: %q", r)
	}
	if _, ok := Route("Ledger"); ok {
		t.Fatalf("unknown module resolved")
	}
}
