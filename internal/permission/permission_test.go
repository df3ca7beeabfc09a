package permission

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/obs"
)

type staticSession struct {
	user *model.User
}

func (s staticSession) CurrentUser() *model.User { return s.user }

func sessionWith(raw string) staticSession {
	return staticSession{user: &model.User{
		ID:            "u1",
		RoleAttribute: &model.RoleAttribute{RoleName: "Manager", Permission: model.RawPermission(raw)},
	}}
}

const managerPerms = `[
	{"module":"Products","permissionsList":{"create":true,"read":true,"update":true,"delete":false}},
	{"module":"Orders","permissionsList":{"create":false,"read":true,"update":false,"delete":false}},
	{"module":"Products","permissionsList":{"create":false,"read":false,"update":false,"delete":true}}
]`

func TestResolveReturnsStoredTuple(t *testing.T) {
	r := NewResolver(sessionWith(managerPerms))

	got := r.Resolve("Products")
	want := Tuple{Create: true, Read: true, Update: true, Delete: false}
	if got != want {
		t.Fatalf("Resolve(Products) = %+v, want %+v", got, want)
	}
	if !r.Can(Orders, Read) || r.Can(Orders, Update) {
		t.Fatalf("unexpected orders tuple %+v", r.ResolveModule(Orders))
	}
}

func TestResolveDefaultsToDeny(t *testing.T) {
	cases := map[string]SessionSource{
		"nil session":   nil,
		"anonymous":     staticSession{},
		"no role":       staticSession{user: &model.User{ID: "u1"}},
		"malformed":     sessionWith(`{not json`),
		"wrong shape":   sessionWith(`{"module":"Products"}`),
		"empty payload": sessionWith(``),
	}
	for name, session := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(session)
			for _, m := range Modules() {
				if got := r.ResolveModule(m); got != None {
					t.Fatalf("Resolve(%s) = %+v, want all false", m, got)
				}
			}
		})
	}

	r := NewResolver(sessionWith(managerPerms))
	if got := r.Resolve("Warehouses"); got != None {
		t.Fatalf("unknown module should resolve to None, got %+v", got)
	}
	if got := r.Resolve("products"); got != None {
		t.Fatalf("lookup is exact match, got %+v", got)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(sessionWith(managerPerms))
	first := r.Resolve("Products")
	second := r.Resolve("Products")
	if first != second {
		t.Fatalf("repeated lookups differ: %+v vs %+v", first, second)
	}
}

func TestResolveAcceptsStringWrappedList(t *testing.T) {
	wrapped := `"[{\"module\":\"Users\",\"permissionsList\":{\"read\":true}}]"`
	r := NewResolver(sessionWith(wrapped))
	if got := r.Resolve("Users"); got != (Tuple{Read: true}) {
		t.Fatalf("unexpected tuple %+v", got)
	}
}

func TestRequire(t *testing.T) {
	r := NewResolver(sessionWith(managerPerms))
	denials := obs.PermissionDenials.WithLabelValues(string(Products), string(Delete))
	before := testutil.ToFloat64(denials)

	if err := r.Require(Products, Create); err != nil {
		t.Fatalf("expected create on products to be allowed: %v", err)
	}
	err := r.Require(Products, Delete)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if got := testutil.ToFloat64(denials) - before; got != 1 {
		t.Fatalf("expected one recorded denial, got %v", got)
	}
}

func TestParseSetMalformed(t *testing.T) {
	if _, err := ParseSet(`[{"module":`); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	set := Set{"Products": All, "Orders": {Read: true}, "Reports": {Read: true}}
	raw, err := Encode(set)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := ParseSet(string(raw))
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if len(back) != 3 || back.Get("Products") != All || back.Get("Reports") != (Tuple{Read: true}) {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestTupleAllowsUnknownAction(t *testing.T) {
	if All.Allows(Action("export")) {
		t.Fatal("unknown action must be denied")
	}
	if !Known("Coupons") || Known("Reports") {
		t.Fatal("unexpected Known result")
	}
}
