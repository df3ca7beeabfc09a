package gateway

import (
	"net/url"
	"strings"
)

// Endpoint names one REST resource. Paths follow the backend convention
// "{entity}/{verb}{Singular}/{id}", e.g. "coupon/updateCoupon/42".
type Endpoint struct {
	Entity   string
	Singular string
	Plural   string
	// ListKey is the field under "data" holding the page of records. Lists
	// that come back as a bare "data" array are decoded as a single page.
	ListKey   string
	Paginated bool
	// GetVerb overrides "get{Singular}" for the single record read.
	GetVerb string
	// SearchKey is the list query parameter carrying free text search.
	SearchKey string
}

var (
	Users      = Endpoint{Entity: "user", Singular: "User", Plural: "Users", ListKey: "users", Paginated: true}
	Roles      = Endpoint{Entity: "role", Singular: "Role", Plural: "Roles"}
	Products   = Endpoint{Entity: "product", Singular: "Product", Plural: "Products", ListKey: "products", Paginated: true, GetVerb: "getProductById", SearchKey: "model"}
	Categories = Endpoint{Entity: "category", Singular: "Category", Plural: "Categories", ListKey: "categories"}
	Coupons    = Endpoint{Entity: "coupon", Singular: "Coupon", Plural: "Coupons", ListKey: "coupons", Paginated: true}
	Orders     = Endpoint{Entity: "order", Singular: "Order", Plural: "Orders", ListKey: "orders", Paginated: true}
	Addresses  = Endpoint{Entity: "address", Singular: "Address", Plural: "Addresses", ListKey: "addresses", Paginated: true}
	Features   = Endpoint{Entity: "feature", Singular: "Feature", Plural: "Features", ListKey: "features", Paginated: true}
)

// Endpoints lists every resource the console manages.
func Endpoints() []Endpoint {
	return []Endpoint{Users, Roles, Products, Categories, Coupons, Orders, Addresses, Features}
}

// Lookup finds an endpoint by entity name ("product") or plural ("products").
func Lookup(name string) (Endpoint, bool) {
	for _, ep := range Endpoints() {
		if strings.EqualFold(name, ep.Entity) || strings.EqualFold(name, ep.Plural) {
			return ep, true
		}
	}
	return Endpoint{}, false
}

func (e Endpoint) ListPath() string { return e.Entity + "/getAll" + e.Plural }

// ReadVerb is the path segment of the single record read.
// SearchParam is SearchKey, or "search" for endpoints without one.
func (e Endpoint) SearchParam() string {
	if e.SearchKey != "" {
		return e.SearchKey
	}
	return "search"
}

func (e Endpoint) ReadVerb() string {
	if e.GetVerb != "" {
		return e.GetVerb
	}
	return "get" + e.Singular
}

func (e Endpoint) GetPath(id string) string {
	return e.Entity + "/" + e.ReadVerb() + "/" + url.PathEscape(id)
}

func (e Endpoint) AddPath() string { return e.Entity + "/add" + e.Singular }

func (e Endpoint) UpdatePath(id string) string {
	return e.Entity + "/update" + e.Singular + "/" + url.PathEscape(id)
}

func (e Endpoint) DeletePath(id string) string {
	return e.Entity + "/delete" + e.Singular + "/" + url.PathEscape(id)
}

func (e Endpoint) RemovePath(id string) string {
	return e.Entity + "/remove" + e.Singular + "/" + url.PathEscape(id)
}
