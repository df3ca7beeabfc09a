// Package menu is the console's side navigation: a fixed table of modules
// and their routes, filtered by what the signed-in role may read.
package menu

import "adminpanel.org/internal/permission"

// Item is one navigation entry.
type Item struct {
	Module permission.Module
	Label  string
	Route  string
}

var table = []Item{
	{permission.Users, "Users", "/users"},
	{permission.Roles, "Roles", "/roles"},
	{permission.Categories, "Categories", "/categories"},
	{permission.Products, "Products", "/products"},
	{permission.Orders, "Orders", "/orders"},
	{permission.Address, "Address", "/user/address"},
	{permission.Coupons, "Coupons", "/coupons"},
	{permission.Features, "Features", "/features"},
}

// Dashboard is always shown and needs no permission.
var Dashboard = Item{Label: "Dashboard", Route: "/"}

// All returns the full table in display order.
func All() []Item {
	out := make([]Item, len(table))
	copy(out, table)
	return out
}

// Reader is satisfied by *permission.Resolver.
type Reader interface {
	Can(module permission.Module, action permission.Action) bool
}

// Items returns the entries whose module r grants read on.
func Items(r Reader) []Item {
	var out []Item
	for _, item := range table {
		if r != nil && r.Can(item.Module, permission.Read) {
			out = append(out, item)
		}
	}
	return out
}

// Route looks up the route of module.
func Route(module permission.Module) (string, bool) {
	for _, item := range table {
		if item.Module == module {
			return item.Route, true
		}
	}
	return "", false
}
