// Package auth maps staff roles to the front-of-house views they may use and
// reads the role from bearer tokens issued by the identity service.
package auth

import "strings"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleWaiter  Role = "waiter"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
	RoleStaff   Role = "staff"
)

// DefaultRole is assumed when the identity service returns no role.
const DefaultRole = RoleWaiter

var Roles = []Role{RoleAdmin, RoleManager, RoleWaiter, RoleCashier, RoleKitchen, RoleStaff}

// ParseRole normalizes name to a known role. Unknown or empty names yield
// DefaultRole and false.
func ParseRole(name string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return DefaultRole, false
}

type View string

const (
	ViewDashboard View = "dashboard"
	ViewTables    View = "tables"
	ViewOrders    View = "orders"
	ViewMenu      View = "menu"
	ViewBilling   View = "billing"
	ViewKitchen   View = "kitchen"
	ViewAnalytics View = "analytics"
)

// Views lists every view in navigation order.
var Views = []View{ViewDashboard, ViewTables, ViewOrders, ViewMenu, ViewBilling, ViewKitchen, ViewAnalytics}

var viewRoles = map[View][]Role{
	ViewDashboard: {RoleAdmin, RoleManager},
	ViewTables:    {RoleAdmin, RoleManager, RoleWaiter},
	ViewOrders:    {RoleAdmin, RoleManager, RoleWaiter, RoleCashier, RoleStaff},
	ViewMenu:      {RoleAdmin, RoleManager, RoleWaiter},
	ViewBilling:   {RoleAdmin, RoleManager, RoleWaiter, RoleCashier},
	ViewKitchen:   {RoleAdmin, RoleManager, RoleKitchen},
	ViewAnalytics: {RoleAdmin, RoleManager},
}

// CanAccess reports whether role may use view.
func CanAccess(role Role, view View) bool {
	for _, r := range viewRoles[view] {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedViews returns the views role may use, in navigation order.
func AllowedViews(role Role) []View {
	views := make([]View, 0, len(Views))
	for _, v := range Views {
		if CanAccess(role, v) {
			views = append(views, v)
		}
	}
	return views
}

// LandingView is the first view shown after sign-in.
func LandingView(role Role) View {
	switch role {
	case RoleAdmin, RoleManager:
		return ViewDashboard
	case RoleStaff, RoleWaiter, RoleCashier:
		return ViewOrders
	case RoleKitchen:
		return ViewKitchen
	default:
		return ViewDashboard
	}
}
