package auth

import (
	"strings"

	"mesa/internal/domain"
)

// Default landing pages per role.
const (
	AdminHome   = "/admin"
	KitchenHome = "/cocina"
)

// IsValidPageURL reports whether url is a local page worth returning to
// after login. API paths and static assets other than .html are rejected.
func IsValidPageURL(url string) bool {
	if url == "" || !strings.HasPrefix(url, "/") {
		return false
	}
	// Protocol-relative URLs leave the site.
	if strings.HasPrefix(url, "//") || strings.HasPrefix(url, `/\`) {
		return false
	}
	if strings.Contains(url, "/api/") {
		return false
	}
	if strings.Contains(url, ".") && !strings.HasSuffix(url, ".html") && !strings.HasSuffix(url, "/") {
		return false
	}
	return true
}

// SafeRedirect picks the post-login destination for role.
func SafeRedirect(returnTo string, role domain.Role) string {
	if !IsValidPageURL(returnTo) {
		if role == domain.RoleAdmin {
			return AdminHome
		}
		return KitchenHome
	}

	switch role {
	case domain.RoleAdmin:
		return returnTo
	case domain.RoleKitchen:
		if strings.HasPrefix(returnTo, "/admin") {
			return KitchenHome
		}
		return returnTo
	default:
		return "/"
	}
}
