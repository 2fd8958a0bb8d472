package features

import (
	"strings"
	"time"

	"github.com/flutterbye/platform/internal/identity"
)

// Category groups features for the admin dashboard.
type Category string

// Known feature categories.
const (
	CategoryCore       Category = "core"
	CategoryEnterprise Category = "enterprise"
	CategoryConsumer   Category = "consumer"
	CategoryAI         Category = "ai"
	CategorySocial     Category = "social"
	CategoryAdmin      Category = "admin"
)

// Feature is a named, admin-toggleable gate controlling reachability of
// routes, API endpoints, and navigation items.
type Feature struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Enabled     bool     `json:"enabled"`
	// RequiredRole is nil when the feature is open to any caller, anonymous
	// included.
	RequiredRole *identity.Role `json:"requiredRole,omitempty"`
	Routes       []string       `json:"routes,omitempty"`
	APIEndpoints []string       `json:"apiEndpoints,omitempty"`
	NavItems     []string       `json:"navItems,omitempty"`
	LastUpdated  time.Time      `json:"lastUpdated"`
	UpdatedBy    string         `json:"updatedBy,omitempty"`
}

// Governs reports whether any of the feature's route or endpoint patterns
// matches the path.
func (f *Feature) Governs(path string) bool {
	for _, p := range f.Routes {
		if matchPattern(p, path) {
			return true
		}
	}
	for _, p := range f.APIEndpoints {
		if matchPattern(p, path) {
			return true
		}
	}
	return false
}

// GovernsTopic reports whether the feature gates a realtime topic, matched
// against nav item ids and the feature id itself.
func (f *Feature) GovernsTopic(topic string) bool {
	if topic == f.ID {
		return true
	}
	for _, n := range f.NavItems {
		if n == topic {
			return true
		}
	}
	return false
}

func (f *Feature) clone() *Feature {
	dup := *f
	if f.RequiredRole != nil {
		role := *f.RequiredRole
		dup.RequiredRole = &role
	}
	dup.Routes = append([]string(nil), f.Routes...)
	dup.APIEndpoints = append([]string(nil), f.APIEndpoints...)
	dup.NavItems = append([]string(nil), f.NavItems...)
	return &dup
}

// matchPattern matches a path against a glob. Patterns are case-sensitive
// and support a single trailing wildcard; everything else is an exact match.
func matchPattern(pattern, path string) bool {
	if suffix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, suffix)
	}
	return pattern == path
}
