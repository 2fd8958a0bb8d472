// Package authz composes the identity store and the feature registry into a
// single allow/deny decision for one action.
package authz

import (
	"github.com/flutterbye/platform/internal/features"
	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

// Verdict is the outcome of one gate check. Reason is nil when allowed and
// one of the authorization sentinels otherwise.
type Verdict struct {
	Allowed bool
	Reason  error
}

var allowed = Verdict{Allowed: true}

func denied(reason error) Verdict {
	return Verdict{Reason: reason}
}

// Gate decides whether an actor may reach a target. It holds no state of its
// own and produces identical verdicts for identical inputs until the store or
// registry changes.
type Gate struct {
	store    *identity.Store
	registry *features.Registry
}

// NewGate constructs a Gate.
func NewGate(store *identity.Store, registry *features.Registry) *Gate {
	return &Gate{store: store, registry: registry}
}

// CheckRoute evaluates an HTTP path for the actor. A nil actor is an
// anonymous caller.
func (g *Gate) CheckRoute(actor *identity.Identity, path string) Verdict {
	return g.evaluate(actor, g.registry.Governing(path))
}

// CheckTopic evaluates a realtime topic for the actor.
func (g *Gate) CheckTopic(actor *identity.Identity, topic string) Verdict {
	return g.evaluate(actor, g.registry.GoverningTopic(topic))
}

// HasPermission defers to the identity store's permission model.
func (g *Gate) HasPermission(actor *identity.Identity, perm string) bool {
	return g.store.HasPermission(actor, perm)
}

// evaluate applies the conjunction rule: a governed target is reachable only
// when every governing feature is enabled and its role requirement is met.
// Ungoverned targets are open.
func (g *Gate) evaluate(actor *identity.Identity, governing []*features.Feature) Verdict {
	if len(governing) == 0 {
		return allowed
	}
	for _, f := range governing {
		if f.RequiredRole != nil && actor == nil {
			return denied(shared.ErrUnauthenticated)
		}
	}
	for _, f := range governing {
		if !f.Enabled {
			return denied(shared.ErrFeatureDisabled)
		}
	}
	role := identity.RoleGuest
	if actor != nil {
		role = actor.Role
	}
	for _, f := range governing {
		if f.RequiredRole != nil && !role.AtLeast(*f.RequiredRole) {
			return denied(shared.ErrInsufficientRole)
		}
	}
	return allowed
}
