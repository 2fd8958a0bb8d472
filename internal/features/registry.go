package features

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

// ErrDuplicate indicates a feature id that already exists.
var ErrDuplicate = errors.New("features: duplicate id")

// Registry is the server-side source of truth for feature gates. Reads hit an
// atomically swapped snapshot; mutations serialize on a mutex, write through
// the repository, then publish a rebuilt snapshot, so a toggle takes effect on
// the next check everywhere at once.
type Registry struct {
	repo   Repository
	logger *slog.Logger
	onSwap func()

	mu   sync.Mutex
	snap atomic.Pointer[regSnapshot]
	now  func() time.Time
}

type regSnapshot struct {
	ordered []*Feature
	byID    map[string]*Feature
}

// NewRegistry constructs a Registry backed by the given repository. onSwap,
// when non-nil, runs after every snapshot publish; the router uses it to
// invalidate the navigation cache.
func NewRegistry(repo Repository, logger *slog.Logger, onSwap func()) *Registry {
	r := &Registry{repo: repo, logger: logger, onSwap: onSwap, now: time.Now}
	r.snap.Store(&regSnapshot{byID: map[string]*Feature{}})
	return r
}

// Load replaces the snapshot with the persisted feature set, preserving
// insertion order.
func (r *Registry) Load(ctx context.Context) error {
	list, err := r.repo.List(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked(list)
	return nil
}

// IsEnabled reports whether the feature exists and is enabled. Unknown ids
// are disabled.
func (r *Registry) IsEnabled(featureID string) bool {
	f, ok := r.snap.Load().byID[featureID]
	return ok && f.Enabled
}

// Get returns the feature by id.
func (r *Registry) Get(featureID string) (*Feature, bool) {
	f, ok := r.snap.Load().byID[featureID]
	return f, ok
}

// List returns all features in insertion order.
func (r *Registry) List() []*Feature {
	return r.snap.Load().ordered
}

// Governing returns every feature whose route or endpoint patterns match the
// path. An empty result means the path is unmanaged.
func (r *Registry) Governing(path string) []*Feature {
	var out []*Feature
	for _, f := range r.snap.Load().ordered {
		if f.Governs(path) {
			out = append(out, f)
		}
	}
	return out
}

// GoverningTopic returns every feature gating a realtime topic.
func (r *Registry) GoverningTopic(topic string) []*Feature {
	var out []*Feature
	for _, f := range r.snap.Load().ordered {
		if f.GovernsTopic(topic) {
			out = append(out, f)
		}
	}
	return out
}

// ResolveRouteAccess reports whether a path is reachable for the given role.
// Unmanaged paths are open; governed paths require every governing feature to
// be enabled and its role requirement met (conjunction).
func (r *Registry) ResolveRouteAccess(path string, role identity.Role) bool {
	for _, f := range r.Governing(path) {
		if !f.Enabled {
			return false
		}
		if f.RequiredRole != nil && !role.AtLeast(*f.RequiredRole) {
			return false
		}
	}
	return true
}

// Navigation returns the nav item ids and routes belonging to enabled
// features, deduplicated in insertion order.
func (r *Registry) Navigation() (navItems, routes []string) {
	seenNav := map[string]struct{}{}
	seenRoute := map[string]struct{}{}
	navItems = []string{}
	routes = []string{}
	for _, f := range r.snap.Load().ordered {
		if !f.Enabled {
			continue
		}
		for _, n := range f.NavItems {
			if _, ok := seenNav[n]; !ok {
				seenNav[n] = struct{}{}
				navItems = append(navItems, n)
			}
		}
		for _, route := range f.Routes {
			if _, ok := seenRoute[route]; !ok {
				seenRoute[route] = struct{}{}
				routes = append(routes, route)
			}
		}
	}
	return navItems, routes
}

// Stats summarizes the registry for the admin dashboard.
type Stats struct {
	Total      int                       `json:"total"`
	Enabled    int                       `json:"enabled"`
	Disabled   int                       `json:"disabled"`
	ByCategory map[Category]CategoryStat `json:"byCategory"`
}

// CategoryStat counts features inside one category.
type CategoryStat struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

// Stats computes registry statistics.
func (r *Registry) Stats() Stats {
	stats := Stats{ByCategory: map[Category]CategoryStat{}}
	for _, f := range r.snap.Load().ordered {
		stats.Total++
		cs := stats.ByCategory[f.Category]
		cs.Total++
		if f.Enabled {
			stats.Enabled++
			cs.Enabled++
		}
		stats.ByCategory[f.Category] = cs
	}
	stats.Disabled = stats.Total - stats.Enabled
	return stats
}

// Create inserts a new feature.
func (r *Registry) Create(ctx context.Context, f *Feature, updatedBy string) (*Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snap.Load().byID[f.ID]; exists {
		return nil, ErrDuplicate
	}
	created := f.clone()
	created.LastUpdated = r.now().UTC()
	created.UpdatedBy = updatedBy
	if err := r.repo.Upsert(ctx, created); err != nil {
		return nil, err
	}
	list := append(append([]*Feature(nil), r.snap.Load().ordered...), created)
	r.publishLocked(list)
	return created, nil
}

// Update applies a partial update to an existing feature. The id never changes.
func (r *Registry) Update(ctx context.Context, featureID string, apply func(*Feature), updatedBy string) (*Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.snap.Load().byID[featureID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	updated := current.clone()
	apply(updated)
	updated.ID = featureID
	updated.LastUpdated = r.now().UTC()
	updated.UpdatedBy = updatedBy
	if err := r.repo.Upsert(ctx, updated); err != nil {
		return nil, err
	}
	r.publishLocked(r.replaceLocked(updated))
	return updated, nil
}

// SetEnabled flips one feature.
func (r *Registry) SetEnabled(ctx context.Context, featureID string, enabled bool, updatedBy string) (*Feature, error) {
	f, err := r.Update(ctx, featureID, func(f *Feature) { f.Enabled = enabled }, updatedBy)
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Info("feature toggled",
			slog.String("feature", featureID),
			slog.Bool("enabled", enabled),
			slog.String("by", updatedBy))
	}
	return f, nil
}

// BulkSetEnabled flips several features, returning how many were found.
func (r *Registry) BulkSetEnabled(ctx context.Context, updates map[string]bool, updatedBy string) (int, error) {
	applied := 0
	for id, enabled := range updates {
		if _, err := r.SetEnabled(ctx, id, enabled, updatedBy); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Delete removes a feature.
func (r *Registry) Delete(ctx context.Context, featureID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snap.Load().byID[featureID]; !ok {
		return shared.ErrNotFound
	}
	if err := r.repo.Delete(ctx, featureID); err != nil {
		return err
	}
	var list []*Feature
	for _, f := range r.snap.Load().ordered {
		if f.ID != featureID {
			list = append(list, f)
		}
	}
	r.publishLocked(list)
	return nil
}

// replaceLocked returns the ordered list with one feature swapped in place.
func (r *Registry) replaceLocked(updated *Feature) []*Feature {
	prev := r.snap.Load().ordered
	list := make([]*Feature, len(prev))
	for i, f := range prev {
		if f.ID == updated.ID {
			list[i] = updated
		} else {
			list[i] = f
		}
	}
	return list
}

func (r *Registry) publishLocked(list []*Feature) {
	byID := make(map[string]*Feature, len(list))
	for _, f := range list {
		byID[f.ID] = f
	}
	r.snap.Store(&regSnapshot{ordered: list, byID: byID})
	if r.onSwap != nil {
		r.onSwap()
	}
}
