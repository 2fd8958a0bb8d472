package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flutterbye/platform/internal/shared"
)

// Store is the process-wide mapping from wallet address to identity metadata.
// Reads go through an atomically swapped snapshot so permission checks never
// block behind a writer; mutations serialize on a mutex, write through the
// repository, then publish a fresh snapshot.
type Store struct {
	repo   Repository
	logger *slog.Logger

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	byWallet map[string]*Identity
}

// NewStore constructs a Store backed by the given repository.
func NewStore(repo Repository, logger *slog.Logger) *Store {
	s := &Store{repo: repo, logger: logger}
	s.snap.Store(&snapshot{byWallet: map[string]*Identity{}})
	return s
}

// Warm preloads all persisted identities into the snapshot.
func (s *Store) Warm(ctx context.Context) error {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := map[string]*Identity{}
	for _, id := range ids {
		next[id.WalletAddress] = id.clone()
	}
	s.snap.Store(&snapshot{byWallet: next})
	return nil
}

// Resolve maps a wallet address to its identity, falling back to the
// repository on a snapshot miss. Unknown wallets are ErrUnauthenticated.
func (s *Store) Resolve(ctx context.Context, wallet string) (*Identity, error) {
	if wallet == "" {
		return nil, shared.ErrUnauthenticated
	}
	if id, ok := s.snap.Load().byWallet[wallet]; ok {
		return id, nil
	}
	id, err := s.repo.GetByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	s.publish(id)
	return id, nil
}

// HasPermission reports whether the identity holds perm, either explicitly
// or implied by its role. A super_admin passes every check.
func (s *Store) HasPermission(id *Identity, perm string) bool {
	if id == nil {
		return false
	}
	if id.Role == RoleSuperAdmin {
		return true
	}
	if id.Role.Implies(perm) {
		return true
	}
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// RecordAuth looks up or creates the identity for a wallet after a successful
// signature verification and stamps its last-auth time.
func (s *Store) RecordAuth(ctx context.Context, wallet string, now time.Time) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.repo.GetByWallet(ctx, wallet)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		id = &Identity{
			WalletAddress: wallet,
			Role:          RoleUser,
			CreatedAt:     now,
			LastAuthAt:    now,
		}
	case err != nil:
		return nil, err
	default:
		id = id.clone()
		id.LastAuthAt = now
	}
	if err := s.repo.Upsert(ctx, id); err != nil {
		return nil, err
	}
	s.publishLocked(id)
	return id, nil
}

// SetRole replaces the role and explicit permissions for a wallet. Caller is
// responsible for enforcing that only a super_admin reaches this path.
func (s *Store) SetRole(ctx context.Context, wallet string, role Role, permissions []string) (*Identity, error) {
	if !role.Valid() {
		return nil, errors.New("identity: unknown role")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.repo.UpdateRole(ctx, wallet, role, permissions)
	if err != nil {
		return nil, err
	}
	s.publishLocked(id)
	if s.logger != nil {
		s.logger.Info("identity role updated",
			slog.String("wallet", wallet),
			slog.String("role", string(role)))
	}
	return id, nil
}

func (s *Store) publish(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(id)
}

// publishLocked swaps in a snapshot containing the updated identity. Must be
// called with mu held.
func (s *Store) publishLocked(id *Identity) {
	prev := s.snap.Load()
	next := make(map[string]*Identity, len(prev.byWallet)+1)
	for k, v := range prev.byWallet {
		next[k] = v
	}
	next[id.WalletAddress] = id.clone()
	s.snap.Store(&snapshot{byWallet: next})
}
