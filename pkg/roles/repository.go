// Package roles serves the roles of a policy source, reloading them when
// the cache expires.
package roles

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/mmcdole/olapsec/pkg/policy"
)

var (
	// ErrRoleNotFound is returned for a role name the policy does not define
	ErrRoleNotFound = errors.New("role not found")

	// ErrNoRoles is returned when a principal has no roles and the policy
	// has no default role
	ErrNoRoles = errors.New("no roles")
)

const unionCacheSize = 256

// Repository provides cached access to the roles of a policy
type Repository struct {
	source        policy.Source
	catalog       *olap.Catalog
	options       policy.Options
	cacheDuration time.Duration

	mu          sync.RWMutex
	policy      *policy.Policy
	unions      *lru.Cache[string, *access.Union]
	lastRefresh time.Time
}

// NewRepository loads the policy from source and returns a repository
// that reloads it once cacheDuration has passed
func NewRepository(source policy.Source, catalog *olap.Catalog, cacheDuration time.Duration, options policy.Options) (*Repository, error) {
	r := &Repository{
		source:        source,
		catalog:       catalog,
		options:       options,
		cacheDuration: cacheDuration,
	}

	if err := r.Refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh reloads the policy from the source
func (r *Repository) Refresh() error {
	raw, err := r.source.LoadRawData()
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}
	p, err := policy.Build(raw, r.catalog, r.options)
	if err != nil {
		return fmt.Errorf("building policy: %w", err)
	}
	unions, err := lru.New[string, *access.Union](unionCacheSize)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.policy = p
	r.unions = unions
	r.lastRefresh = time.Now()
	logging.App.Debug("Loaded policy", "roles", len(p.RoleNames()))
	return nil
}

// current returns the policy, reloading it first if it has expired. A
// failed reload keeps serving the previous policy until the next expiry.
func (r *Repository) current() (*policy.Policy, *lru.Cache[string, *access.Union]) {
	r.mu.RLock()
	needsRefresh := time.Since(r.lastRefresh) >= r.cacheDuration
	r.mu.RUnlock()

	if needsRefresh {
		if err := r.Refresh(); err != nil {
			logging.App.Warn("Failed to refresh policy", "error", err)
			r.mu.Lock()
			r.lastRefresh = time.Now()
			r.mu.Unlock()
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy, r.unions
}

// RoleNames returns the names of every role
func (r *Repository) RoleNames() []string {
	p, _ := r.current()
	return p.RoleNames()
}

// Role returns the named role
func (r *Repository) Role(name string) (*access.Role, error) {
	p, _ := r.current()
	role, ok := p.Role(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	return role, nil
}

// Resolve returns the named role, or the union of several roles
func (r *Repository) Resolve(names ...string) (access.Authorizer, error) {
	p, unions := r.current()

	names = slices.Compact(slices.Sorted(slices.Values(names)))
	if len(names) == 0 {
		return nil, ErrNoRoles
	}

	roles := make([]access.Authorizer, 0, len(names))
	for _, name := range names {
		role, ok := p.Role(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
		}
		roles = append(roles, role)
	}
	if len(roles) == 1 {
		return roles[0], nil
	}

	key := strings.Join(names, "\x00")
	if u, ok := unions.Get(key); ok {
		return u, nil
	}
	u := access.NewUnion(roles...)
	unions.Add(key, u)
	logging.App.Debug("Built role union", "roles", strings.Join(names, ","))
	return u, nil
}

// ResolvePrincipal returns the roles assigned to user, falling back to the
// policy's default role
func (r *Repository) ResolvePrincipal(user string) (access.Authorizer, error) {
	p, _ := r.current()

	names := p.UserRoles(user)
	if len(names) == 0 {
		if p.DefaultRole() == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRoles, user)
		}
		names = []string{p.DefaultRole()}
	}
	return r.Resolve(names...)
}
