package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type permissionKey struct {
	subject    uuid.UUID
	permission string
}

type permissionEntry struct {
	allowed bool
	expires time.Time
}

// PermissionCache memoizes permission lookups for a limited time so hot-path
// checks do not hit the permission store on every packet.
type PermissionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[permissionKey]permissionEntry
}

// NewPermissionCache creates a cache whose entries expire after ttl.
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[permissionKey]permissionEntry),
	}
}

// Get returns the cached decision. ok is false when absent or expired.
func (c *PermissionCache) Get(subject uuid.UUID, permission string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[permissionKey{subject, permission}]
	if !found || !c.now().Before(e.expires) {
		return false, false
	}
	return e.allowed, true
}

// Set stores a decision.
func (c *PermissionCache) Set(subject uuid.UUID, permission string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[permissionKey{subject, permission}] = permissionEntry{
		allowed: allowed,
		expires: c.now().Add(c.ttl),
	}
}

// Invalidate drops every decision cached for subject.
func (c *PermissionCache) Invalidate(subject uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.subject == subject {
			delete(c.entries, k)
		}
	}
}

func (c *PermissionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[permissionKey]permissionEntry)
}
