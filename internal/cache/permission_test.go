package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPermissionCache(ttl time.Duration) (*PermissionCache, *time.Time) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewPermissionCache(ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestPermissionCache_SetAndGet(t *testing.T) {
	c, _ := newTestPermissionCache(time.Minute)
	subject := uuid.New()

	c.Set(subject, "AntiHealthIndicator.Bypass", true)

	allowed, ok := c.Get(subject, "AntiHealthIndicator.Bypass")
	require.True(t, ok, "expected cached decision")
	assert.True(t, allowed)

	_, ok = c.Get(subject, "other.permission")
	assert.False(t, ok)
}

func TestPermissionCache_Expires(t *testing.T) {
	c, now := newTestPermissionCache(30 * time.Second)
	subject := uuid.New()

	c.Set(subject, "perm", false)
	*now = now.Add(29 * time.Second)
	_, ok := c.Get(subject, "perm")
	assert.True(t, ok, "entry should still be live before ttl")

	*now = now.Add(time.Second)
	_, ok = c.Get(subject, "perm")
	assert.False(t, ok, "entry should expire at ttl")
}

func TestPermissionCache_Invalidate(t *testing.T) {
	c, _ := newTestPermissionCache(time.Minute)
	a, b := uuid.New(), uuid.New()

	c.Set(a, "perm.one", true)
	c.Set(a, "perm.two", true)
	c.Set(b, "perm.one", true)

	c.Invalidate(a)

	_, ok := c.Get(a, "perm.one")
	assert.False(t, ok)
	_, ok = c.Get(a, "perm.two")
	assert.False(t, ok)
	_, ok = c.Get(b, "perm.one")
	assert.True(t, ok, "other subjects must survive invalidation")
}

func TestPermissionCache_Reset(t *testing.T) {
	c, _ := newTestPermissionCache(time.Minute)
	subject := uuid.New()
	c.Set(subject, "perm", true)

	c.Reset()

	_, ok := c.Get(subject, "perm")
	assert.False(t, ok)
}

func TestPermissionCache_ConcurrentReadWrite(t *testing.T) {
	c := NewPermissionCache(time.Minute)
	subject := uuid.New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			c.Set(subject, "perm", i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			c.Get(subject, "perm")
		}()
		go func() {
			defer wg.Done()
			c.Invalidate(subject)
		}()
	}
	wg.Wait()
}
