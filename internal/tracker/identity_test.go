package tracker

import (
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryStorageExpiry(t *testing.T) {
	clock := newClock()
	store := NewMemoryStorage(clock.Now)

	store.Set("k", "v", time.Minute)
	v, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(time.Minute - time.Nanosecond)
	_, ok = store.Get("k")
	assert.True(t, ok, "still present just before the expiry instant")

	// Expired at exactly set time + ttl.
	clock.Advance(time.Nanosecond)
	_, ok = store.Get("k")
	assert.False(t, ok)

	store.Set("k", "v", 0)
	_, ok = store.Get("k")
	assert.False(t, ok)
}

func TestVisitorIDIsStable(t *testing.T) {
	clock := newClock()
	identity := NewIdentity(NewMemoryStorage(clock.Now))

	first := identity.VisitorID()
	_, err := uuid.Parse(first)
	require.NoError(t, err)

	clock.Advance(200 * 24 * time.Hour)
	assert.Equal(t, first, identity.VisitorID())

	clock.Advance(VisitorTTL)
	assert.NotEqual(t, first, identity.VisitorID())
}

func TestSessionIDFormat(t *testing.T) {
	identity := NewIdentity(NewMemoryStorage(nil))

	id := identity.SessionID()
	require.True(t, strings.HasPrefix(id, "s"))
	_, err := uuid.Parse(strings.TrimPrefix(id, "s"))
	assert.NoError(t, err)
	assert.Equal(t, id, identity.SessionID())
}

func TestSessionExpiresWithoutRefresh(t *testing.T) {
	clock := newClock()
	identity := NewIdentity(NewMemoryStorage(clock.Now))

	first := identity.SessionID()
	clock.Advance(29 * time.Minute)
	assert.Equal(t, first, identity.SessionID())

	clock.Advance(time.Minute)
	assert.NotEqual(t, first, identity.SessionID())
}

func TestRefreshSessionSlidesWindow(t *testing.T) {
	clock := newClock()
	identity := NewIdentity(NewMemoryStorage(clock.Now))

	first := identity.SessionID()
	for i := 0; i < 4; i++ {
		clock.Advance(20 * time.Minute)
		identity.RefreshSession()
	}
	assert.Equal(t, first, identity.SessionID())
}

func TestNavigatorPolicies(t *testing.T) {
	parse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	pathOnly := NewNavigator(PathOnly)
	pathOnly.Reset(parse("https://example.com/a"))
	assert.False(t, pathOnly.Changed(parse("https://example.com/a?tab=2")))
	assert.False(t, pathOnly.Changed(parse("https://example.com/a#section")))
	assert.True(t, pathOnly.Changed(parse("https://example.com/b")))
	assert.False(t, pathOnly.Changed(parse("https://example.com/b")))

	withQuery := NewNavigator(PathAndQuery)
	withQuery.Reset(parse("https://example.com/a"))
	assert.True(t, withQuery.Changed(parse("https://example.com/a?tab=2")))
	assert.False(t, withQuery.Changed(parse("https://example.com/a?tab=2#x")))
}
