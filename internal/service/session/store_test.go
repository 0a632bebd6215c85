package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = clock.now
	return s, clock
}

func TestStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(time.Minute)
	sess := s.Create()
	require.NotEmpty(t, sess.ID)

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ExpiresAndSlides(t *testing.T) {
	t.Parallel()

	s, clock := newTestStore(10 * time.Minute)
	sess := s.Create()

	clock.t = clock.t.Add(8 * time.Minute)
	_, ok := s.Get(sess.ID)
	require.True(t, ok, "access extends the deadline")

	clock.t = clock.t.Add(8 * time.Minute)
	_, ok = s.Get(sess.ID)
	require.True(t, ok)

	clock.t = clock.t.Add(11 * time.Minute)
	_, ok = s.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_GetOrCreate(t *testing.T) {
	t.Parallel()

	s, clock := newTestStore(time.Minute)

	first, created := s.GetOrCreate("")
	assert.True(t, created)

	again, created := s.GetOrCreate(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)

	clock.t = clock.t.Add(2 * time.Minute)
	fresh, created := s.GetOrCreate(first.ID)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fresh.ID)

	s.Delete(fresh.ID)
	assert.Equal(t, 0, s.Len())
}

func TestNewStore_DefaultTTL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultTTL, NewStore(0).ttl)
}
