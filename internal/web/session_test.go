package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(idle time.Duration, max int) (*SessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	st := NewSessionStore(idle, max)
	st.now = clock.now
	return st, clock
}

func TestSessionStore_CreateGetDelete(t *testing.T) {
	st, _ := newClockedStore(time.Minute, 0)

	s, err := st.Create(combo.NewEngine(menuCombo()), catalog.Options{BranchID: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 3, got.Options.BranchID)

	assert.True(t, st.Delete(s.ID))
	assert.False(t, st.Delete(s.ID))
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_IdleExpiry(t *testing.T) {
	st, clock := newClockedStore(time.Minute, 0)

	active, _ := st.Create(combo.NewEngine(menuCombo()), catalog.Options{})
	idle, _ := st.Create(combo.NewEngine(menuCombo()), catalog.Options{})

	clock.advance(40 * time.Second)
	_, err := st.Get(active.ID)
	require.NoError(t, err, "touching a session keeps it alive")

	clock.advance(40 * time.Second)
	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 1, st.Len())

	_, err = st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clock.advance(2 * time.Minute)
	_, err = st.Get(active.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "expired on access before a sweep")
	assert.Equal(t, 0, st.Len())
}

func TestSessionStore_Max(t *testing.T) {
	st, _ := newClockedStore(0, 2)

	for i := 0; i < 2; i++ {
		_, err := st.Create(combo.NewEngine(menuCombo()), catalog.Options{})
		require.NoError(t, err)
	}
	_, err := st.Create(combo.NewEngine(menuCombo()), catalog.Options{})
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestSession_DoSerializesEngineAccess(t *testing.T) {
	st := NewSessionStore(time.Minute, 0)
	s, err := st.Create(combo.NewEngine(menuCombo()), catalog.Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "FRIES"
			if i%2 == 0 {
				key = "RINGS"
			}
			s.Do(func(e *combo.Engine) error {
				_, err := e.SetQuantity("sides", key, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	s.Do(func(e *combo.Engine) error {
		assert.Equal(t, 2, e.Selections().Total("sides"))
		return nil
	})
}

func TestSessionStore_RunSweeperStops(t *testing.T) {
	st := NewSessionStore(time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not return after cancel")
	}
}
