package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

// slowStore simulates latency to provoke races if locking is missing.
type slowStore struct {
	mu   sync.Mutex
	data map[string]*domain.BookingState
}

func (s *slowStore) Save(ctx context.Context, sessionID string, state *domain.BookingState) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.BookingState)
	}
	s.data[sessionID] = state.Clone()
	return nil
}

func (s *slowStore) Load(ctx context.Context, sessionID string) (*domain.BookingState, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.data[sessionID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *slowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *slowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out, nil
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "acme:call-42", session.SessionID("acme", "call-42"))
}

func TestManager_LoadOrStart(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	state, err := m.LoadOrStart(ctx, "acme:call-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "acme:call-1", state.SessionID)

	// The fresh session is persisted immediately.
	loaded, err := m.Load(ctx, "acme:call-1")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
}

func TestManager_LoadMissing(t *testing.T) {
	m := session.NewManager(memory.NewStore())

	_, err := m.Load(context.Background(), "acme:nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_SaveAndDelete(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	state := domain.NewBookingState("acme:call-2")
	state.Slots[domain.KeyName] = domain.Slot{Value: "Maria Garcia", Confidence: 0.9}
	require.NoError(t, m.Save(ctx, "acme:call-2", state))

	loaded, err := m.Load(ctx, "acme:call-2")
	require.NoError(t, err)
	assert.Equal(t, "Maria Garcia", loaded.Slots[domain.KeyName].Value)

	require.NoError(t, m.Delete(ctx, "acme:call-2"))
	_, err = m.Load(ctx, "acme:call-2")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_List(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := m.LoadOrStart(ctx, "a:1")
	require.NoError(t, err)
	_, err = m.LoadOrStart(ctx, "b:2")
	require.NoError(t, err)

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a:1", "b:2"}, ids)
}

func TestManager_WithLockSerializesTurns(t *testing.T) {
	store := &slowStore{}
	m := session.NewManager(store)
	ctx := context.Background()

	const sessionID = "acme:busy"
	_, err := m.LoadOrStart(ctx, sessionID)
	require.NoError(t, err)

	// Each worker does a read-modify-write of the turn counter. Without
	// the per-session lock the increments would race and some would be
	// lost.
	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
				state, err := store.Load(ctx, sessionID)
				if err != nil {
					return err
				}
				state.Turn++
				return store.Save(ctx, sessionID, state)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := m.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, workers, state.Turn)
}

func TestManager_IndependentSessionsDoNotBlock(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = m.WithLock(ctx, "a:1", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = m.WithLock(ctx, "b:2", func(ctx context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated session blocked by another session's lock")
	}
	close(release)
}
