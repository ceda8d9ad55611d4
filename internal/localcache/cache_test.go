package localcache_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

type fakeMedium struct {
	mu       sync.Mutex
	data     map[string][]byte
	loadErr  error
	storeErr error
	feed     chan localcache.Change
}

func newFakeMedium() *fakeMedium {
	return &fakeMedium{
		data: make(map[string][]byte),
		feed: make(chan localcache.Change),
	}
}

func (m *fakeMedium) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	return m.data[key], nil
}

func (m *fakeMedium) Store(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storeErr != nil {
		return m.storeErr
	}

	m.data[key] = payload

	return nil
}

func (m *fakeMedium) Watch(ctx context.Context) (<-chan localcache.Change, error) {
	out := make(chan localcache.Change)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-m.feed:
				select {
				case out <- ch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (m *fakeMedium) stored(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return string(m.data[key])
}

func openStrings(t *testing.T, hub *localcache.Hub, m localcache.Medium, key string) *localcache.Cache[[]string] {
	t.Helper()

	c, err := localcache.Open(t.Context(), hub, m, key, []string{}, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func appendValue(v string) func([]string) ([]string, bool) {
	return func(cur []string) ([]string, bool) {
		next := make([]string, 0, len(cur)+1)
		next = append(next, cur...)

		return append(next, v), true
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		loadErr error
		want    []string
	}{
		{name: "absent key yields default", want: []string{}},
		{name: "stored value is read", stored: `["a","b"]`, want: []string{"a", "b"}},
		{name: "malformed value yields default", stored: `{"not":"a list"`, want: []string{}},
		{name: "unreadable medium yields default", stored: `["a"]`, loadErr: errors.New("disk unreadable"), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMedium()
			m.loadErr = tt.loadErr
			if tt.stored != "" {
				m.data["k"] = []byte(tt.stored)
			}

			c := openStrings(t, localcache.NewHub(), m, "k")

			assert.Equal(t, tt.want, c.Get())
		})
	}
}

func TestOpen_UnreadableMediumStillWrites(t *testing.T) {
	m := newFakeMedium()
	m.loadErr = errors.New("disk unreadable")

	c := openStrings(t, localcache.NewHub(), m, "k")
	require.NoError(t, c.Update(t.Context(), appendValue("x")))

	assert.Equal(t, []string{"x"}, c.Get())
	assert.JSONEq(t, `["x"]`, m.stored("k"))
}

func TestOpen_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := localcache.Open(ctx, localcache.NewHub(), newFakeMedium(), "k", []string{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate_BroadcastsToSameKeyOnly(t *testing.T) {
	hub := localcache.NewHub()
	m := newFakeMedium()

	a := openStrings(t, hub, m, "k")
	b := openStrings(t, hub, m, "k")
	other := openStrings(t, hub, m, "other")

	require.NoError(t, a.Update(t.Context(), appendValue("x")))

	assert.Equal(t, []string{"x"}, a.Get())
	assert.Equal(t, []string{"x"}, b.Get())
	assert.Empty(t, other.Get())
	assert.JSONEq(t, `["x"]`, m.stored("k"))
}

func TestUpdate_UnchangedSkipsWrite(t *testing.T) {
	m := newFakeMedium()
	c := openStrings(t, localcache.NewHub(), m, "k")

	err := c.Update(t.Context(), func(cur []string) ([]string, bool) {
		return cur, false
	})

	require.NoError(t, err)
	assert.Empty(t, m.stored("k"))
}

func TestUpdate_PersistFailureKeepsMemory(t *testing.T) {
	hub := localcache.NewHub()
	m := newFakeMedium()
	m.storeErr = errors.New("disk full")

	a := openStrings(t, hub, m, "k")
	b := openStrings(t, hub, m, "k")

	err := a.Set(t.Context(), []string{"y"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"y"}, a.Get())
	assert.Equal(t, []string{"y"}, b.Get())
}

func TestUpdate_ConcurrentWritersNeverLoseWrites(t *testing.T) {
	hub := localcache.NewHub()
	m := newFakeMedium()

	a := openStrings(t, hub, m, "k")
	b := openStrings(t, hub, m, "k")

	const writers = 50

	var wg sync.WaitGroup

	for i := range writers {
		c := a
		if i%2 == 1 {
			c = b
		}

		wg.Go(func() {
			assert.NoError(t, c.Update(t.Context(), appendValue("v")))
		})
	}

	wg.Wait()

	assert.Len(t, a.Get(), writers)
	assert.Equal(t, a.Get(), b.Get())
}

func TestExternalChanges(t *testing.T) {
	m := newFakeMedium()
	c := openStrings(t, localcache.NewHub(), m, "k")

	m.feed <- localcache.Change{Key: "other", Payload: []byte(`["ignored"]`)}
	m.feed <- localcache.Change{Key: "k", Payload: nil}
	m.feed <- localcache.Change{Key: "k", Payload: []byte(`{broken`)}
	m.feed <- localcache.Change{Key: "k", Payload: []byte(`["remote"]`)}

	require.Eventually(t, func() bool {
		return len(c.Get()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"remote"}, c.Get())
}

func TestPersistedValueSurvivesReopen(t *testing.T) {
	m := newFakeMedium()

	first, err := localcache.Open(t.Context(), localcache.NewHub(), m, "k", []string{}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(t.Context(), []string{"kept"}))
	first.Close()

	second := openStrings(t, localcache.NewHub(), m, "k")

	assert.Equal(t, []string{"kept"}, second.Get())
}

func TestSQLiteMedium_SharesWritesAcrossProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "gastos.db")

	mediumA, err := localcache.OpenSQLiteMedium(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mediumA.Close() })

	mediumB, err := localcache.OpenSQLiteMedium(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mediumB.Close() })

	mediumA.SetPollInterval(10 * time.Millisecond)
	mediumB.SetPollInterval(10 * time.Millisecond)

	// Separate hubs stand in for separate processes.
	a := openStrings(t, localcache.NewHub(), mediumA, "gastos")
	b := openStrings(t, localcache.NewHub(), mediumB, "gastos")

	require.NoError(t, a.Update(t.Context(), appendValue("from-a")))

	require.Eventually(t, func() bool {
		return len(b.Get()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"from-a"}, b.Get())

	payload, err := mediumB.Load(t.Context(), "gastos")
	require.NoError(t, err)
	assert.JSONEq(t, `["from-a"]`, string(payload))

	missing, err := mediumB.Load(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
