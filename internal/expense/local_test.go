package expense_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

type memMedium struct {
	mu       sync.Mutex
	data     map[string][]byte
	storeErr error
}

func (m *memMedium) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data[key], nil
}

func (m *memMedium) Store(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storeErr != nil {
		return m.storeErr
	}

	m.data[key] = payload

	return nil
}

func (m *memMedium) Watch(ctx context.Context) (<-chan localcache.Change, error) {
	out := make(chan localcache.Change)

	go func() {
		<-ctx.Done()
		close(out)
	}()

	return out, nil
}

func openBook(t *testing.T, hub *localcache.Hub, m localcache.Medium) *expense.LocalBook {
	t.Helper()

	b, err := expense.OpenLocalBook(t.Context(), hub, m, expense.DefaultCacheKey, nil)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	return b
}

func TestLocalBook_AddDeleteUpdate(t *testing.T) {
	m := &memMedium{data: map[string][]byte{}}
	b := openBook(t, localcache.NewHub(), m)

	first, err := b.Add(t.Context(), form("100", expense.CategorySupermarket, "2024-01-05"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := b.Add(t.Context(), form("50", expense.CategorySupermarket, "2024-01-10"))
	require.NoError(t, err)

	assert.Equal(t, []string{second.ID, first.ID}, ids(b.Snapshot()))
	assert.Equal(t, "150", expense.Summarize(b.Snapshot(), "2024-01").Total.String())

	desc := "feria"
	ok, err := b.Update(t.Context(), first.ID, expense.PatchForm{Description: &desc})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Update(t.Context(), "missing", expense.PatchForm{Description: &desc})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Delete(t.Context(), second.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Delete(t.Context(), second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "feria", snap[0].Description)
}

func TestLocalBook_SharesStateAcrossInstances(t *testing.T) {
	hub := localcache.NewHub()
	m := &memMedium{data: map[string][]byte{}}

	a := openBook(t, hub, m)
	b := openBook(t, hub, m)

	created, err := a.Add(t.Context(), form("10", expense.CategoryCoffee, "2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, []string{created.ID}, ids(b.Snapshot()))

	reopened := openBook(t, localcache.NewHub(), m)
	assert.Equal(t, []string{created.ID}, ids(reopened.Snapshot()))
}

func TestLocalBook_ReadsLegacyPayload(t *testing.T) {
	m := &memMedium{data: map[string][]byte{
		expense.DefaultCacheKey: []byte(`[
			{"id":"1704067200000-abc1234","amount":2500,"category":"Alquiler","date":"2024-01-01","createdAt":1704067200000},
			{"id":"1706745600000-def5678","amount":"120.5","category":"Farmacia","description":"remedios","date":"2024-02-01","createdAt":1706745600000,"legacy":1}
		]`),
	}}

	b := openBook(t, localcache.NewHub(), m)

	assert.Equal(t, []string{"1706745600000-def5678", "1704067200000-abc1234"}, ids(b.Snapshot()))
	assert.Equal(t, []string{"2024-02", "2024-01"}, expense.AvailableMonths(b.Snapshot()))
}

func TestLocalBook_MalformedPayloadFallsBackToEmpty(t *testing.T) {
	m := &memMedium{data: map[string][]byte{
		expense.DefaultCacheKey: []byte(`[{"id":"x","amount":10,"category":"Viajes","date":"2024-01-01","createdAt":0}]`),
	}}

	b := openBook(t, localcache.NewHub(), m)

	assert.Empty(t, b.Snapshot())
	assert.NoError(t, b.Err())
}

func TestLocalBook_PersistFailureKeepsExpenseInMemory(t *testing.T) {
	m := &memMedium{data: map[string][]byte{}, storeErr: errors.New("quota exceeded")}
	b := openBook(t, localcache.NewHub(), m)

	created, err := b.Add(t.Context(), form("10", expense.CategoryCoffee, "2024-02-01"))

	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(b.Snapshot()))
}

func TestLocalBook_RejectsInvalidForm(t *testing.T) {
	b := openBook(t, localcache.NewHub(), &memMedium{data: map[string][]byte{}})

	_, err := b.Add(t.Context(), form("10", "Viajes", "2024-02-01"))

	assert.ErrorIs(t, err, expense.ErrInvalidCategory)
	assert.Empty(t, b.Snapshot())
}
