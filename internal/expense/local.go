package expense

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

// DefaultCacheKey is the key the offline ledger is stored under.
const DefaultCacheKey = "gastoshogar_gastos"

// LocalBook is the offline ledger. It keeps every expense in a local cache and
// never talks to the authoritative store.
type LocalBook struct {
	cache *localcache.Cache[[]Expense]
	log   *slog.Logger
	now   func() time.Time
}

func NewLocalBook(cache *localcache.Cache[[]Expense], logger *slog.Logger) *LocalBook {
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalBook{
		cache: cache,
		log:   logger.With("component", "local_book"),
		now:   time.Now,
	}
}

// OpenLocalBook opens the cached ledger stored under key.
func OpenLocalBook(ctx context.Context, hub *localcache.Hub, medium localcache.Medium, key string, logger *slog.Logger) (*LocalBook, error) {
	cache, err := localcache.Open(ctx, hub, medium, key, []Expense{}, logger)
	if err != nil {
		return nil, err
	}

	return NewLocalBook(cache, logger), nil
}

// Snapshot returns the cached expenses, newest first.
func (b *LocalBook) Snapshot() []Expense {
	out := slices.Clone(b.cache.Get())
	if out == nil {
		out = []Expense{}
	}

	sortByDateDesc(out)

	return out
}

func (b *LocalBook) Loading() bool { return false }

func (b *LocalBook) Err() error { return nil }

// Reload is a no-op; the cache is always current.
func (b *LocalBook) Reload(context.Context) error { return nil }

// Add records a new expense with a locally generated id. A failure to persist
// the cache is logged and the expense stays in memory.
func (b *LocalBook) Add(ctx context.Context, form FormData) (*Expense, error) {
	params, err := form.Params()
	if err != nil {
		return nil, err
	}

	e := Expense{
		ID:          uuid.NewString(),
		Amount:      params.Amount,
		Category:    params.Category,
		Description: params.Description,
		Date:        params.Date,
		CreatedAt:   b.now().UTC().Truncate(time.Millisecond),
	}

	err = b.cache.Update(ctx, func(cur []Expense) ([]Expense, bool) {
		next := make([]Expense, 0, len(cur)+1)
		next = append(next, e)

		return append(next, cur...), true
	})
	if err != nil {
		b.log.Error("persisting new expense", "expense_id", e.ID, "error", err)
	}

	return &e, nil
}

func (b *LocalBook) Delete(ctx context.Context, id string) (bool, error) {
	var found bool

	err := b.cache.Update(ctx, func(cur []Expense) ([]Expense, bool) {
		idx := slices.IndexFunc(cur, func(e Expense) bool { return e.ID == id })
		if idx < 0 {
			return cur, false
		}

		found = true

		return slices.Concat(cur[:idx], cur[idx+1:]), true
	})
	if err != nil {
		b.log.Error("persisting deletion", "expense_id", id, "error", err)
	}

	return found, nil
}

func (b *LocalBook) Update(ctx context.Context, id string, form PatchForm) (bool, error) {
	patch, err := form.Patch()
	if err != nil {
		return false, err
	}

	if patch.IsEmpty() {
		return false, nil
	}

	var found bool

	err = b.cache.Update(ctx, func(cur []Expense) ([]Expense, bool) {
		idx := slices.IndexFunc(cur, func(e Expense) bool { return e.ID == id })
		if idx < 0 {
			return cur, false
		}

		found = true
		next := slices.Clone(cur)
		next[idx] = patch.Apply(next[idx])

		return next, true
	})
	if err != nil {
		b.log.Error("persisting update", "expense_id", id, "error", err)
	}

	return found, nil
}

// Close stops following other instances of the ledger.
func (b *LocalBook) Close() {
	b.cache.Close()
}
