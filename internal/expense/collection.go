package expense

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a Collection.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}

	return "unknown"
}

var errFeedClosed = errors.New("change feed closed")

// Collection holds the expenses of one household, loaded from the authoritative
// store and kept current by its change feed.
//
// Add and Delete reload the whole collection once the store confirms the write,
// so the caller reads its own write in the store's canonical form. Update does
// not reload; the change feed delivers the new row. Both paths are observable
// and intentional.
//
// Every scope change bumps a generation counter. Events and load results carry
// the generation they were started under and are dropped once it is stale, and
// each load is also stamped with a sequence number so only the latest one lands.
// Events applied while a load is in flight are kept and replayed over its result,
// so a fetch that started before them cannot undo them.
type Collection struct {
	repo   Repository
	userID string
	log    *slog.Logger

	mu           sync.Mutex
	scope        string
	gen          uint64
	loadSeq      uint64
	inflight     int
	pending      []Event
	state        State
	err          error
	subErr       error
	expenses     []Expense
	sub          *subscriptionHandle
	resubscribed bool
}

// NewCollection returns an idle collection. userID is recorded as the author of
// expenses added through it.
func NewCollection(repo Repository, userID string, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}

	return &Collection{
		repo:   repo,
		userID: userID,
		log:    logger.With("component", "expense_collection"),
	}
}

type subscriptionHandle struct {
	sub      Subscription
	events   <-chan Event
	cancel   context.CancelFunc
	once     sync.Once
	canceled atomic.Bool
	done     chan struct{}
}

// Cancel tears the subscription down. It is safe to call more than once.
func (h *subscriptionHandle) Cancel() {
	h.once.Do(func() {
		h.canceled.Store(true)
		h.cancel()
		_ = h.sub.Close()
	})
}

// SetScope points the collection at a household. An empty householdID yields an
// empty, ready collection without touching the store. Selecting the current
// scope again is a no-op.
func (c *Collection) SetScope(ctx context.Context, householdID string) error {
	c.mu.Lock()
	if householdID == c.scope && c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}

	old := c.sub
	c.sub = nil
	c.gen++
	gen := c.gen
	c.scope = householdID
	c.expenses = nil
	c.err = nil
	c.subErr = nil
	c.resubscribed = false

	c.state = StateLoading
	if householdID == "" {
		c.state = StateReady
	}
	c.mu.Unlock()

	if old != nil {
		old.Cancel()
	}

	if householdID == "" {
		return nil
	}

	// A failed feed degrades to reload on demand; the error stays visible via Err.
	c.subscribe(ctx, householdID, gen, 2)

	return c.load(ctx, householdID, gen)
}

// Reload fetches the full collection again.
func (c *Collection) Reload(ctx context.Context) error {
	c.mu.Lock()
	scope, gen := c.scope, c.gen
	c.mu.Unlock()

	if scope == "" {
		return nil
	}

	return c.load(ctx, scope, gen)
}

func (c *Collection) load(ctx context.Context, scope string, gen uint64) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}

	c.loadSeq++
	seq := c.loadSeq
	c.state = StateLoading
	c.inflight++
	mark := len(c.pending)
	c.mu.Unlock()

	expenses, err := c.repo.ListExpenses(ctx, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.loadDone()

	if gen != c.gen || seq != c.loadSeq {
		c.log.Debug("discarding superseded load", "household_id", scope, "seq", seq)

		if err != nil {
			return &FetchError{Scope: scope, Err: err}
		}

		return nil
	}

	if err != nil {
		c.state = StateError
		c.err = &FetchError{Scope: scope, Err: err}
		c.log.Error("loading expenses", "household_id", scope, "error", err)

		return c.err
	}

	expenses = dedupeByID(expenses)
	for _, ev := range c.pending[mark:] {
		expenses = applyEvent(expenses, ev)
	}

	c.expenses = expenses
	c.state = StateReady
	c.err = nil

	return nil
}

// loadDone ends one in-flight load. The event buffer is released once no load
// is left that could need it. c.mu must be held.
func (c *Collection) loadDone() {
	c.inflight--
	if c.inflight == 0 {
		c.pending = nil
	}
}

// subscribe opens the change feed, trying up to attempts times. A failure is
// recorded as the collection's SubscriptionError.
func (c *Collection) subscribe(ctx context.Context, scope string, gen uint64, attempts int) bool {
	var err error

	for range attempts {
		subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

		var sub Subscription

		sub, err = c.repo.Subscribe(subCtx, scope)
		if err != nil {
			cancel()
			c.log.Warn("subscribing to change feed", "household_id", scope, "error", err)

			continue
		}

		h := &subscriptionHandle{
			sub:    sub,
			events: sub.Events(),
			cancel: cancel,
			done:   make(chan struct{}),
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			h.Cancel()

			return false
		}

		prev := c.sub
		c.sub = h
		c.subErr = nil
		c.mu.Unlock()

		if prev != nil {
			prev.Cancel()
		}

		go c.pump(h, scope, gen)

		return true
	}

	c.mu.Lock()
	if gen == c.gen {
		c.subErr = &SubscriptionError{Scope: scope, Err: err}
	}
	c.mu.Unlock()

	return false
}

// pump applies the events of one subscription, one at a time, in delivery order.
func (c *Collection) pump(h *subscriptionHandle, scope string, gen uint64) {
	defer close(h.done)

	for ev := range h.events {
		c.apply(gen, ev)
	}

	if h.canceled.Load() {
		return
	}

	c.dropped(h, scope, gen, h.sub.Err())
}

func (c *Collection) apply(gen uint64, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	c.expenses = applyEvent(c.expenses, ev)

	if c.inflight > 0 {
		c.pending = append(c.pending, ev)
	}
}

// dropped handles a feed that ended on its own. It resubscribes once per scope
// and reloads to pick up anything missed, then falls back to reload on demand.
func (c *Collection) dropped(h *subscriptionHandle, scope string, gen uint64, cause error) {
	if cause == nil {
		cause = errFeedClosed
	}

	h.Cancel()
	c.log.Warn("change feed dropped", "household_id", scope, "error", cause)

	c.mu.Lock()
	if gen != c.gen || c.sub != h {
		c.mu.Unlock()
		return
	}

	c.sub = nil
	c.subErr = &SubscriptionError{Scope: scope, Err: cause}
	retry := !c.resubscribed
	c.resubscribed = true
	c.mu.Unlock()

	if !retry {
		c.log.Warn("change feed unavailable, reloading on demand only", "household_id", scope)
		return
	}

	ctx := context.Background()
	if !c.subscribe(ctx, scope, gen, 1) {
		return
	}

	if err := c.load(ctx, scope, gen); err != nil {
		c.log.Warn("reloading after resubscribe", "household_id", scope, "error", err)
	}
}

// applyEvent returns the collection with ev applied. The input slice is never
// modified. Every kind is idempotent: a duplicate insert and an update or delete
// of an absent id leave the collection unchanged.
func applyEvent(expenses []Expense, ev Event) []Expense {
	idx := slices.IndexFunc(expenses, func(e Expense) bool {
		return e.ID == ev.Expense.ID
	})

	switch ev.Kind {
	case EventInsert:
		if idx >= 0 {
			return expenses
		}

		out := make([]Expense, 0, len(expenses)+1)
		out = append(out, ev.Expense)

		return append(out, expenses...)
	case EventDelete:
		if idx < 0 {
			return expenses
		}

		out := make([]Expense, 0, len(expenses)-1)
		out = append(out, expenses[:idx]...)

		return append(out, expenses[idx+1:]...)
	case EventUpdate:
		if idx < 0 {
			return expenses
		}

		out := slices.Clone(expenses)
		out[idx] = ev.Expense

		return out
	}

	return expenses
}

func dedupeByID(expenses []Expense) []Expense {
	seen := make(map[string]struct{}, len(expenses))
	out := make([]Expense, 0, len(expenses))

	for _, e := range expenses {
		if _, ok := seen[e.ID]; ok {
			continue
		}

		seen[e.ID] = struct{}{}
		out = append(out, e)
	}

	return out
}

// Add stores a new expense and reloads the collection.
func (c *Collection) Add(ctx context.Context, form FormData) (*Expense, error) {
	params, err := form.Params()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	scope, gen := c.scope, c.gen
	c.mu.Unlock()

	if scope == "" || c.userID == "" {
		return nil, ErrNoScope
	}

	created, err := c.repo.CreateExpense(ctx, scope, c.userID, params)
	if err != nil {
		return nil, &WriteError{Op: "insert", Err: err}
	}

	if err := c.load(ctx, scope, gen); err != nil {
		c.log.Warn("reloading after insert", "household_id", scope, "expense_id", created.ID, "error", err)
	}

	return created, nil
}

// Delete removes an expense of the current household. A missing expense is
// reported as false, not as an error.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	scope, gen := c.scope, c.gen
	c.mu.Unlock()

	if scope == "" {
		return false, nil
	}

	deleted, err := c.repo.DeleteExpense(ctx, scope, id)
	if err != nil {
		return false, &WriteError{Op: "delete", ID: id, Err: err}
	}

	if !deleted {
		return false, nil
	}

	if err := c.load(ctx, scope, gen); err != nil {
		c.log.Warn("reloading after delete", "household_id", scope, "expense_id", id, "error", err)
	}

	return true, nil
}

// Update patches the supplied fields of an expense. The collection converges
// through the change feed.
func (c *Collection) Update(ctx context.Context, id string, form PatchForm) (bool, error) {
	patch, err := form.Patch()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	scope := c.scope
	c.mu.Unlock()

	if scope == "" || patch.IsEmpty() {
		return false, nil
	}

	updated, err := c.repo.UpdateExpense(ctx, scope, id, patch)
	if err != nil {
		return false, &WriteError{Op: "update", ID: id, Err: err}
	}

	return updated, nil
}

// Snapshot returns a copy of the committed collection.
func (c *Collection) Snapshot() []Expense {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Expense, len(c.expenses))
	copy(out, c.expenses)

	return out
}

func (c *Collection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Collection) Loading() bool {
	return c.State() == StateLoading
}

// Err returns the last load error, or the change feed error if loading is fine.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}

	return c.subErr
}

func (c *Collection) Scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scope
}

// Live reports whether a change feed is currently attached.
func (c *Collection) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sub != nil
}

// Close unsubscribes and clears the collection.
func (c *Collection) Close() {
	c.mu.Lock()
	old := c.sub
	c.sub = nil
	c.gen++
	c.scope = ""
	c.expenses = nil
	c.state = StateIdle
	c.err = nil
	c.subErr = nil
	c.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
}

// Sessions keeps one collection per user session.
type Sessions struct {
	repo Repository
	log  *slog.Logger

	mu     sync.Mutex
	byUser map[string]*Collection
}

func NewSessions(repo Repository, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sessions{
		repo:   repo,
		log:    logger,
		byUser: make(map[string]*Collection),
	}
}

// Collection returns the user's collection scoped to householdID, creating it
// on first use. A failed load is reported through the collection's Err.
func (s *Sessions) Collection(ctx context.Context, userID, householdID string) *Collection {
	s.mu.Lock()

	c, ok := s.byUser[userID]
	if !ok {
		c = NewCollection(s.repo, userID, s.log)
		s.byUser[userID] = c
	}
	s.mu.Unlock()

	if err := c.SetScope(ctx, householdID); err != nil {
		s.log.Warn("scoping session collection", "user_id", userID, "household_id", householdID, "error", err)
	}

	return c
}

func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.byUser {
		c.Close()
		delete(s.byUser, id)
	}
}
