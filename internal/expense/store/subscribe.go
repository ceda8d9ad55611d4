package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// ChannelName is the notification channel the expenses trigger publishes a
// household's changes on.
func ChannelName(householdID string) string {
	return "expenses:" + householdID
}

type notification struct {
	Kind   expense.EventKind `json:"kind"`
	Record expense.Expense   `json:"record"`
}

// DecodeNotification parses a trigger payload into an event.
func DecodeNotification(payload string) (expense.Event, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return expense.Event{}, fmt.Errorf("decoding notification: %w", err)
	}

	switch n.Kind {
	case expense.EventInsert, expense.EventUpdate, expense.EventDelete:
	default:
		return expense.Event{}, fmt.Errorf("unknown change kind %q", n.Kind)
	}

	return expense.Event{Kind: n.Kind, Expense: n.Record}, nil
}

// Subscribe listens for the household's changes on a dedicated connection.
func (s *Store) Subscribe(ctx context.Context, householdID string) (expense.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listen connection: %w", err)
	}

	channel := ChannelName(householdID)

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listening on %s: %w", channel, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	sub := &subscription{
		conn:    conn,
		channel: channel,
		cancel:  cancel,
		events:  make(chan expense.Event, 64),
		done:    make(chan struct{}),
		log:     s.log.With("household_id", householdID),
	}

	go sub.run(runCtx)

	return sub, nil
}

type subscription struct {
	conn    *pgxpool.Conn
	channel string
	cancel  context.CancelFunc
	events  chan expense.Event
	done    chan struct{}
	log     *slog.Logger

	mu   sync.Mutex
	err  error
	once sync.Once
}

func (s *subscription) Events() <-chan expense.Event {
	return s.events
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for {
		n, err := s.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}

			return
		}

		ev, err := DecodeNotification(n.Payload)
		if err != nil {
			s.log.Warn("skipping malformed notification", "channel", s.channel, "error", err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops listening and hands the connection back to the pool.
func (s *subscription) Close() error {
	var err error

	s.once.Do(func() {
		s.cancel()
		<-s.done

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, uerr := s.conn.Exec(ctx, "UNLISTEN *"); uerr != nil {
			err = fmt.Errorf("unlistening %s: %w", s.channel, uerr)
			// The pool discards closed connections on release.
			_ = s.conn.Conn().Close(ctx)
		}

		s.conn.Release()
	})

	return err
}
