package expense

import (
	"context"
)

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=expense
type Repository interface {
	// ListExpenses returns every expense of the household ordered by date,
	// creation time and id, all descending.
	ListExpenses(ctx context.Context, householdID string) ([]Expense, error)
	CreateExpense(ctx context.Context, householdID, userID string, params CreateParams) (*Expense, error)
	// UpdateExpense reports false when no expense with id exists in the household.
	UpdateExpense(ctx context.Context, householdID, id string, patch Patch) (bool, error)
	// DeleteExpense reports false when no expense with id exists in the household.
	DeleteExpense(ctx context.Context, householdID, id string) (bool, error)
	Subscribe(ctx context.Context, householdID string) (Subscription, error)
}

// Subscription is a live change feed for one household.
type Subscription interface {
	// Events delivers changes in the order the store emitted them. It is closed
	// when the feed ends.
	Events() <-chan Event
	// Err returns why the feed ended, or nil after Close.
	Err() error
	Close() error
}

// Ledger is the surface the presentation layer works against. Both the synced
// Collection and the offline LocalBook implement it.
type Ledger interface {
	Snapshot() []Expense
	Loading() bool
	Err() error
	Reload(ctx context.Context) error
	Add(ctx context.Context, form FormData) (*Expense, error)
	Delete(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, form PatchForm) (bool, error)
}
