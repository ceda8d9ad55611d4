package expense

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("expense not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingID       = errors.New("missing id")
	ErrNoScope         = errors.New("no household selected")

	// ErrPermissionDenied marks a write the store refused for the current user.
	ErrPermissionDenied = errors.New("permission denied")
)

// FetchError reports a failed read of the collection from the store.
type FetchError struct {
	Scope string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching expenses for household %s: %v", e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports an insert, update or delete rejected by the store.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s expense: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s expense %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ParseError reports malformed stored data or unparsable form input.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parsing %s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SubscriptionError reports a change feed that could not be established or dropped.
type SubscriptionError struct {
	Scope string
	Err   error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribing to household %s: %v", e.Scope, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
