package expense

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/household"
	"github.com/MrJamesThe3rd/gastos/internal/http/auth"
)

// LedgerProvider returns the ledger a request operates on.
type LedgerProvider interface {
	Ledger(ctx context.Context) (expense.Ledger, error)
}

// Static serves every request from one ledger, as in offline mode.
type Static struct {
	L expense.Ledger
}

func (s Static) Ledger(context.Context) (expense.Ledger, error) {
	return s.L, nil
}

// HouseholdResolver picks the household a user works in.
type HouseholdResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*household.Household, error)
}

// Sessions serves each authenticated user from their session collection,
// scoped to the household they resolve to.
type Sessions struct {
	households HouseholdResolver
	sessions   *expense.Sessions
}

func NewSessions(households HouseholdResolver, sessions *expense.Sessions) *Sessions {
	return &Sessions{households: households, sessions: sessions}
}

func (s *Sessions) Ledger(ctx context.Context) (expense.Ledger, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return nil, auth.ErrUnauthenticated
	}

	h, err := s.households.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving household: %w", err)
	}

	return s.sessions.Collection(ctx, userID.String(), h.ID.String()), nil
}
