package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/gastos/internal/household"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UserHouseholds calls the user_households database function.
func (s *Store) UserHouseholds(ctx context.Context, userID uuid.UUID) ([]household.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT household_id, member_count FROM user_households($1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("calling user_households: %w", err)
	}
	defer rows.Close()

	var memberships []household.Membership

	for rows.Next() {
		var m household.Membership
		if err := rows.Scan(&m.HouseholdID, &m.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}

		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

func (s *Store) GetHousehold(ctx context.Context, id uuid.UUID) (*household.Household, error) {
	var (
		h         household.Household
		createdBy uuid.NullUUID
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, updated_at
		FROM households WHERE id = $1`, id,
	).Scan(&h.ID, &h.Name, &createdBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, household.ErrNotFound
		}

		return nil, fmt.Errorf("getting household: %w", err)
	}

	h.CreatedBy = createdBy.UUID

	return &h, nil
}

func (s *Store) CreateHousehold(ctx context.Context, name string, admin uuid.UUID) (*household.Household, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	h := household.Household{Name: name, CreatedBy: admin}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO households (name, created_by) VALUES ($1, $2)
		RETURNING id, created_at, updated_at`, name, admin,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting household: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO household_members (household_id, user_id, role) VALUES ($1, $2, $3)`,
		h.ID, admin, household.RoleAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting admin member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing household: %w", err)
	}

	return &h, nil
}

func (s *Store) ListMembers(ctx context.Context, householdID uuid.UUID) ([]household.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, role, created_at
		FROM household_members
		WHERE household_id = $1
		ORDER BY created_at`, householdID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []household.Member

	for rows.Next() {
		var (
			m    household.Member
			role string
		)

		if err := rows.Scan(&m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}

		m.Role = household.Role(role)
		members = append(members, m)
	}

	return members, rows.Err()
}

func (s *Store) AddMember(ctx context.Context, householdID, userID uuid.UUID, role household.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO household_members (household_id, user_id, role) VALUES ($1, $2, $3)`,
		householdID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}

	return nil
}
