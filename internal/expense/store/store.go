package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// Store implements expense.Repository on Postgres. Queries go through db; the
// change feed holds a dedicated connection from pool per subscription.
type Store struct {
	db   *sql.DB
	pool *pgxpool.Pool
	log  *slog.Logger
}

func New(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{db: db, pool: pool, log: logger.With("component", "expense_store")}
}

// insufficient_privilege, raised when a row policy or grant rejects a write.
const pgInsufficientPrivilege = "42501"

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return fmt.Errorf("%w: %s", expense.ErrPermissionDenied, pgErr.Message)
	}

	return err
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, amount, category, description, date, created_at
const selectExpenseColumns = `
	id::text, amount, category, COALESCE(description, ''), to_char(date, 'YYYY-MM-DD'), created_at
`

func scanExpense(s scanner) (*expense.Expense, error) {
	var (
		e        expense.Expense
		category string
	)

	if err := s.Scan(&e.ID, &e.Amount, &category, &e.Description, &e.Date, &e.CreatedAt); err != nil {
		return nil, err
	}

	c, err := expense.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	e.Category = c

	return &e, nil
}

func (s *Store) ListExpenses(ctx context.Context, householdID string) ([]expense.Expense, error) {
	query := `SELECT ` + selectExpenseColumns + `
		FROM expenses
		WHERE household_id = $1
		ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	expenses := []expense.Expense{}

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		expenses = append(expenses, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return expenses, nil
}

func (s *Store) CreateExpense(ctx context.Context, householdID, userID string, params expense.CreateParams) (*expense.Expense, error) {
	query := `
		INSERT INTO expenses (household_id, user_id, amount, category, description, date)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING ` + selectExpenseColumns

	e, err := scanExpense(s.db.QueryRowContext(ctx, query,
		householdID,
		userID,
		params.Amount,
		params.Category,
		params.Description,
		params.Date,
	))
	if err != nil {
		return nil, fmt.Errorf("creating expense: %w", classify(err))
	}

	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, householdID, id string, patch expense.Patch) (bool, error) {
	if patch.IsEmpty() {
		return false, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	var (
		sets []string
		args []any
	)

	argIdx := 1

	if patch.Amount != nil {
		sets = append(sets, fmt.Sprintf("amount = $%d", argIdx))
		args = append(args, *patch.Amount)
		argIdx++
	}

	if patch.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, *patch.Category)
		argIdx++
	}

	if patch.Description != nil {
		sets = append(sets, fmt.Sprintf("description = NULLIF($%d, '')", argIdx))
		args = append(args, *patch.Description)
		argIdx++
	}

	if patch.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d", argIdx))
		args = append(args, *patch.Date)
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE expenses SET %s WHERE id = $%d AND household_id = $%d`,
		strings.Join(sets, ", "), argIdx, argIdx+1)
	args = append(args, id, householdID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating expense: %w", classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	return n > 0, nil
}

func (s *Store) DeleteExpense(ctx context.Context, householdID, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND household_id = $2`, id, householdID)
	if err != nil {
		return false, fmt.Errorf("deleting expense: %w", classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	return n > 0, nil
}
