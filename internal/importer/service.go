package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// Report summarises an import into a ledger.
type Report struct {
	Profile  string            `json:"profile"`
	Imported []expense.Expense `json:"imported"`
	Errors   []RowError        `json:"errors"`
}

type Service struct {
	parser Importer
	log    *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		parser: NewParser(),
		log:    logger.With("component", "importer"),
		now:    time.Now,
	}
}

// WithParser replaces the parser, mainly for tests.
func (s *Service) WithParser(p Importer) *Service {
	s.parser = p
	return s
}

// WithClock replaces the clock used to reject future dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Import parses r and adds every valid row to the ledger. Rows that fail
// validation or insertion are reported and skipped; a parse failure aborts
// before anything is written.
func (s *Service) Import(ctx context.Context, ledger expense.Ledger, r io.Reader) (*Report, error) {
	res, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing import: %w", err)
	}

	report := &Report{
		Profile:  res.Profile,
		Imported: []expense.Expense{},
		Errors:   append([]RowError{}, res.Errors...),
	}

	now := s.now()

	for _, row := range res.Rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := row.Form.Validate(now); err != nil {
			report.Errors = append(report.Errors, RowError{Line: row.Line, Err: err})
			continue
		}

		e, err := ledger.Add(ctx, row.Form)
		if err != nil {
			var werr *expense.WriteError
			if errors.As(err, &werr) {
				s.log.Warn("import row rejected by store", "line", row.Line, "error", err)
			}

			report.Errors = append(report.Errors, RowError{Line: row.Line, Err: err})

			continue
		}

		report.Imported = append(report.Imported, *e)
	}

	s.log.Info("import finished",
		"profile", report.Profile,
		"imported", len(report.Imported),
		"errors", len(report.Errors),
	)

	return report, nil
}
