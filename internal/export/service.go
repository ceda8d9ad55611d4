package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// Header is the column row of exported files. It matches the importer's
// "export" profile so a file can be imported back.
var Header = []string{"date", "category", "amount", "description"}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Service renders monthly reports from a ledger snapshot.
type Service struct {
	printer *message.Printer
}

// NewService creates a Service formatting money for the given locale, e.g. "es-AR".
// An unknown tag falls back to es-AR.
func NewService(locale string) *Service {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("es-AR")
	}

	return &Service{printer: message.NewPrinter(tag)}
}

// FileName is the suggested download name for a month's export.
func FileName(month string) string {
	if month == "" {
		return "gastos.csv"
	}

	return fmt.Sprintf("gastos-%s.csv", month)
}

// WriteMonthCSV writes the month's expenses, newest first. An empty month
// exports the whole snapshot.
func (s *Service) WriteMonthCSV(w io.Writer, snapshot []expense.Expense, month string) error {
	rows := snapshot
	if month != "" {
		rows = expense.Summarize(snapshot, month).Expenses
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range rows {
		record := []string{e.Date, string(e.Category), e.Amount.StringFixed(2), e.Description}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing expense %s: %w", e.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Money formats an amount the way the app displays it, e.g. "$ 12.345,50".
func (s *Service) Money(d decimal.Decimal) string {
	return "$ " + s.printer.Sprintf("%.2f", d.InexactFloat64())
}

// MonthLabel renders "2024-03" as "marzo 2024".
func MonthLabel(month string) string {
	var year, m int
	if _, err := fmt.Sscanf(month, "%4d-%2d", &year, &m); err != nil || m < 1 || m > 12 {
		return month
	}

	return fmt.Sprintf("%s %d", monthNames[m-1], year)
}

// Summary renders a plain-text report of the month: total, category
// breakdown largest first, and one line per expense.
func (s *Service) Summary(snapshot []expense.Expense, month string) string {
	sum := expense.Summarize(snapshot, month)

	var sb strings.Builder

	fmt.Fprintf(&sb, "Gastos de %s\n", MonthLabel(month))
	fmt.Fprintf(&sb, "Total: %s (%d gastos)\n", s.Money(sum.Total), sum.Count)

	if sum.Count == 0 {
		return sb.String()
	}

	categories := make([]expense.Category, 0, len(sum.ByCategory))
	for c := range sum.ByCategory {
		categories = append(categories, c)
	}

	slices.SortFunc(categories, func(a, b expense.Category) int {
		if c := sum.ByCategory[b].Cmp(sum.ByCategory[a]); c != 0 {
			return c
		}

		return strings.Compare(string(a), string(b))
	})

	sb.WriteString("\nPor categoría:\n")

	for _, c := range categories {
		fmt.Fprintf(&sb, "* %s: %s\n", c, s.Money(sum.ByCategory[c]))
	}

	sb.WriteString("\nDetalle:\n")

	for _, e := range sum.Expenses {
		desc := e.Description
		if desc == "" {
			desc = "Sin descripción"
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s\n", e.Date, e.Category, s.Money(e.Amount), desc)
	}

	return sb.String()
}
