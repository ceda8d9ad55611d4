package expense

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Filter selects expenses. Nil criteria are not applied; the rest must all match.
type Filter struct {
	Month    *string // YYYY-MM
	Category *Category
	DateFrom *string // inclusive, YYYY-MM-DD
	DateTo   *string // inclusive, YYYY-MM-DD
}

// MonthlySummary is the aggregate view of one month. It is recomputed on every
// request and never stored.
type MonthlySummary struct {
	Month      string                       `json:"month"`
	Total      decimal.Decimal              `json:"total"`
	Count      int                          `json:"count"`
	Expenses   []Expense                    `json:"expenses"`
	ByCategory map[Category]decimal.Decimal `json:"byCategory"`
}

// MonthOf returns the YYYY-MM prefix of a canonical date.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}

	return date[:7]
}

func (f Filter) matches(e Expense) bool {
	if f.Month != nil && MonthOf(e.Date) != *f.Month {
		return false
	}

	if f.Category != nil && e.Category != *f.Category {
		return false
	}

	if f.DateFrom != nil && e.Date < *f.DateFrom {
		return false
	}

	if f.DateTo != nil && e.Date > *f.DateTo {
		return false
	}

	return true
}

// FilterExpenses returns the expenses of snapshot that satisfy every criterion of f,
// preserving snapshot order.
func FilterExpenses(snapshot []Expense, f Filter) []Expense {
	out := make([]Expense, 0, len(snapshot))

	for _, e := range snapshot {
		if f.matches(e) {
			out = append(out, e)
		}
	}

	return out
}

// Summarize aggregates the expenses of month.
func Summarize(snapshot []Expense, month string) MonthlySummary {
	expenses := FilterExpenses(snapshot, Filter{Month: &month})

	summary := MonthlySummary{
		Month:      month,
		Total:      decimal.Zero,
		Count:      len(expenses),
		Expenses:   expenses,
		ByCategory: make(map[Category]decimal.Decimal),
	}

	for _, e := range expenses {
		summary.Total = summary.Total.Add(e.Amount)
		summary.ByCategory[e.Category] = summary.ByCategory[e.Category].Add(e.Amount)
	}

	return summary
}

// AvailableMonths returns the distinct months present in snapshot, most recent first.
func AvailableMonths(snapshot []Expense) []string {
	months := make([]string, 0, len(snapshot))
	for _, e := range snapshot {
		months = append(months, MonthOf(e.Date))
	}

	slices.SortFunc(months, func(a, b string) int {
		return strings.Compare(b, a)
	})

	return slices.Compact(months)
}

// Total sums every expense in snapshot.
func Total(snapshot []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range snapshot {
		total = total.Add(e.Amount)
	}

	return total
}

// sortByDateDesc orders expenses by date, newest first, then by creation time
// and id, both descending.
func sortByDateDesc(expenses []Expense) {
	slices.SortStableFunc(expenses, func(a, b Expense) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}

		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(b.ID, a.ID)
	})
}
