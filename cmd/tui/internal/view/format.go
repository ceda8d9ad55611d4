package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

const storeTimeout = 10 * time.Second

// FormatAmount formats an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// StoreCtx returns a context with a standard timeout for ledger writes.
func StoreCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// CurrentMonth returns the YYYY-MM of now.
func CurrentMonth(now time.Time) string {
	return expense.MonthOf(now.Format(expense.DateLayout))
}

// ShiftMonth moves a YYYY-MM month by delta months. Malformed input is returned unchanged.
func ShiftMonth(month string, delta int) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}

	return t.AddDate(0, delta, 0).Format("2006-01")
}
