package view_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/gastos/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/export"
)

func ledgerWith(t *testing.T, snapshot []expense.Expense) *expense.MockLedger {
	t.Helper()

	ledger := expense.NewMockLedger(gomock.NewController(t))
	ledger.EXPECT().Snapshot().Return(snapshot).AnyTimes()
	ledger.EXPECT().Loading().Return(false).AnyTimes()
	ledger.EXPECT().Err().Return(nil).AnyTimes()

	return ledger
}

func twoMonths() (current, previous string, snapshot []expense.Expense) {
	current = view.CurrentMonth(time.Now())
	previous = view.ShiftMonth(current, -1)

	snapshot = []expense.Expense{
		{ID: "1", Amount: decimal.RequireFromString("1500.50"), Category: expense.CategorySupermarket, Description: "compra semanal", Date: current + "-01"},
		{ID: "2", Amount: decimal.RequireFromString("800"), Category: expense.CategoryCoffee, Description: "cortado", Date: current + "-01"},
		{ID: "3", Amount: decimal.RequireFromString("300"), Category: expense.CategoryFuel, Description: "nafta vieja", Date: previous + "-10"},
	}

	return current, previous, snapshot
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestListModel_MonthAndCategory(t *testing.T) {
	_, _, snapshot := twoMonths()
	m := view.NewListModel(ledgerWith(t, snapshot))

	out := m.View()
	assert.Contains(t, out, "compra semanal")
	assert.Contains(t, out, "cortado")
	assert.NotContains(t, out, "nafta vieja")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	out = next.View()
	assert.Contains(t, out, "nafta vieja")
	assert.NotContains(t, out, "compra semanal")

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRight})
	next, _ = next.Update(key("c")) // first category: Combustible
	out = next.View()
	assert.Contains(t, out, string(expense.CategoryFuel))
	assert.NotContains(t, out, "compra semanal")
}

func TestListModel_EscGoesBack(t *testing.T) {
	m := view.NewListModel(ledgerWith(t, nil))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, view.BackMsg{}, cmd())
}

func TestSummaryModel_View(t *testing.T) {
	_, previous, snapshot := twoMonths()
	m := view.NewSummaryModel(ledgerWith(t, snapshot), export.NewService("es-AR"))

	out := m.View()
	assert.Contains(t, out, "$ 2.300,50")
	assert.Contains(t, out, "(2 gastos)")
	assert.Contains(t, out, string(expense.CategorySupermarket))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	out = next.View()
	assert.Contains(t, out, "$ 300,00")
	assert.Contains(t, out, previous)
}

func TestSummaryModel_ReloadReportsError(t *testing.T) {
	ledger := ledgerWith(t, nil)
	ledger.EXPECT().Reload(gomock.Any()).Return(assert.AnError)

	m := view.NewSummaryModel(ledger, export.NewService("es-AR"))

	_, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	assert.Contains(t, next.View(), assert.AnError.Error())
}
