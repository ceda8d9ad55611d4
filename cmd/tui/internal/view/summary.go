package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/export"
)

const barWidth = 30

// SummaryModel shows the total and category breakdown of one month.
type SummaryModel struct {
	CommonModel
	ledger   expense.Ledger
	exporter *export.Service

	month   string
	summary expense.MonthlySummary
	status  string
}

func NewSummaryModel(ledger expense.Ledger, exporter *export.Service) SummaryModel {
	m := SummaryModel{
		ledger:   ledger,
		exporter: exporter,
		month:    CurrentMonth(time.Now()),
	}
	m.recompute()

	return m
}

func (m SummaryModel) Title() string { return "Monthly Summary" }

func (m SummaryModel) ShortHelp() string {
	return "Esc: back | ←/→: month | r: reload"
}

func (m SummaryModel) Init() tea.Cmd {
	return refreshCmd()
}

func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.recompute()
		return m, refreshCmd()

	case reloadMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Error reloading: %v", msg.err)
		}

		m.recompute()

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "left", "h":
			m.month = ShiftMonth(m.month, -1)
			m.recompute()
		case "right", "l":
			m.month = ShiftMonth(m.month, 1)
			m.recompute()
		case "r":
			m.status = "Reloading..."
			return m, reloadCmd(m.ledger)
		}
	}

	return m, nil
}

func (m *SummaryModel) recompute() {
	m.summary = expense.Summarize(m.ledger.Snapshot(), m.month)
}

func (m SummaryModel) View() string {
	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("◀ %s ▶", activeStyle(export.MonthLabel(m.month))),
	)

	lines := []string{
		header,
		"",
		fmt.Sprintf("Total: %s  (%d gastos)", m.exporter.Money(m.summary.Total), m.summary.Count),
		"",
	}

	if m.summary.Count == 0 {
		lines = append(lines, faintStyle.Render("Sin gastos este mes."))
	} else {
		lines = append(lines, m.breakdown()...)
	}

	if m.ledger.Loading() {
		lines = append(lines, "", faintStyle.Render("Cargando..."))
	}

	if err := m.ledger.Err(); err != nil {
		lines = append(lines, "", errStyle.Render(fmt.Sprintf("Error: %v", err)))
	}

	if m.status != "" {
		lines = append(lines, "", faintStyle.Render(m.status))
	}

	if months := expense.AvailableMonths(m.ledger.Snapshot()); len(months) > 0 {
		lines = append(lines, "", faintStyle.Render("Meses con gastos: "+strings.Join(months, ", ")))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m SummaryModel) breakdown() []string {
	categories := make([]expense.Category, 0, len(m.summary.ByCategory))
	for c := range m.summary.ByCategory {
		categories = append(categories, c)
	}

	slices.SortFunc(categories, func(a, b expense.Category) int {
		return m.summary.ByCategory[b].Cmp(m.summary.ByCategory[a])
	})

	lines := make([]string, 0, len(categories))

	for _, c := range categories {
		amount := m.summary.ByCategory[c]

		width := 0
		if m.summary.Total.IsPositive() {
			width = int(amount.Div(m.summary.Total).Mul(decimal.NewFromInt(barWidth)).IntPart())
		}

		lines = append(lines, fmt.Sprintf("%-20s %-*s %s",
			c,
			barWidth, strings.Repeat("█", width),
			m.exporter.Money(amount),
		))
	}

	return lines
}

type reloadMsg struct {
	err error
}

func reloadCmd(ledger expense.Ledger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		return reloadMsg{err: ledger.Reload(ctx)}
	}
}
