package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/export"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateEdit
	listStateConfirmDelete
)

type ListModel struct {
	CommonModel
	ledger expense.Ledger

	state    listState
	table    table.Model
	expenses []expense.Expense
	form     *huh.Form

	month    string
	category int // index into expense.Categories, -1 for all
	status   string

	fields    *expenseFields
	confirmed *bool
}

func NewListModel(ledger expense.Ledger) ListModel {
	columns := []table.Column{
		{Title: "Fecha", Width: 12},
		{Title: "Categoría", Width: 20},
		{Title: "Importe", Width: 12},
		{Title: "Descripción", Width: 40},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := ListModel{
		ledger:   ledger,
		table:    t,
		month:    CurrentMonth(time.Now()),
		category: -1,
	}
	m.refreshTable()

	return m
}

func (m ListModel) Title() string { return "Expenses" }

func (m ListModel) ShortHelp() string {
	switch m.state {
	case listStateEdit:
		return "Navigate form | Esc: cancel"
	case listStateConfirmDelete:
		return "←/→: choose | Enter: confirm | Esc: cancel"
	}

	return "Esc: back | ←/→: month | c: category | e: edit | d: delete | r: reload"
}

func (m ListModel) Init() tea.Cmd {
	return refreshCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		if m.state == listStateBrowse {
			m.refreshTable()
		}

		return m, refreshCmd()

	case reloadMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Error reloading: %v", msg.err)
		}

		m.refreshTable()

		return m, nil

	case listSaveMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit, listStateConfirmDelete:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "left", "h":
			m.month = ShiftMonth(m.month, -1)
			m.refreshTable()

			return m, nil
		case "right", "l":
			m.month = ShiftMonth(m.month, 1)
			m.refreshTable()

			return m, nil
		case "c":
			m.category++
			if m.category >= len(expense.Categories) {
				m.category = -1
			}

			m.refreshTable()

			return m, nil
		case "r":
			m.status = "Reloading..."
			return m, reloadCmd(m.ledger)
		case "e":
			return m.enterEditMode()
		case "d":
			return m.enterDeleteMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) selected() (expense.Expense, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.expenses) {
		return expense.Expense{}, false
	}

	return m.expenses[idx], true
}

func (m ListModel) enterEditMode() (tea.Model, tea.Cmd) {
	e, ok := m.selected()
	if !ok {
		return m, nil
	}

	form := expense.FormFromExpense(e)
	m.fields = &expenseFields{
		amount:      form.Amount,
		category:    form.Category,
		description: form.Description,
		date:        form.Date,
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Importe").
				Value(&m.fields.amount).
				Validate(fieldValidator("amount", func(s string) expense.FormData {
					return expense.FormData{Amount: s, Category: string(expense.CategoryOther), Date: e.Date}
				})),
			categorySelect(&m.fields.category),
			huh.NewText().
				Key("description").
				Title("Descripción").
				CharLimit(expense.MaxDescriptionLen).
				Value(&m.fields.description),
			huh.NewInput().
				Key("date").
				Title("Fecha (AAAA-MM-DD)").
				Value(&m.fields.date).
				Validate(fieldValidator("date", func(s string) expense.FormData {
					return expense.FormData{Amount: "1", Category: string(expense.CategoryOther), Date: s}
				})),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) enterDeleteMode() (tea.Model, tea.Cmd) {
	e, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.confirmed = new(false)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("¿Eliminar %s de %s (%s)?", FormatAmount(e.Amount), e.Category, e.Date)).
				Affirmative("Eliminar").
				Negative("Cancelar").
				Value(m.confirmed),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateConfirmDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == listStateConfirmDelete {
		if !*m.confirmed {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}

		return m, m.deleteCmd()
	}

	return m, m.saveCmd()
}

func (m ListModel) View() string {
	filter := "Todas"
	if m.category >= 0 {
		filter = string(expense.Categories[m.category])
	}

	sum := expense.Total(m.expenses)

	header := fmt.Sprintf(
		"Mes: %s | [c] Categoría: %s | Total: %s",
		activeStyle(export.MonthLabel(m.month)),
		activeStyle(filter),
		activeStyle(FormatAmount(sum)),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state != listStateBrowse && m.form != nil {
		title := "Editar gasto"
		if m.state == listStateConfirmDelete {
			title = "Eliminar gasto"
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(title + "\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if err := m.ledger.Err(); err != nil {
		content = errStyle.Render(fmt.Sprintf("Error: %v", err)) + "\n" + content
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ListModel) refreshTable() {
	filter := expense.Filter{Month: &m.month}
	if m.category >= 0 {
		filter.Category = &expense.Categories[m.category]
	}

	m.expenses = expense.FilterExpenses(m.ledger.Snapshot(), filter)

	rows := make([]table.Row, 0, len(m.expenses))
	for _, e := range m.expenses {
		rows = append(rows, table.Row{
			e.Date,
			string(e.Category),
			FormatAmount(e.Amount),
			e.Description,
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Messages

type listSaveMsg struct {
	status string
	err    error
}

func (m ListModel) saveCmd() tea.Cmd {
	e, ok := m.selected()
	if !ok {
		return nil
	}

	fields := m.fields.formData()
	patch := expense.PatchForm{
		Amount:      &fields.Amount,
		Category:    &fields.Category,
		Description: &fields.Description,
		Date:        &fields.Date,
	}

	return func() tea.Msg {
		if err := patch.Validate(time.Now()); err != nil {
			return listSaveMsg{err: err}
		}

		ctx, cancel := StoreCtx()
		defer cancel()

		updated, err := m.ledger.Update(ctx, e.ID, patch)
		if err != nil {
			return listSaveMsg{err: err}
		}

		if !updated {
			return listSaveMsg{err: errors.New("el gasto ya no existe")}
		}

		return listSaveMsg{status: "Guardado."}
	}
}

func (m ListModel) deleteCmd() tea.Cmd {
	e, ok := m.selected()
	if !ok {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		deleted, err := m.ledger.Delete(ctx, e.ID)
		if err != nil {
			return listSaveMsg{err: err}
		}

		if !deleted {
			return listSaveMsg{status: "El gasto ya había sido eliminado."}
		}

		return listSaveMsg{status: "Eliminado."}
	}
}
