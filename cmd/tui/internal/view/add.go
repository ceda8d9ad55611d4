package view

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

type addState int

const (
	addStateForm addState = iota
	addStateSaving
	addStateResult
)

// AddModel is the expense entry form.
type AddModel struct {
	CommonModel
	ledger expense.Ledger
	now    func() time.Time

	state  addState
	form   *huh.Form
	fields *expenseFields
	status string
	err    error
}

// expenseFields holds the form bindings. It lives behind a pointer so the
// bindings survive the model being copied between updates.
type expenseFields struct {
	amount      string
	category    string
	description string
	date        string
}

func (f *expenseFields) formData() expense.FormData {
	return expense.FormData{
		Amount:      f.amount,
		Category:    f.category,
		Description: f.description,
		Date:        f.date,
	}
}

func NewAddModel(ledger expense.Ledger) AddModel {
	m := AddModel{
		ledger: ledger,
		now:    time.Now,
	}
	m.reset()

	return m
}

func (m AddModel) Title() string { return "Add Expense" }

func (m AddModel) ShortHelp() string {
	if m.state == addStateResult {
		return "Enter: add another | Esc: back"
	}

	return "Tab: next field | Enter: submit | Esc: back"
}

func (m AddModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m *AddModel) reset() {
	m.fields = &expenseFields{
		category: string(expense.CategorySupermarket),
		date:     m.now().Format(expense.DateLayout),
	}
	m.state = addStateForm
	m.status = ""
	m.err = nil

	today := m.now().Format(expense.DateLayout)
	withAmount := func(s string) expense.FormData {
		return expense.FormData{Amount: s, Category: string(expense.CategoryOther), Date: today}
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("amount").
				Title("Importe").
				Placeholder("1500.50").
				Value(&m.fields.amount).
				Validate(fieldValidator("amount", withAmount)),
			categorySelect(&m.fields.category),
			huh.NewText().
				Key("description").
				Title("Descripción (opcional)").
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
	).WithWidth(50).WithShowHelp(false)
}

func (m AddModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if saved, ok := msg.(addResultMsg); ok {
		m.state = addStateResult
		m.err = saved.err

		if saved.err == nil {
			m.status = fmt.Sprintf("Guardado: %s en %s (%s)",
				FormatAmount(saved.expense.Amount), saved.expense.Category, saved.expense.Date)
		}

		return m, nil
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	switch m.state {
	case addStateSaving:
		return m, nil
	case addStateResult:
		if isKey && keyMsg.Type == tea.KeyEnter {
			m.reset()
			return m, m.form.Init()
		}

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = addStateSaving

	return m, m.saveCmd()
}

func (m AddModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	switch m.state {
	case addStateSaving:
		return style.Render("Guardando...")
	case addStateResult:
		if m.err != nil {
			return style.Render(errStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Enter para reintentar, Esc para volver)")
		}

		return style.Render(okStyle.Render(m.status) + "\n\n(Enter para agregar otro, Esc para volver)")
	}

	return style.Render("Nuevo gasto\n\n" + m.form.View())
}

type addResultMsg struct {
	expense *expense.Expense
	err     error
}

func (m AddModel) saveCmd() tea.Cmd {
	form := m.fields.formData()

	return func() tea.Msg {
		if err := form.Validate(m.now()); err != nil {
			return addResultMsg{err: err}
		}

		ctx, cancel := StoreCtx()
		defer cancel()

		e, err := m.ledger.Add(ctx, form)

		return addResultMsg{expense: e, err: err}
	}
}

// fieldValidator checks one field with the entry form rules. build places the
// field value into an otherwise valid submission.
func fieldValidator(field string, build func(string) expense.FormData) func(string) error {
	return func(s string) error {
		err := build(s).Validate(time.Now())

		var verrs expense.ValidationErrors
		if errors.As(err, &verrs) {
			if msg, ok := verrs[field]; ok {
				return errors.New(msg)
			}
		}

		return nil
	}
}

func categorySelect(value *string) *huh.Select[string] {
	opts := make([]huh.Option[string], 0, len(expense.Categories))
	for _, c := range expense.Categories {
		opts = append(opts, huh.NewOption(string(c), string(c)))
	}

	return huh.NewSelect[string]().
		Key("category").
		Title("Categoría").
		Options(opts...).
		Height(8).
		Value(value)
}
