package expense_test

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

func TestFormData_Validate(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	valid := expense.FormData{
		Amount:   "1500.50",
		Category: string(expense.CategorySupermarket),
		Date:     "2024-03-15",
	}

	tests := []struct {
		name       string
		mutate     func(f *expense.FormData)
		wantFields []string
	}{
		{name: "valid", mutate: func(*expense.FormData) {}},
		{name: "missing amount", mutate: func(f *expense.FormData) { f.Amount = "" }, wantFields: []string{"amount"}},
		{name: "non numeric amount", mutate: func(f *expense.FormData) { f.Amount = "abc" }, wantFields: []string{"amount"}},
		{name: "zero amount", mutate: func(f *expense.FormData) { f.Amount = "0" }, wantFields: []string{"amount"}},
		{name: "negative amount", mutate: func(f *expense.FormData) { f.Amount = "-3" }, wantFields: []string{"amount"}},
		{name: "amount too large", mutate: func(f *expense.FormData) { f.Amount = "1000000000" }, wantFields: []string{"amount"}},
		{name: "unknown category", mutate: func(f *expense.FormData) { f.Category = "Viajes" }, wantFields: []string{"category"}},
		{name: "future date", mutate: func(f *expense.FormData) { f.Date = "2024-03-16" }, wantFields: []string{"date"}},
		{name: "malformed date", mutate: func(f *expense.FormData) { f.Date = "15/03/2024" }, wantFields: []string{"date"}},
		{
			name:       "description too long",
			mutate:     func(f *expense.FormData) { f.Description = strings.Repeat("ñ", 501) },
			wantFields: []string{"description"},
		},
		{
			name:       "several problems",
			mutate:     func(f *expense.FormData) { *f = expense.FormData{} },
			wantFields: []string{"amount", "category", "date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)

			err := f.Validate(now)

			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs expense.ValidationErrors
			require.ErrorAs(t, err, &verrs)

			for _, field := range tt.wantFields {
				assert.Contains(t, verrs, field)
			}

			assert.Len(t, verrs, len(tt.wantFields))
		})
	}
}

func TestFormData_Params(t *testing.T) {
	t.Run("converts and trims", func(t *testing.T) {
		p, err := expense.FormData{
			Amount:      " 1500.50 ",
			Category:    string(expense.CategoryFuel),
			Description: "  nafta  ",
			Date:        "2024-03-15",
		}.Params()

		require.NoError(t, err)
		assert.Equal(t, "1500.5", p.Amount.String())
		assert.Equal(t, expense.CategoryFuel, p.Category)
		assert.Equal(t, "nafta", p.Description)
		assert.Equal(t, "2024-03-15", p.Date)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := expense.FormData{Amount: "1", Category: "Viajes", Date: "2024-03-15"}.Params()

		assert.ErrorIs(t, err, expense.ErrInvalidCategory)
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		_, err := expense.FormData{Amount: "0", Category: string(expense.CategoryFuel), Date: "2024-03-15"}.Params()

		var perr *expense.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "amount", perr.Field)
		assert.ErrorIs(t, err, expense.ErrInvalidAmount)
	})
}

func TestPatchForm_Patch(t *testing.T) {
	empty := ""
	amount := "45.5"
	bad := "x"
	desc := "  almuerzo "
	category := string(expense.CategoryRestaurants)

	tests := []struct {
		name    string
		form    expense.PatchForm
		check   func(t *testing.T, p expense.Patch)
		wantErr error
	}{
		{
			name:  "nothing supplied",
			form:  expense.PatchForm{},
			check: func(t *testing.T, p expense.Patch) { assert.True(t, p.IsEmpty()) },
		},
		{
			name: "empty amount category and date are ignored",
			form: expense.PatchForm{Amount: &empty, Category: &empty, Date: &empty},
			check: func(t *testing.T, p expense.Patch) {
				assert.True(t, p.IsEmpty())
			},
		},
		{
			name: "empty description clears it",
			form: expense.PatchForm{Description: &empty},
			check: func(t *testing.T, p expense.Patch) {
				require.NotNil(t, p.Description)
				assert.Empty(t, *p.Description)
			},
		},
		{
			name: "supplied fields are parsed",
			form: expense.PatchForm{Amount: &amount, Description: &desc, Category: &category},
			check: func(t *testing.T, p expense.Patch) {
				require.NotNil(t, p.Amount)
				assert.Equal(t, "45.5", p.Amount.String())
				assert.Equal(t, "almuerzo", *p.Description)
				assert.Equal(t, expense.CategoryRestaurants, *p.Category)
				assert.Nil(t, p.Date)
			},
		},
		{
			name:    "bad amount",
			form:    expense.PatchForm{Amount: &bad},
			wantErr: expense.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.form.Patch()

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestPatchForm_Validate(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		form       expense.PatchForm
		wantFields []string
	}{
		{name: "nothing supplied", form: expense.PatchForm{}},
		{name: "blank fields are not supplied", form: expense.PatchForm{Amount: new(""), Category: new(""), Date: new(" ")}},
		{name: "valid fields", form: expense.PatchForm{Amount: new("999999999"), Date: new("2024-03-31"), Description: new("")}},
		{name: "future date", form: expense.PatchForm{Date: new("2024-04-01")}, wantFields: []string{"date"}},
		{name: "amount over the cap", form: expense.PatchForm{Amount: new("1000000000")}, wantFields: []string{"amount"}},
		{name: "zero amount", form: expense.PatchForm{Amount: new("0")}, wantFields: []string{"amount"}},
		{name: "unknown category", form: expense.PatchForm{Category: new("Viajes")}, wantFields: []string{"category"}},
		{
			name:       "long description",
			form:       expense.PatchForm{Description: new(strings.Repeat("x", expense.MaxDescriptionLen+1))},
			wantFields: []string{"description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate(now)

			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs expense.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.ElementsMatch(t, tt.wantFields, slices.Collect(maps.Keys(verrs)))
		})
	}
}

func TestFormFromExpense_RoundTrips(t *testing.T) {
	e := mk("a", "1234.56", expense.CategoryPets, "2024-02-29")
	e.Description = "veterinaria"

	p, err := expense.FormFromExpense(e).Params()

	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(e.Amount))
	assert.Equal(t, e.Category, p.Category)
	assert.Equal(t, e.Description, p.Description)
	assert.Equal(t, e.Date, p.Date)
}
