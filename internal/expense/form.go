package expense

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount the form validator accepts.
var MaxAmount = decimal.NewFromInt(999_999_999)

// FormData is a user submission before conversion. Every field is a raw string.
type FormData struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// PatchForm is a partial submission. Nil fields were not supplied; an empty
// amount, category or date is treated as not supplied, an empty description clears it.
type PatchForm struct {
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

// ValidationErrors maps a form field to a human-readable problem.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := slices.Sorted(maps.Keys(v))

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}

	return "invalid form: " + strings.Join(parts, "; ")
}

// Validate checks a submission the way the entry form does. It returns nil or a
// ValidationErrors value.
func (f FormData) Validate(now time.Time) error {
	errs := ValidationErrors{}

	errs.check("amount", amountProblem(f.Amount))
	errs.check("category", categoryProblem(f.Category))
	errs.check("date", dateProblem(f.Date, now))
	errs.check("description", descriptionProblem(f.Description))

	return errs.orNil()
}

// Validate applies the entry form rules to the supplied fields. Fields that
// Patch treats as not supplied are skipped.
func (f PatchForm) Validate(now time.Time) error {
	errs := ValidationErrors{}

	if f.Amount != nil && strings.TrimSpace(*f.Amount) != "" {
		errs.check("amount", amountProblem(*f.Amount))
	}

	if f.Category != nil && *f.Category != "" {
		errs.check("category", categoryProblem(*f.Category))
	}

	if f.Date != nil && strings.TrimSpace(*f.Date) != "" {
		errs.check("date", dateProblem(*f.Date, now))
	}

	if f.Description != nil {
		errs.check("description", descriptionProblem(*f.Description))
	}

	return errs.orNil()
}

func (v ValidationErrors) check(field, problem string) {
	if problem != "" {
		v[field] = problem
	}
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}

	return v
}

func amountProblem(s string) string {
	amount := strings.TrimSpace(s)
	if amount == "" {
		return "amount is required"
	}

	d, err := decimal.NewFromString(amount)

	switch {
	case err != nil:
		return "amount must be a valid number"
	case !d.IsPositive():
		return "amount must be greater than zero"
	case d.GreaterThan(MaxAmount):
		return "amount is too large"
	}

	return ""
}

func categoryProblem(s string) string {
	switch {
	case s == "":
		return "category is required"
	case !Category(s).Valid():
		return "category is not valid"
	}

	return ""
}

func dateProblem(s string, now time.Time) string {
	switch date := strings.TrimSpace(s); {
	case date == "":
		return "date is required"
	case checkDate(date) != nil:
		return "date is not valid"
	case date > now.Format(DateLayout):
		return "date cannot be in the future"
	}

	return ""
}

func descriptionProblem(s string) string {
	if len([]rune(s)) > MaxDescriptionLen {
		return fmt.Sprintf("description cannot exceed %d characters", MaxDescriptionLen)
	}

	return ""
}

// Params converts the submission into typed create parameters.
func (f FormData) Params() (CreateParams, error) {
	amount, err := parseAmount(f.Amount)
	if err != nil {
		return CreateParams{}, err
	}

	category, err := ParseCategory(f.Category)
	if err != nil {
		return CreateParams{}, err
	}

	date := strings.TrimSpace(f.Date)
	if err := checkDate(date); err != nil {
		return CreateParams{}, err
	}

	desc, err := parseDescription(f.Description)
	if err != nil {
		return CreateParams{}, err
	}

	return CreateParams{
		Amount:      amount,
		Category:    category,
		Description: desc,
		Date:        date,
	}, nil
}

// Patch converts the partial submission into a typed patch.
func (f PatchForm) Patch() (Patch, error) {
	var p Patch

	if f.Amount != nil && strings.TrimSpace(*f.Amount) != "" {
		amount, err := parseAmount(*f.Amount)
		if err != nil {
			return Patch{}, err
		}

		p.Amount = &amount
	}

	if f.Category != nil && *f.Category != "" {
		category, err := ParseCategory(*f.Category)
		if err != nil {
			return Patch{}, err
		}

		p.Category = &category
	}

	if f.Description != nil {
		desc, err := parseDescription(*f.Description)
		if err != nil {
			return Patch{}, err
		}

		p.Description = &desc
	}

	if f.Date != nil && strings.TrimSpace(*f.Date) != "" {
		date := strings.TrimSpace(*f.Date)
		if err := checkDate(date); err != nil {
			return Patch{}, err
		}

		p.Date = &date
	}

	return p, nil
}

// FormFromExpense renders an expense back into its form representation.
func FormFromExpense(e Expense) FormData {
	return FormData{
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date,
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, &ParseError{Field: "amount", Value: s, Err: fmt.Errorf("%w: %v", ErrInvalidAmount, err)}
	}

	if !d.IsPositive() {
		return decimal.Decimal{}, &ParseError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}

	return d, nil
}

func checkDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return &ParseError{Field: "date", Value: s, Err: ErrInvalidDate}
	}

	return nil
}

func parseDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len([]rune(s)) > MaxDescriptionLen {
		return "", &ParseError{Field: "description", Err: fmt.Errorf("longer than %d characters", MaxDescriptionLen)}
	}

	return s, nil
}
