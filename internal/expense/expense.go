package expense

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed expense categories.
type Category string

const (
	CategoryFuel          Category = "Combustible"
	CategorySchoolFees    Category = "Cuota Colegios"
	CategorySports        Category = "Deportes"
	CategorySupermarket   Category = "Supermercado"
	CategoryRestaurants   Category = "Restaurantes"
	CategoryClothing      Category = "Ropa"
	CategoryCoffee        Category = "Cafecito"
	CategoryCreditCards   Category = "Tarjetas de Crédito"
	CategoryLoans         Category = "Préstamos"
	CategoryPets          Category = "Mascotas"
	CategoryUtilities     Category = "Servicios"
	CategoryPharmacy      Category = "Farmacia"
	CategoryEntertainment Category = "Entretenimiento"
	CategoryWaxing        Category = "Depilación"
	CategoryRent          Category = "Alquiler"
	CategoryOther         Category = "Otros"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFuel,
	CategorySchoolFees,
	CategorySports,
	CategorySupermarket,
	CategoryRestaurants,
	CategoryClothing,
	CategoryCoffee,
	CategoryCreditCards,
	CategoryLoans,
	CategoryPets,
	CategoryUtilities,
	CategoryPharmacy,
	CategoryEntertainment,
	CategoryWaxing,
	CategoryRent,
	CategoryOther,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

// ParseCategory returns the category named s. Unknown names are rejected, never coerced.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", &ParseError{Field: "category", Value: s, Err: ErrInvalidCategory}
	}

	return c, nil
}

// DateLayout is the canonical date format. It is fixed-width and zero-padded,
// so plain string comparison orders dates chronologically.
const DateLayout = time.DateOnly

// MaxDescriptionLen bounds the optional description.
const MaxDescriptionLen = 500

// Expense is a single household expense.
type Expense struct {
	ID          string
	Amount      decimal.Decimal
	Category    Category
	Description string // empty when absent
	Date        string // YYYY-MM-DD
	CreatedAt   time.Time
}

// Month returns the YYYY-MM key of the expense date.
func (e Expense) Month() string {
	return MonthOf(e.Date)
}

// wireExpense is the persisted and transported JSON shape.
type wireExpense struct {
	ID          string      `json:"id"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
	Date        string      `json:"date"`
	CreatedAt   int64       `json:"createdAt"`
}

func (e Expense) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireExpense{
		ID:          e.ID,
		Amount:      json.Number(e.Amount.String()),
		Category:    string(e.Category),
		Description: e.Description,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes and validates an expense. Unknown fields are ignored and
// a missing description decodes as absent.
func (e *Expense) UnmarshalJSON(data []byte) error {
	var w wireExpense
	if err := json.Unmarshal(data, &w); err != nil {
		return &ParseError{Field: "expense", Value: string(data), Err: err}
	}

	if w.ID == "" {
		return &ParseError{Field: "id", Err: ErrMissingID}
	}

	amount, err := parseAmount(w.Amount.String())
	if err != nil {
		return err
	}

	category, err := ParseCategory(w.Category)
	if err != nil {
		return err
	}

	if err := checkDate(w.Date); err != nil {
		return err
	}

	*e = Expense{
		ID:          w.ID,
		Amount:      amount,
		Category:    category,
		Description: w.Description,
		Date:        w.Date,
		CreatedAt:   time.UnixMilli(w.CreatedAt).UTC(),
	}

	return nil
}

// CreateParams are the typed fields of a new expense before a store assigns
// its id and creation time.
type CreateParams struct {
	Amount      decimal.Decimal
	Category    Category
	Description string
	Date        string
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Amount      *decimal.Decimal
	Category    *Category
	Description *string
	Date        *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// Apply returns e with the patch applied.
func (p Patch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}

	if p.Category != nil {
		e.Category = *p.Category
	}

	if p.Description != nil {
		e.Description = *p.Description
	}

	if p.Date != nil {
		e.Date = *p.Date
	}

	return e
}

// EventKind is the kind of a change-feed notification.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one change pushed by the authoritative store.
type Event struct {
	Kind    EventKind
	Expense Expense
}
