package importer

import (
	"strings"
	"time"
)

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountPositive is one column holding the expense amount, e.g. "Importe" = "1.500,50".
	amountPositive amountMode = iota
	// amountSigned is one signed column where only negative values are expenses.
	amountSigned
	// amountSplit means separate debit and credit columns; only debits are expenses.
	amountSplit
)

// Profile describes the column layout of a supported CSV format.
// Adding a new format is just adding a new Profile to the profiles slice.
type Profile struct {
	Name        string
	DateCol     string
	DescCol     string
	CategoryCol string // empty when rows are categorised as Otros
	AmountMode  amountMode
	AmountCol   string // used when AmountMode is amountPositive or amountSigned
	DebitCol    string // used when AmountMode == amountSplit
	CreditCol   string // used when AmountMode == amountSplit
	DateLayouts []string
	// SkipBadDates ignores rows whose date does not parse, such as statement footers.
	SkipBadDates bool
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	if p.CategoryCol != "" {
		cols = append(cols, p.CategoryCol)
	}

	switch p.AmountMode {
	case amountPositive, amountSigned:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

func (p Profile) parseDate(s string) (string, bool) {
	for _, layout := range p.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}

	return "", false
}

var localLayouts = []string{time.DateOnly, "02/01/2006", "02-01-2006", "2/1/2006"}

// profiles is the ordered list of formats to try during auto-detection.
// More specific profiles should come first to avoid false matches.
var profiles = []Profile{
	{
		Name:        "planilla",
		DateCol:     "fecha",
		DescCol:     "descripción",
		CategoryCol: "categoría",
		AmountMode:  amountPositive,
		AmountCol:   "importe",
		DateLayouts: localLayouts,
	},
	{
		Name:        "export",
		DateCol:     "date",
		DescCol:     "description",
		CategoryCol: "category",
		AmountMode:  amountPositive,
		AmountCol:   "amount",
		DateLayouts: []string{time.DateOnly},
	},
	{
		Name:         "tarjeta",
		DateCol:      "fecha",
		DescCol:      "descripción",
		AmountMode:   amountSplit,
		DebitCol:     "débito",
		CreditCol:    "crédito",
		DateLayouts:  localLayouts,
		SkipBadDates: true,
	},
	{
		Name:         "cuenta",
		DateCol:      "fecha",
		DescCol:      "concepto",
		AmountMode:   amountSigned,
		AmountCol:    "importe",
		DateLayouts:  localLayouts,
		SkipBadDates: true,
	},
}

// normalizeHeader folds a header cell for matching against profile columns.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
