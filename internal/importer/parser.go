package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/gastos/internal/encoding"
	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// Parser reads CSV files in any of the known profiles and produces expense
// submissions. The profile and the delimiter are detected from the header.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

type record struct {
	line   int
	fields []string
}

func (p *Parser) Parse(r io.Reader) (*Result, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []record

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}

	if len(records) == 0 {
		return &Result{}, nil
	}

	profile, cols, headerIdx := detectProfile(records)
	if profile == nil {
		return nil, fmt.Errorf("no matching format found: expected columns for planilla, export, tarjeta or cuenta")
	}

	res := parseRows(profile, cols, records[headerIdx+1:])
	res.Profile = profile.Name

	return res, nil
}

// detectDelimiter picks the most frequent of ';', ',' and tab on the first non-empty line.
func detectDelimiter(data []byte) rune {
	for line := range bytes.Lines(data) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		best, bestCount := ',', 0

		for _, c := range []rune{';', ',', '\t'} {
			if n := bytes.Count(line, []byte(string(c))); n > bestCount {
				best, bestCount = c, n
			}
		}

		return best
	}

	return ','
}

// colIndex maps normalized column names to their index in the row.
type colIndex map[string]int

// detectProfile scans records for a header that matches a known profile.
// Returns the matched profile, column index map, and header position.
func detectProfile(records []record) (*Profile, colIndex, int) {
	for idx, rec := range records {
		cols := make(colIndex)

		for i, cell := range rec.fields {
			if name := normalizeHeader(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, idx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

func parseRows(p *Profile, cols colIndex, records []record) *Result {
	res := &Result{}

	dateIdx := cols[p.DateCol]
	descIdx := cols[p.DescCol]

	for _, rec := range records {
		rawDate := cellValue(rec.fields, dateIdx)
		if rawDate == "" {
			continue
		}

		date, ok := p.parseDate(rawDate)
		if !ok {
			if !p.SkipBadDates {
				res.Errors = append(res.Errors, RowError{Line: rec.line, Err: fmt.Errorf("invalid date %q", rawDate)})
			}

			continue
		}

		amount, ok, err := parseAmount(p, cols, rec.fields)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: rec.line, Err: err})
			continue
		}

		if !ok {
			continue
		}

		desc := cellValue(rec.fields, descIdx)
		category := string(expense.CategoryOther)

		if p.CategoryCol != "" {
			category = matchCategory(cellValue(rec.fields, cols[p.CategoryCol]))
		} else if r := []rune(desc); len(r) > expense.MaxDescriptionLen {
			// Statement concepts are not user input; keep what fits.
			desc = string(r[:expense.MaxDescriptionLen])
		}

		res.Rows = append(res.Rows, Row{
			Line: rec.line,
			Form: expense.FormData{
				Amount:      amount.String(),
				Category:    category,
				Description: desc,
				Date:        date,
			},
		})
	}

	return res
}

// parseAmount extracts the expense amount from a row. It reports false for
// rows that are not expenses, such as credits on a statement.
func parseAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, bool, error) {
	switch p.AmountMode {
	case amountPositive:
		s := cellValue(row, cols[p.AmountCol])
		if s == "" {
			return decimal.Decimal{}, false, errors.New("missing amount")
		}

		d, err := ParseAmount(s)
		if err != nil {
			return decimal.Decimal{}, false, err
		}

		return d, true, nil
	case amountSigned:
		s := cellValue(row, cols[p.AmountCol])
		if s == "" {
			return decimal.Decimal{}, false, nil
		}

		d, err := ParseAmount(s)
		if err != nil {
			return decimal.Decimal{}, false, err
		}

		if !d.IsNegative() {
			return decimal.Decimal{}, false, nil
		}

		return d.Abs(), true, nil
	case amountSplit:
		s := cellValue(row, cols[p.DebitCol])
		if s == "" {
			return decimal.Decimal{}, false, nil
		}

		d, err := ParseAmount(s)
		if err != nil {
			return decimal.Decimal{}, false, err
		}

		if d.IsZero() {
			return decimal.Decimal{}, false, nil
		}

		return d.Abs(), true, nil
	}

	return decimal.Decimal{}, false, nil
}

// matchCategory returns the canonical spelling of a category, ignoring case.
// Unknown names are returned unchanged for validation to reject.
func matchCategory(s string) string {
	for _, c := range expense.Categories {
		if strings.EqualFold(string(c), s) {
			return string(c)
		}
	}

	return s
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
