package importer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

// Importer turns a CSV export into expense submissions.
type Importer interface {
	Parse(r io.Reader) (*Result, error)
}

// Row is one importable line of the input.
type Row struct {
	Line int
	Form expense.FormData
}

// RowError reports a line that could not be imported.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line  int    `json:"line"`
		Error string `json:"error"`
	}{e.Line, e.Err.Error()})
}

// Result is the outcome of parsing one file.
type Result struct {
	Profile string
	Rows    []Row
	Errors  []RowError
}
