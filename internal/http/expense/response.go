package expense

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
)

type listResponse struct {
	Expenses []expense.Expense `json:"expenses"`
	Loading  bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
}

type monthsResponse struct {
	Months []string `json:"months"`
}

type totalResponse struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type validationResponse struct {
	Errors expense.ValidationErrors `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
