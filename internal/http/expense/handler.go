package expense

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/export"
	"github.com/MrJamesThe3rd/gastos/internal/http/auth"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
)

const maxUploadSize = 10 << 20

type Handler struct {
	ledgers  LedgerProvider
	importer *importer.Service
	exporter *export.Service
	now      func() time.Time
}

func NewHandler(ledgers LedgerProvider, importSvc *importer.Service, exportSvc *export.Service) *Handler {
	return &Handler{
		ledgers:  ledgers,
		importer: importSvc,
		exporter: exportSvc,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for validation and default months.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Routes(r chi.Router) {
	jsonOnly := middleware.AllowContentType("application/json")

	r.Get("/", h.list)
	r.With(jsonOnly).Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/months", h.months)
	r.Get("/total", h.total)
	r.Post("/reload", h.reload)
	r.Post("/import", h.importCSV)
	r.Get("/export", h.exportCSV)
	r.With(jsonOnly).Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) (expense.Ledger, bool) {
	l, err := h.ledgers.Ledger(r.Context())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return nil, false
		}

		slog.Error("resolving ledger", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return nil, false
	}

	return l, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := expense.Filter{}

	if s := q.Get("month"); s != "" {
		filter.Month = new(s)
	}

	if s := q.Get("category"); s != "" {
		c, err := expense.ParseCategory(s)
		if err != nil {
			http.Error(w, "invalid category", http.StatusBadRequest)
			return
		}

		filter.Category = new(c)
	}

	for param, dst := range map[string]**string{"from": &filter.DateFrom, "to": &filter.DateTo} {
		s := q.Get(param)
		if s == "" {
			continue
		}

		if _, err := time.Parse(expense.DateLayout, s); err != nil {
			http.Error(w, "invalid "+param+" date", http.StatusBadRequest)
			return
		}

		*dst = new(s)
	}

	resp := listResponse{
		Expenses: expense.FilterExpenses(l.Snapshot(), filter),
		Loading:  l.Loading(),
	}

	if err := l.Err(); err != nil {
		resp.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form expense.FormData
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := form.Validate(h.now()); err != nil {
		writeInvalid(w, err)
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	e, err := l.Add(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var form expense.PatchForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := form.Validate(h.now()); err != nil {
		writeInvalid(w, err)
		return
	}

	patch, err := form.Patch()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if patch.IsEmpty() {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	updated, err := l.Update(r.Context(), id, form)
	if err != nil {
		writeError(w, err)
		return
	}

	if !updated {
		http.Error(w, "expense not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	deleted, err := l.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !deleted {
		http.Error(w, "expense not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) month(r *http.Request) string {
	if m := r.URL.Query().Get("month"); m != "" {
		return m
	}

	return expense.MonthOf(h.now().Format(expense.DateLayout))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, expense.Summarize(l.Snapshot(), h.month(r)))
}

func (h *Handler) months(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, monthsResponse{Months: expense.AvailableMonths(l.Snapshot())})
}

func (h *Handler) total(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	snapshot := l.Snapshot()

	writeJSON(w, http.StatusOK, totalResponse{Total: expense.Total(snapshot), Count: len(snapshot)})
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	if err := l.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	report, err := h.importer.Import(r.Context(), l, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if len(report.Imported) > 0 {
		status = http.StatusCreated
	}

	writeJSON(w, status, report)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	snapshot := l.Snapshot()

	if r.URL.Query().Get("format") == "text" {
		if month == "" {
			month = h.month(r)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if _, err := w.Write([]byte(h.exporter.Summary(snapshot, month))); err != nil {
			slog.Error("failed to write summary", "error", err)
		}

		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(month)+`"`)

	if err := h.exporter.WriteMonthCSV(w, snapshot, month); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// writeError maps ledger errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		perr  *expense.ParseError
		werr  *expense.WriteError
		ferr  *expense.FetchError
		verrs expense.ValidationErrors
	)

	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verrs})
	case errors.As(err, &perr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, expense.ErrNoScope):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, expense.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &werr), errors.As(err, &ferr):
		slog.Error("store request failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeInvalid(w http.ResponseWriter, err error) {
	var verrs expense.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verrs})
		return
	}

	http.Error(w, err.Error(), http.StatusBadRequest)
}
