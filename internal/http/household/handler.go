package household

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/gastos/internal/household"
	"github.com/MrJamesThe3rd/gastos/internal/http/auth"
)

type Handler struct {
	svc *household.Service
}

func NewHandler(svc *household.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Get("/members", h.members)
	r.With(middleware.AllowContentType("application/json")).Post("/members", h.invite)
}

// resolve returns the caller and the household they work in.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (uuid.UUID, *household.Household, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return uuid.Nil, nil, false
	}

	hh, err := h.svc.Resolve(r.Context(), userID)
	if err != nil {
		slog.Error("resolving household", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return uuid.Nil, nil, false
	}

	return userID, hh, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	_, hh, ok := h.resolve(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, hh)
}

type memberResponse struct {
	UserID uuid.UUID      `json:"userId"`
	Role   household.Role `json:"role"`
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	_, hh, ok := h.resolve(w, r)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), hh.ID)
	if err != nil {
		slog.Error("listing members", "household_id", hh.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{UserID: m.UserID, Role: m.Role})
	}

	writeJSON(w, http.StatusOK, resp)
}

type inviteRequest struct {
	UserID uuid.UUID `json:"userId"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	actor, hh, ok := h.resolve(w, r)
	if !ok {
		return
	}

	err := h.svc.Invite(r.Context(), actor, hh.ID, req.UserID)

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, household.ErrForbidden):
		http.Error(w, "only admins can invite", http.StatusForbidden)
	case errors.Is(err, household.ErrAlreadyMember):
		http.Error(w, "already a member", http.StatusConflict)
	default:
		slog.Error("inviting member", "household_id", hh.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
