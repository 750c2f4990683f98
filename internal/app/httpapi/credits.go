package httpapi

import (
	"net/http"

	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/internal/httputil"
	"github.com/logoforge/logoforge/internal/middleware"
)

type consumeRequest struct {
	Amount int `json:"amount"`
}

func (h *Handler) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	bal, err := h.credits.Balance(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"remaining":   bal.Remaining(),
		"allowance":   bal.Allowance,
		"used":        bal.Used,
		"periodStart": bal.PeriodStart,
	})
}

// handleConsumeCredits reserves credits ahead of a generation call. The
// client calls this first; generation itself never touches credits.
func (h *Handler) handleConsumeCredits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	body := consumeRequest{Amount: 1}
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r.Body, &body); err != nil {
			httputil.WriteServiceError(w, errors.BadRequest("invalid JSON body"))
			return
		}
	}

	bal, err := h.credits.Consume(r.Context(), userID, body.Amount)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"remaining": bal.Remaining()})
}

func (h *Handler) handleCreditLedger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	entries, err := h.credits.Ledger(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	plan, sub, err := h.subs.Plan(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, errors.Internal("resolve subscription", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"plan":                sub.Plan,
		"active":              sub.Active,
		"generationsPerMonth": plan.GenerationsPerMonth,
	})
}
