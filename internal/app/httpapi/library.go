package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/services/library"
	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/internal/httputil"
	"github.com/logoforge/logoforge/internal/middleware"
)

func (h *Handler) handleListIcons(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	q := r.URL.Query()
	filter := icon.ListFilter{
		Style:  q.Get("style"),
		Tag:    q.Get("tag"),
		SortBy: q.Get("sort"),
		Order:  q.Get("order"),
	}
	if v := q.Get("favorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteServiceError(w, errors.BadRequest("favorite must be a boolean"))
			return
		}
		filter.Favorite = &fav
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.WriteServiceError(w, errors.BadRequest("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.WriteServiceError(w, errors.BadRequest("offset must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}

	icons, err := h.library.List(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"icons": icons})
}

func (h *Handler) handleSaveIcon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	var in library.SaveInput
	if err := httputil.DecodeJSON(r.Body, &in); err != nil {
		httputil.WriteServiceError(w, errors.BadRequest("invalid JSON body"))
		return
	}

	saved, err := h.library.Save(r.Context(), userID, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleGetIcon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	ic, err := h.library.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ic)
}

func (h *Handler) handleUpdateIcon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	var in library.UpdateInput
	if err := httputil.DecodeJSON(r.Body, &in); err != nil {
		httputil.WriteServiceError(w, errors.BadRequest("invalid JSON body"))
		return
	}

	updated, err := h.library.Update(r.Context(), userID, mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteIcon(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteServiceError(w, errors.Unauthorized("no session"))
		return
	}

	if err := h.library.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
