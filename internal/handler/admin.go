package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/refillia/refillia-system/internal/model"
)

// Ответ очереди модерации несёт станцию вместе с автором. Если профиль
// автора не найден, показываем "Unknown" — явная политика подстановки.
type moderationRowResponse struct {
	stationResponse
	Username string `json:"username"`
	Email    string `json:"email"`
}

const unknownSubmitter = "Unknown"

func toModerationRows(rows []model.ModerationRow) []moderationRowResponse {
	resp := make([]moderationRowResponse, 0, len(rows))
	for i := range rows {
		row := moderationRowResponse{
			stationResponse: toStationResponse(&rows[i].Station),
			Username:        unknownSubmitter,
			Email:           unknownSubmitter,
		}
		if sub := rows[i].Submitter; sub != nil {
			row.Username = sub.Username
			row.Email = sub.Email
		}
		resp = append(resp, row)
	}
	return resp
}

// ListPendingStations возвращает очередь модерации, новые сверху.
func (h *Handler) ListPendingStations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rows, err := h.service.ListPendingStations(r.Context(), actor)
	if err != nil {
		h.respondError(w, err, "list pending stations")
		return
	}

	h.writeJSON(w, http.StatusOK, toModerationRows(rows))
}

// ListVerifiedStations возвращает проверенные станции, недавно обновлённые сверху.
func (h *Handler) ListVerifiedStations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rows, err := h.service.ListVerifiedStations(r.Context(), actor)
	if err != nil {
		h.respondError(w, err, "list verified stations")
		return
	}

	h.writeJSON(w, http.StatusOK, toModerationRows(rows))
}

// SearchStations ищет станции по подстроке для панели администратора.
func (h *Handler) SearchStations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rows, err := h.service.SearchStations(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, err, "search stations")
		return
	}

	h.writeJSON(w, http.StatusOK, toModerationRows(rows))
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

// ReviewStation применяет решение администратора к станции.
func (h *Handler) ReviewStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	station, err := h.service.ReviewStation(r.Context(), actor, chi.URLParam(r, "stationID"), model.ReviewDecision(req.Decision))
	if err != nil {
		h.respondError(w, err, "review station")
		return
	}

	h.writeJSON(w, http.StatusOK, toStationResponse(station))
}

// DeleteStation удаляет станцию вместе с отзывами и активностями.
func (h *Handler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.service.DeleteStation(r.Context(), actor, chi.URLParam(r, "stationID")); err != nil {
		h.respondError(w, err, "delete station")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
