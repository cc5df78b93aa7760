package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/service"
)

type submitStationRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Landmark    string  `json:"landmark"`
	Contact     string  `json:"contact"`
	OpeningTime string  `json:"opening_time"`
	ClosingTime string  `json:"closing_time"`
	Days        string  `json:"days"`
	WaterLevel  string  `json:"water_level"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// SubmitStation принимает заявку на новую станцию от текущего пользователя.
func (h *Handler) SubmitStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req submitStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	station, err := h.service.SubmitStation(r.Context(), actor, service.StationInput{
		Name:        req.Name,
		Description: req.Description,
		Landmark:    req.Landmark,
		Contact:     req.Contact,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		Days:        req.Days,
		WaterLevel:  req.WaterLevel,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		h.respondError(w, err, "submit station")
		return
	}

	h.writeJSON(w, http.StatusCreated, toStationResponse(station))
}

// ListPublicStations возвращает проверенные станции для карты поиска.
func (h *Handler) ListPublicStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.ListPublicStations(r.Context())
	if err != nil {
		h.respondError(w, err, "list public stations")
		return
	}

	resp := make([]stationResponse, 0, len(stations))
	for i := range stations {
		resp = append(resp, toStationResponse(&stations[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetStation возвращает станцию по идентификатору.
func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	station, err := h.service.GetStation(r.Context(), actor, chi.URLParam(r, "stationID"))
	if err != nil {
		h.respondError(w, err, "get station")
		return
	}

	h.writeJSON(w, http.StatusOK, toStationResponse(station))
}

type editStationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Landmark    *string `json:"landmark"`
	Contact     *string `json:"contact"`
	OpeningTime *string `json:"opening_time"`
	ClosingTime *string `json:"closing_time"`
	Days        *string `json:"days"`
	WaterLevel  *string `json:"water_level"`
}

// EditStation обновляет описательные поля проверенной станции.
func (h *Handler) EditStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req editStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	station, err := h.service.EditVerifiedStation(r.Context(), actor, chi.URLParam(r, "stationID"), model.StationEdit{
		Name:        req.Name,
		Description: req.Description,
		Landmark:    req.Landmark,
		Contact:     req.Contact,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		Days:        req.Days,
		WaterLevel:  req.WaterLevel,
	})
	if err != nil {
		h.respondError(w, err, "edit station")
		return
	}

	h.writeJSON(w, http.StatusOK, toStationResponse(station))
}

// ReportStation помечает проверенную станцию как пожалованную.
func (h *Handler) ReportStation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	station, err := h.service.ReportStation(r.Context(), actor, chi.URLParam(r, "stationID"))
	if err != nil {
		h.respondError(w, err, "report station")
		return
	}

	h.writeJSON(w, http.StatusOK, toStationResponse(station))
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type feedbackResponse struct {
	ID        string `json:"id"`
	StationID string `json:"station_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toFeedbackResponse(f *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:        f.ID,
		StationID: f.StationID,
		UserID:    f.UserID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}

// GiveFeedback сохраняет отзыв текущего пользователя о станции.
func (h *Handler) GiveFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	feedback, err := h.service.GiveFeedback(r.Context(), actor, chi.URLParam(r, "stationID"), req.Rating, req.Comment)
	if err != nil {
		h.respondError(w, err, "give feedback")
		return
	}

	h.writeJSON(w, http.StatusCreated, toFeedbackResponse(feedback))
}

// ListStationFeedback возвращает отзывы о станции.
func (h *Handler) ListStationFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := h.service.ListStationFeedback(r.Context(), chi.URLParam(r, "stationID"))
	if err != nil {
		h.respondError(w, err, "list station feedback")
		return
	}

	resp := make([]feedbackResponse, 0, len(feedback))
	for i := range feedback {
		resp = append(resp, toFeedbackResponse(&feedback[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type activityResponse struct {
	ID           string `json:"id"`
	StationID    string `json:"station_id"`
	Refilled     bool   `json:"refilled"`
	Settled      bool   `json:"settled"`
	PointsEarned int    `json:"points_earned"`
	BottlesSaved int    `json:"bottles_saved"`
	CreatedAt    string `json:"created_at"`
}

func toActivityResponse(a *model.RefillActivity) activityResponse {
	return activityResponse{
		ID:           a.ID,
		StationID:    a.StationID,
		Refilled:     a.Refilled,
		Settled:      a.Settled,
		PointsEarned: a.PointsEarned,
		BottlesSaved: a.BottlesSaved,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}

// RequestDirections регистрирует отправку пользователя к станции и возвращает
// ожидающую активность.
func (h *Handler) RequestDirections(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	activity, err := h.service.RequestDirections(r.Context(), actor, chi.URLParam(r, "stationID"))
	if err != nil {
		h.respondError(w, err, "request directions")
		return
	}

	h.writeJSON(w, http.StatusCreated, toActivityResponse(activity))
}

type refillPromptResponse struct {
	Prompt   bool              `json:"prompt"`
	Activity *activityResponse `json:"activity,omitempty"`
}

// GetRefillPrompt сообщает, нужно ли спросить пользователя о пополнении.
// Срок действия подсказки проверяется на сервере.
func (h *Handler) GetRefillPrompt(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	activity, err := h.service.PendingRefillPrompt(r.Context(), actor, chi.URLParam(r, "stationID"))
	if err != nil {
		h.respondError(w, err, "get refill prompt")
		return
	}

	resp := refillPromptResponse{Prompt: activity != nil}
	if activity != nil {
		a := toActivityResponse(activity)
		resp.Activity = &a
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type settleRefillRequest struct {
	Refilled bool `json:"refilled"`
}

// SettleRefill принимает ответ пользователя на вопрос о пополнении.
// Отсутствие подходящей активности — no-op с пустым ответом.
func (h *Handler) SettleRefill(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req settleRefillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	activity, err := h.service.SettleRefillConfirmation(r.Context(), actor, chi.URLParam(r, "stationID"), req.Refilled)
	if err != nil {
		h.respondError(w, err, "settle refill")
		return
	}

	if activity == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, toActivityResponse(activity))
}
