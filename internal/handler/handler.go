// Package handler содержит HTTP-обработчики API сервиса рефиллиа.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/refillia/refillia-system/internal/middleware"
	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/repository"
	"github.com/refillia/refillia-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, email, password string) (*model.UserProfile, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.UserProfile, error)
	GetProfile(ctx context.Context, actor service.Actor) (*model.UserProfile, error)

	SubmitStation(ctx context.Context, actor service.Actor, in service.StationInput) (*model.Station, error)
	ReviewStation(ctx context.Context, actor service.Actor, stationID string, decision model.ReviewDecision) (*model.Station, error)
	EditVerifiedStation(ctx context.Context, actor service.Actor, stationID string, edit model.StationEdit) (*model.Station, error)
	DeleteStation(ctx context.Context, actor service.Actor, stationID string) error
	ReportStation(ctx context.Context, actor service.Actor, stationID string) (*model.Station, error)
	GetStation(ctx context.Context, actor service.Actor, stationID string) (*model.Station, error)

	ListPendingStations(ctx context.Context, actor service.Actor) ([]model.ModerationRow, error)
	ListVerifiedStations(ctx context.Context, actor service.Actor) ([]model.ModerationRow, error)
	SearchStations(ctx context.Context, actor service.Actor, query string) ([]model.ModerationRow, error)
	ListPublicStations(ctx context.Context) ([]model.Station, error)

	GiveFeedback(ctx context.Context, actor service.Actor, stationID string, rating int, comment string) (*model.Feedback, error)
	ListStationFeedback(ctx context.Context, stationID string) ([]model.Feedback, error)
	RequestDirections(ctx context.Context, actor service.Actor, stationID string) (*model.RefillActivity, error)
	PendingRefillPrompt(ctx context.Context, actor service.Actor, stationID string) (*model.RefillActivity, error)
	SettleRefillConfirmation(ctx context.Context, actor service.Actor, stationID string, confirmed bool) (*model.RefillActivity, error)
}

// Handler реализует HTTP-обработчики API сервиса рефиллиа.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func actorFromContext(ctx context.Context) (service.Actor, bool) {
	identity, ok := middleware.GetIdentityFromContext(ctx)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: identity.UserID, Admin: identity.Admin}, true
}

// respondError переводит ошибки бизнес-логики в HTTP-статусы.
// Неклассифицированные ошибки хранилища логируются и отдаются как 500
// с нейтральным текстом.
func (h *Handler) respondError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, repository.ErrUserNotFound):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, service.ErrAccessDenied):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, repository.ErrStationNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrFeedbackExists), errors.Is(err, service.ErrReviewConflict), errors.Is(err, repository.ErrUserExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error(op, zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type stationResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Landmark    string  `json:"landmark,omitempty"`
	Contact     string  `json:"contact,omitempty"`
	OpeningTime string  `json:"opening_time,omitempty"`
	ClosingTime string  `json:"closing_time,omitempty"`
	Days        string  `json:"days,omitempty"`
	WaterLevel  string  `json:"water_level,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Status      string  `json:"status"`
	AddedBy     string  `json:"added_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toStationResponse(s *model.Station) stationResponse {
	return stationResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Landmark:    s.Landmark,
		Contact:     s.Contact,
		OpeningTime: s.OpeningTime,
		ClosingTime: s.ClosingTime,
		Days:        s.Days,
		WaterLevel:  s.WaterLevel,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Status:      string(s.Status),
		AddedBy:     s.AddedBy,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

type profileResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"is_admin"`
	Points        int    `json:"points"`
	StationsAdded int    `json:"stations_added"`
	FeedbackGiven int    `json:"feedback_given"`
	BottlesSaved  int    `json:"bottles_saved"`
	Level         int    `json:"level"`
	LevelTitle    string `json:"level_title"`
	CreatedAt     string `json:"created_at"`
}

func toProfileResponse(p *model.UserProfile) profileResponse {
	return profileResponse{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		IsAdmin:       p.IsAdmin,
		Points:        p.Points,
		StationsAdded: p.StationsAdded,
		FeedbackGiven: p.FeedbackGiven,
		BottlesSaved:  p.BottlesSaved,
		Level:         service.ProfileLevel(p.Points),
		LevelTitle:    service.LevelTitle(p.Points),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	profile, err := h.service.RegisterUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err, "register user")
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Identity{UserID: profile.ID, Admin: profile.IsAdmin})
	h.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	profile, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(w, err, "login user")
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Identity{UserID: profile.ID, Admin: profile.IsAdmin})
	h.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Logout сбрасывает cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// GetProfile возвращает профиль текущего пользователя с уровнем.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), actor)
	if err != nil {
		h.respondError(w, err, "get profile")
		return
	}

	h.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}
