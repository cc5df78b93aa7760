// Package service реализует бизнес-логику сервиса рефиллиа: жизненный цикл
// станций, начисление баллов и очередь модерации.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/repository"
)

// ErrValidation возвращается при отсутствующих или некорректных входных данных.
var (
	ErrValidation = errors.New("validation failed")
	// ErrAccessDenied возвращается, если у вызывающего нет нужной роли или владения.
	ErrAccessDenied = errors.New("access denied")
	// ErrReviewConflict возвращается при конфликтующем повторном решении по станции.
	ErrReviewConflict = errors.New("conflicting review decision")
	// ErrInvalidCredentials возвращается при неверной паре логин-пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Actor описывает аутентифицированного инициатора операции. Передаётся
// явно в каждый вызов и никогда не хранится в состоянии сервиса.
type Actor struct {
	ID    string
	Admin bool
}

// Policy содержит настраиваемые величины начислений и окно подтверждения.
type Policy struct {
	PointsStationSubmitted int
	PointsStationVerified  int
	PointsFeedback         int
	PointsRefillConfirmed  int
	PointsRefillDeclined   int

	RefillConfirmWindow time.Duration
	VerifiedListLimit   int
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateProfile(ctx context.Context, username, email string, passwordHash []byte) (string, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, []byte, error)
	GetProfileByID(ctx context.Context, userID string) (*model.UserProfile, error)

	CreateStation(ctx context.Context, s model.Station, delta model.ProfileDelta) (*model.Station, error)
	GetStation(ctx context.Context, stationID string) (*model.Station, error)
	TransitionStationStatus(ctx context.Context, stationID string, to model.StationStatus, allowedFrom []model.StationStatus, ownerBonus model.ProfileDelta) (bool, error)
	UpdateVerifiedStationFields(ctx context.Context, stationID string, edit model.StationEdit) (*model.Station, bool, error)
	DeleteStationCascade(ctx context.Context, stationID string) error
	ListPendingStations(ctx context.Context) ([]model.ModerationRow, error)
	ListVerifiedStations(ctx context.Context, limit int) ([]model.ModerationRow, error)
	SearchStations(ctx context.Context, query string) ([]model.ModerationRow, error)

	CreateFeedback(ctx context.Context, f model.Feedback, delta model.ProfileDelta) (*model.Feedback, error)
	GetFeedbackByStation(ctx context.Context, stationID string) ([]model.Feedback, error)
	CreatePendingActivity(ctx context.Context, userID, stationID string) (*model.RefillActivity, error)
	GetPendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time) (*model.RefillActivity, error)
	SettlePendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time, refilled bool, points, bottles int, delta model.ProfileDelta) (*model.RefillActivity, error)
}

// Service содержит бизнес-логику сервиса рефиллиа.
type Service struct {
	repo   Repository
	policy Policy
	now    func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием и политикой начислений.
func NewService(repo Repository, policy Policy) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		now:    time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя и возвращает его профиль.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*model.UserProfile, error) {
	hashed := hashPassword(username, password)
	id, err := s.repo.CreateProfile(ctx, username, email, hashed)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProfileByID(ctx, id)
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его профиль.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.UserProfile, error) {
	p, hash, err := s.repo.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(username, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(hash) {
		return nil, ErrInvalidCredentials
	}

	return p, nil
}

func hashPassword(username, password string) []byte {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return sum[:]
}

// GetProfile возвращает профиль текущего пользователя.
func (s *Service) GetProfile(ctx context.Context, actor Actor) (*model.UserProfile, error) {
	return s.repo.GetProfileByID(ctx, actor.ID)
}

// Уровни профиля: один уровень на каждые 100 баллов.
const pointsPerLevel = 100

// ProfileLevel возвращает номер уровня для количества баллов.
func ProfileLevel(points int) int {
	return points/pointsPerLevel + 1
}

// LevelTitle возвращает звание уровня для количества баллов.
func LevelTitle(points int) string {
	switch {
	case points < 200:
		return "Hydration Helper"
	case points < 300:
		return "Refill Ranger"
	case points < 400:
		return "Water Warrior"
	default:
		return "Hydration Hero"
	}
}

var _ Repository = (*repository.PostgresRepository)(nil)
