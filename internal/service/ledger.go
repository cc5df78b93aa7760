package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/refillia/refillia-system/internal/metrics"
	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/repository"
	"github.com/refillia/refillia-system/internal/validation"
)

// GiveFeedback сохраняет отзыв о проверенной станции и начисляет автору
// баллы в одной транзакции со вставкой. Повторный отзыв той же пары
// пользователь-станция возвращает repository.ErrFeedbackExists.
func (s *Service) GiveFeedback(ctx context.Context, actor Actor, stationID string, rating int, comment string) (*model.Feedback, error) {
	if !validation.IsValidRating(rating) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if station.Status != model.StationStatusVerified {
		return nil, fmt.Errorf("%w: feedback is accepted only for verified stations", ErrValidation)
	}

	feedback := model.Feedback{
		StationID: stationID,
		UserID:    actor.ID,
		Rating:    rating,
		Comment:   comment,
	}

	delta := model.ProfileDelta{
		Points:        s.policy.PointsFeedback,
		FeedbackGiven: 1,
	}

	created, err := s.repo.CreateFeedback(ctx, feedback, delta)
	if err != nil {
		return nil, err
	}

	metrics.FeedbackGiven.Inc()
	metrics.PointsAwarded.Add(float64(delta.Points))

	return created, nil
}

// ListStationFeedback возвращает отзывы о станции, новые сверху.
func (s *Service) ListStationFeedback(ctx context.Context, stationID string) ([]model.Feedback, error) {
	if _, err := s.repo.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	return s.repo.GetFeedbackByStation(ctx, stationID)
}

// RequestDirections регистрирует отправку пользователя к проверенной станции
// и создаёт ожидающую активность. Повторный запрос возвращает уже существующую
// ожидающую активность пары.
func (s *Service) RequestDirections(ctx context.Context, actor Actor, stationID string) (*model.RefillActivity, error) {
	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if station.Status != model.StationStatusVerified {
		return nil, fmt.Errorf("%w: directions are available only for verified stations", ErrValidation)
	}

	return s.repo.CreatePendingActivity(ctx, actor.ID, stationID)
}

// PendingRefillPrompt возвращает ожидающую активность пары пользователь-станция,
// если она ещё укладывается в окно подтверждения. Возвращает nil, если
// подсказывать нечего: активности нет или окно истекло. Срок проверяется
// по created_at на сервере; клиентская отметка времени — только напоминание UI.
func (s *Service) PendingRefillPrompt(ctx context.Context, actor Actor, stationID string) (*model.RefillActivity, error) {
	notBefore := s.now().Add(-s.policy.RefillConfirmWindow)

	activity, err := s.repo.GetPendingActivity(ctx, actor.ID, stationID, notBefore)
	if err != nil {
		if errors.Is(err, repository.ErrNoPendingActivity) {
			return nil, nil
		}
		return nil, err
	}
	return activity, nil
}

// SettleRefillConfirmation записывает ответ пользователя по ожидающей
// активности и применяет дельту к профилю в одной транзакции. Отсутствие
// подходящей активности — документированный no-op: просроченные активности
// остаются неурегулированными навсегда.
func (s *Service) SettleRefillConfirmation(ctx context.Context, actor Actor, stationID string, confirmed bool) (*model.RefillActivity, error) {
	notBefore := s.now().Add(-s.policy.RefillConfirmWindow)

	points := s.policy.PointsRefillDeclined
	bottles := 0
	if confirmed {
		points = s.policy.PointsRefillConfirmed
		bottles = 1
	}

	delta := model.ProfileDelta{
		Points:       points,
		BottlesSaved: bottles,
	}

	activity, err := s.repo.SettlePendingActivity(ctx, actor.ID, stationID, notBefore, confirmed, points, bottles, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNoPendingActivity) {
			return nil, nil
		}
		return nil, err
	}

	outcome := "declined"
	if confirmed {
		outcome = "confirmed"
	}
	metrics.RefillSettlements.WithLabelValues(outcome).Inc()
	metrics.PointsAwarded.Add(float64(points))

	return activity, nil
}
