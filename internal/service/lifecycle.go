package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/refillia/refillia-system/internal/metrics"
	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/validation"
)

// StationInput содержит поля заявки на новую станцию.
type StationInput struct {
	Name        string
	Description string
	Landmark    string
	Contact     string
	OpeningTime string
	ClosingTime string
	Days        string
	WaterLevel  string
	Latitude    float64
	Longitude   float64
}

// SubmitStation создаёт новую станцию со статусом unverified и начисляет
// автору баллы за заявку в одной транзакции со вставкой.
func (s *Service) SubmitStation(ctx context.Context, actor Actor, in StationInput) (*model.Station, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: station name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("%w: station description is required", ErrValidation)
	}
	if !validation.IsValidCoordinates(in.Latitude, in.Longitude) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}

	station := model.Station{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Landmark:    strings.TrimSpace(in.Landmark),
		Contact:     strings.TrimSpace(in.Contact),
		OpeningTime: in.OpeningTime,
		ClosingTime: in.ClosingTime,
		Days:        in.Days,
		WaterLevel:  in.WaterLevel,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		AddedBy:     actor.ID,
	}

	delta := model.ProfileDelta{
		Points:        s.policy.PointsStationSubmitted,
		StationsAdded: 1,
	}

	created, err := s.repo.CreateStation(ctx, station, delta)
	if err != nil {
		return nil, err
	}

	metrics.StationsSubmitted.Inc()
	metrics.PointsAwarded.Add(float64(delta.Points))

	return created, nil
}

// reviewableStatuses перечисляет статусы, из которых администратор может
// принять решение. Пожалованные станции возвращаются в очередь модерации.
var reviewableStatuses = []model.StationStatus{
	model.StationStatusUnverified,
	model.StationStatusReported,
}

// ReviewStation применяет решение администратора к станции. Повторное
// решение с тем же исходом — идемпотентный no-op без повторного начисления;
// решение с другим исходом возвращает ErrReviewConflict.
func (s *Service) ReviewStation(ctx context.Context, actor Actor, stationID string, decision model.ReviewDecision) (*model.Station, error) {
	if !actor.Admin {
		return nil, ErrAccessDenied
	}

	var target model.StationStatus
	switch decision {
	case model.DecisionVerified:
		target = model.StationStatusVerified
	case model.DecisionRejected:
		target = model.StationStatusRejected
	default:
		return nil, fmt.Errorf("%w: unknown review decision %q", ErrValidation, decision)
	}

	// Бонус автору едет в той же транзакции, что и смена статуса: станция
	// не может стать verified без начисления.
	var bonus model.ProfileDelta
	if decision == model.DecisionVerified && s.policy.PointsStationVerified > 0 {
		bonus = model.ProfileDelta{Points: s.policy.PointsStationVerified}
	}

	transitioned, err := s.repo.TransitionStationStatus(ctx, stationID, target, reviewableStatuses, bonus)
	if err != nil {
		return nil, err
	}

	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if !transitioned {
		// Станция уже была рассмотрена: тот же исход — no-op, иной — конфликт.
		if station.Status == target {
			return station, nil
		}
		return nil, fmt.Errorf("%w: station is %s", ErrReviewConflict, station.Status)
	}

	metrics.ModerationDecisions.WithLabelValues(string(decision)).Inc()
	if bonus.Points > 0 {
		metrics.PointsAwarded.Add(float64(bonus.Points))
	}

	return station, nil
}

// EditVerifiedStation обновляет описательные поля проверенной станции.
// Редактировать может администратор или автор станции; координаты и статус
// неизменяемы.
func (s *Service) EditVerifiedStation(ctx context.Context, actor Actor, stationID string, edit model.StationEdit) (*model.Station, error) {
	if edit.Name != nil && strings.TrimSpace(*edit.Name) == "" {
		return nil, fmt.Errorf("%w: station name cannot be empty", ErrValidation)
	}
	if edit.Description != nil && strings.TrimSpace(*edit.Description) == "" {
		return nil, fmt.Errorf("%w: station description cannot be empty", ErrValidation)
	}

	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if !actor.Admin && station.AddedBy != actor.ID {
		return nil, ErrAccessDenied
	}
	if station.Status != model.StationStatusVerified {
		return nil, fmt.Errorf("%w: only verified stations can be edited", ErrAccessDenied)
	}

	updated, ok, err := s.repo.UpdateVerifiedStationFields(ctx, stationID, edit)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Статус сменился между чтением и обновлением.
		return nil, fmt.Errorf("%w: only verified stations can be edited", ErrAccessDenied)
	}

	return updated, nil
}

// DeleteStation удаляет станцию вместе с отзывами и активностями. Только для
// администратора.
func (s *Service) DeleteStation(ctx context.Context, actor Actor, stationID string) error {
	if !actor.Admin {
		return ErrAccessDenied
	}
	return s.repo.DeleteStationCascade(ctx, stationID)
}

// ReportStation помечает проверенную станцию как пожалованную пользователем.
// Станция исчезает из публичного списка и возвращается в очередь модерации.
func (s *Service) ReportStation(ctx context.Context, actor Actor, stationID string) (*model.Station, error) {
	transitioned, err := s.repo.TransitionStationStatus(ctx, stationID, model.StationStatusReported,
		[]model.StationStatus{model.StationStatusVerified}, model.ProfileDelta{})
	if err != nil {
		return nil, err
	}

	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if !transitioned {
		if station.Status == model.StationStatusReported {
			return station, nil
		}
		return nil, fmt.Errorf("%w: only verified stations can be reported", ErrValidation)
	}

	return station, nil
}
