package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/refillia/refillia-system/internal/model"
)

// Очередь модерации — read-модель над хранилищем; все мутации идут через
// операции жизненного цикла. После approve/reject вызывающая сторона обязана
// перечитать обе проекции: станция покидает одну и появляется в другой.

// ListPendingStations возвращает станции, ожидающие модерации, вместе с
// автором, новые сверху. Только для администратора.
func (s *Service) ListPendingStations(ctx context.Context, actor Actor) ([]model.ModerationRow, error) {
	if !actor.Admin {
		return nil, ErrAccessDenied
	}
	return s.repo.ListPendingStations(ctx)
}

// ListVerifiedStations возвращает проверенные станции, недавно обновлённые
// сверху, с ограничением размера. Только для администратора.
func (s *Service) ListVerifiedStations(ctx context.Context, actor Actor) ([]model.ModerationRow, error) {
	if !actor.Admin {
		return nil, ErrAccessDenied
	}
	return s.repo.ListVerifiedStations(ctx, s.policy.VerifiedListLimit)
}

// SearchStations ищет станции по подстроке без учёта регистра. Только для
// администратора.
func (s *Service) SearchStations(ctx context.Context, actor Actor, query string) ([]model.ModerationRow, error) {
	if !actor.Admin {
		return nil, ErrAccessDenied
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	return s.repo.SearchStations(ctx, strings.TrimSpace(query))
}

// ListPublicStations возвращает проверенные станции для карты поиска.
func (s *Service) ListPublicStations(ctx context.Context) ([]model.Station, error) {
	rows, err := s.repo.ListVerifiedStations(ctx, s.policy.VerifiedListLimit)
	if err != nil {
		return nil, err
	}

	stations := make([]model.Station, 0, len(rows))
	for _, row := range rows {
		stations = append(stations, row.Station)
	}
	return stations, nil
}

// GetStation возвращает станцию по идентификатору. Непроверенные станции
// видны только их автору и администратору.
func (s *Service) GetStation(ctx context.Context, actor Actor, stationID string) (*model.Station, error) {
	station, err := s.repo.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if station.Status != model.StationStatusVerified && !actor.Admin && station.AddedBy != actor.ID {
		return nil, ErrAccessDenied
	}

	return station, nil
}
