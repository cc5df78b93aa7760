package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/refillia/refillia-system/internal/model"
)

const stationColumns = `id, name, description, landmark, contact, opening_time, closing_time,
	days, water_level, latitude, longitude, status, added_by, created_at, updated_at`

func scanStation(row pgx.Row) (*model.Station, error) {
	var s model.Station
	var status string
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Landmark, &s.Contact,
		&s.OpeningTime, &s.ClosingTime, &s.Days, &s.WaterLevel,
		&s.Latitude, &s.Longitude, &status, &s.AddedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.StationStatus(status)
	return &s, nil
}

// CreateStation сохраняет новую станцию со статусом unverified и в той же
// транзакции применяет дельту агрегатов к профилю автора.
func (r *PostgresRepository) CreateStation(ctx context.Context, s model.Station, delta model.ProfileDelta) (*model.Station, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	s.ID = uuid.NewString()
	s.Status = model.StationStatusUnverified

	row := tx.QueryRow(ctx,
		`INSERT INTO refill_stations
		 (id, name, description, landmark, contact, opening_time, closing_time, days, water_level, latitude, longitude, status, added_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description, s.Landmark, s.Contact, s.OpeningTime, s.ClosingTime,
		s.Days, s.WaterLevel, s.Latitude, s.Longitude, string(s.Status), s.AddedBy,
	)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert station: %w", err)
	}

	if err := applyProfileDelta(ctx, tx, s.AddedBy, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &s, nil
}

// GetStation возвращает станцию по идентификатору.
func (r *PostgresRepository) GetStation(ctx context.Context, stationID string) (*model.Station, error) {
	s, err := scanStation(r.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM refill_stations WHERE id = $1`,
		stationID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("get station: %w", err)
	}
	return s, nil
}

// TransitionStationStatus переводит станцию в новый статус, только если её
// текущий статус входит в allowedFrom. Возвращает true, если переход состоялся.
// Ненулевая ownerBonus применяется к профилю автора станции в той же
// транзакции, что и смена статуса: переход без начисления невозможен.
func (r *PostgresRepository) TransitionStationStatus(ctx context.Context, stationID string, to model.StationStatus, allowedFrom []model.StationStatus, ownerBonus model.ProfileDelta) (bool, error) {
	from := make([]string, 0, len(allowedFrom))
	for _, st := range allowedFrom {
		from = append(from, string(st))
	}

	var transitioned bool
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var addedBy string
		err = tx.QueryRow(ctx,
			`UPDATE refill_stations
			 SET status = $2, updated_at = NOW()
			 WHERE id = $1 AND status = ANY($3)
			 RETURNING added_by`,
			stationID, string(to), from,
		).Scan(&addedBy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				transitioned = false
				return nil
			}
			return fmt.Errorf("transition station status: %w", err)
		}

		if ownerBonus != (model.ProfileDelta{}) {
			if err := applyProfileDelta(ctx, tx, addedBy, ownerBonus); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		transitioned = true
		return nil
	})

	return transitioned, err
}

// UpdateVerifiedStationFields обновляет описательные поля проверенной станции.
// Координаты и статус этим запросом не изменяются. Возвращает false, если
// станция существует, но не находится в статусе verified.
func (r *PostgresRepository) UpdateVerifiedStationFields(ctx context.Context, stationID string, edit model.StationEdit) (*model.Station, bool, error) {
	s, err := scanStation(r.pool.QueryRow(ctx,
		`UPDATE refill_stations
		 SET name = COALESCE($2, name),
		     description = COALESCE($3, description),
		     landmark = COALESCE($4, landmark),
		     contact = COALESCE($5, contact),
		     opening_time = COALESCE($6, opening_time),
		     closing_time = COALESCE($7, closing_time),
		     days = COALESCE($8, days),
		     water_level = COALESCE($9, water_level),
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'verified'
		 RETURNING `+stationColumns,
		stationID, edit.Name, edit.Description, edit.Landmark, edit.Contact,
		edit.OpeningTime, edit.ClosingTime, edit.Days, edit.WaterLevel,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Либо станции нет, либо она не verified — различаем отдельным чтением.
			if _, getErr := r.GetStation(ctx, stationID); getErr != nil {
				return nil, false, getErr
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("update station fields: %w", err)
	}
	return s, true, nil
}

// DeleteStationCascade удаляет станцию вместе с отзывами и активностями
// в одной транзакции, в порядке зависимостей. При ошибке любого шага
// транзакция откатывается целиком, а ошибка называет шаг.
func (r *PostgresRepository) DeleteStationCascade(ctx context.Context, stationID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM feedback WHERE station_id = $1`, stationID); err != nil {
		return fmt.Errorf("delete station feedback: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM refill_activities WHERE station_id = $1`, stationID); err != nil {
		return fmt.Errorf("delete station activities: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM refill_stations WHERE id = $1`, stationID)
	if err != nil {
		return fmt.Errorf("delete station: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *PostgresRepository) queryModerationRows(ctx context.Context, query string, args ...any) ([]model.ModerationRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select stations: %w", err)
	}
	defer rows.Close()

	var res []model.ModerationRow
	for rows.Next() {
		var m model.ModerationRow
		var status string
		var username, email *string
		s := &m.Station
		err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Landmark, &s.Contact,
			&s.OpeningTime, &s.ClosingTime, &s.Days, &s.WaterLevel,
			&s.Latitude, &s.Longitude, &status, &s.AddedBy, &s.CreatedAt, &s.UpdatedAt,
			&username, &email)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		s.Status = model.StationStatus(status)
		if username != nil {
			m.Submitter = &model.SubmitterIdentity{Username: *username, Email: *email}
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const moderationColumns = `s.id, s.name, s.description, s.landmark, s.contact, s.opening_time,
	s.closing_time, s.days, s.water_level, s.latitude, s.longitude, s.status, s.added_by,
	s.created_at, s.updated_at, p.username, p.email`

// ListPendingStations возвращает станции, ожидающие модерации (unverified и
// reported), вместе с автором, новые сверху.
func (r *PostgresRepository) ListPendingStations(ctx context.Context) ([]model.ModerationRow, error) {
	return r.queryModerationRows(ctx,
		`SELECT `+moderationColumns+`
		 FROM refill_stations s
		 LEFT JOIN user_profiles p ON p.id = s.added_by
		 WHERE s.status = ANY($1)
		 ORDER BY s.created_at DESC`,
		[]string{string(model.StationStatusUnverified), string(model.StationStatusReported)},
	)
}

// ListVerifiedStations возвращает проверенные станции, недавно обновлённые сверху.
func (r *PostgresRepository) ListVerifiedStations(ctx context.Context, limit int) ([]model.ModerationRow, error) {
	return r.queryModerationRows(ctx,
		`SELECT `+moderationColumns+`
		 FROM refill_stations s
		 LEFT JOIN user_profiles p ON p.id = s.added_by
		 WHERE s.status = 'verified'
		 ORDER BY s.updated_at DESC
		 LIMIT $1`,
		limit,
	)
}

// likeEscaper экранирует метасимволы LIKE, чтобы запрос искал их буквально.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func searchPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// SearchStations ищет станции по подстроке без учёта регистра в названии,
// описании, ориентире, а также в имени и почте автора.
func (r *PostgresRepository) SearchStations(ctx context.Context, query string) ([]model.ModerationRow, error) {
	pattern := searchPattern(query)
	return r.queryModerationRows(ctx,
		`SELECT `+moderationColumns+`
		 FROM refill_stations s
		 LEFT JOIN user_profiles p ON p.id = s.added_by
		 WHERE s.name ILIKE $1 OR s.description ILIKE $1 OR s.landmark ILIKE $1
		    OR p.username ILIKE $1 OR p.email ILIKE $1
		 ORDER BY s.created_at DESC`,
		pattern,
	)
}
