package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refillia/refillia-system/internal/model"
)

// CreateFeedback сохраняет отзыв и в той же транзакции применяет дельту
// агрегатов к профилю автора. Уникальный индекс по паре пользователь-станция
// закрывает гонку двух одновременных отзывов: второй коммит получает
// ErrFeedbackExists, а не двойное начисление.
func (r *PostgresRepository) CreateFeedback(ctx context.Context, f model.Feedback, delta model.ProfileDelta) (*model.Feedback, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	f.ID = uuid.NewString()

	row := tx.QueryRow(ctx,
		`INSERT INTO feedback (id, station_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		f.ID, f.StationID, f.UserID, f.Rating, f.Comment,
	)
	if err := row.Scan(&f.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return nil, ErrFeedbackExists
			case pgerrcode.ForeignKeyViolation:
				return nil, ErrStationNotFound
			}
		}
		return nil, fmt.Errorf("insert feedback: %w", err)
	}

	if err := applyProfileDelta(ctx, tx, f.UserID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &f, nil
}

// GetFeedbackByStation возвращает отзывы о станции, новые сверху.
func (r *PostgresRepository) GetFeedbackByStation(ctx context.Context, stationID string) ([]model.Feedback, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, station_id, user_id, rating, comment, created_at
		 FROM feedback
		 WHERE station_id = $1
		 ORDER BY created_at DESC`,
		stationID,
	)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	defer rows.Close()

	var res []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.StationID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		res = append(res, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const activityColumns = `id, user_id, station_id, refilled, settled, points_earned, bottles_saved, created_at, updated_at`

func scanActivity(row pgx.Row) (*model.RefillActivity, error) {
	var a model.RefillActivity
	err := row.Scan(&a.ID, &a.UserID, &a.StationID, &a.Refilled, &a.Settled,
		&a.PointsEarned, &a.BottlesSaved, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreatePendingActivity создаёт ожидающую активность для пары пользователь-станция.
// Частичный уникальный индекс допускает не более одной ожидающей активности на
// пару; повторный запрос направлений — новый поход к станции, поэтому у
// существующей записи отсчёт окна подтверждения начинается заново. Иначе одна
// брошенная активность навсегда блокировала бы подтверждения для пары.
func (r *PostgresRepository) CreatePendingActivity(ctx context.Context, userID, stationID string) (*model.RefillActivity, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx,
		`INSERT INTO refill_activities (id, user_id, station_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, station_id) WHERE NOT settled
		 DO UPDATE SET created_at = NOW(), updated_at = NOW()
		 RETURNING `+activityColumns,
		uuid.NewString(), userID, stationID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("upsert pending activity: %w", err)
	}

	return a, nil
}

// GetPendingActivity возвращает ожидающую активность пары пользователь-станция,
// созданную не раньше notBefore.
func (r *PostgresRepository) GetPendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time) (*model.RefillActivity, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx,
		`SELECT `+activityColumns+`
		 FROM refill_activities
		 WHERE user_id = $1 AND station_id = $2 AND NOT settled AND created_at >= $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, stationID, notBefore,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingActivity
		}
		return nil, fmt.Errorf("select pending activity: %w", err)
	}
	return a, nil
}

// SettlePendingActivity блокирует ожидающую активность, записывает ответ
// пользователя и в той же транзакции применяет дельту к профилю.
// Блокировка строки сериализует одновременные подтверждения одной активности.
func (r *PostgresRepository) SettlePendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time, refilled bool, points, bottles int, delta model.ProfileDelta) (*model.RefillActivity, error) {
	var settled *model.RefillActivity
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		a, err := scanActivity(tx.QueryRow(ctx,
			`SELECT `+activityColumns+`
			 FROM refill_activities
			 WHERE user_id = $1 AND station_id = $2 AND NOT settled AND created_at >= $3
			 ORDER BY created_at DESC
			 LIMIT 1
			 FOR UPDATE`,
			userID, stationID, notBefore,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoPendingActivity
			}
			return fmt.Errorf("lock pending activity: %w", err)
		}

		row := tx.QueryRow(ctx,
			`UPDATE refill_activities
			 SET refilled = $2, settled = TRUE, points_earned = $3, bottles_saved = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+activityColumns,
			a.ID, refilled, points, bottles,
		)
		a, err = scanActivity(row)
		if err != nil {
			return fmt.Errorf("settle activity: %w", err)
		}

		if err := applyProfileDelta(ctx, tx, userID, delta); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		settled = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settled, nil
}
