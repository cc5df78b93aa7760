// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/refillia/refillia-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать профиль с занятым именем или почтой.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если профиль пользователя не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrStationNotFound возвращается, если станция с указанным идентификатором не существует.
	ErrStationNotFound = errors.New("station not found")
	// ErrFeedbackExists возвращается при повторном отзыве той же пары пользователь-станция.
	ErrFeedbackExists = errors.New("feedback already exists for this station")
	// ErrNoPendingActivity возвращается, если у пары пользователь-станция нет ожидающей активности.
	ErrNoPendingActivity = errors.New("no pending refill activity")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateProfile создаёт новый профиль пользователя и возвращает его идентификатор.
func (r *PostgresRepository) CreateProfile(ctx context.Context, username, email string, passwordHash []byte) (string, error) {
	id := uuid.NewString()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_profiles (id, username, email, password_hash) VALUES ($1, $2, $3, $4)`,
		id, username, email, passwordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return "", fmt.Errorf("create profile: %w", err)
	}
	return id, nil
}

// GetProfileByUsername возвращает профиль пользователя по имени.
func (r *PostgresRepository) GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, []byte, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, is_admin, points, stations_added, feedback_given, bottles_saved, created_at
		 FROM user_profiles WHERE username = $1`,
		username,
	)

	var p model.UserProfile
	var hash []byte
	err := row.Scan(&p.ID, &p.Username, &p.Email, &hash, &p.IsAdmin,
		&p.Points, &p.StationsAdded, &p.FeedbackGiven, &p.BottlesSaved, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get profile by username: %w", err)
	}

	return &p, hash, nil
}

// GetProfileByID возвращает профиль пользователя по идентификатору.
func (r *PostgresRepository) GetProfileByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, is_admin, points, stations_added, feedback_given, bottles_saved, created_at
		 FROM user_profiles WHERE id = $1`,
		userID,
	)

	var p model.UserProfile
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.IsAdmin,
		&p.Points, &p.StationsAdded, &p.FeedbackGiven, &p.BottlesSaved, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// querier покрывает pgxpool.Pool и pgx.Tx для выполнения дельты внутри и вне транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// applyProfileDelta атомарно применяет дельту агрегатов к профилю пользователя
// одним выражением UPDATE. Вызывается только внутри транзакции породившего
// дельту события: начисление не существует отдельно от события.
func applyProfileDelta(ctx context.Context, q querier, userID string, delta model.ProfileDelta) error {
	cmdTag, err := q.Exec(ctx,
		`UPDATE user_profiles
		 SET points = points + $2,
		     stations_added = stations_added + $3,
		     feedback_given = feedback_given + $4,
		     bottles_saved = bottles_saved + $5
		 WHERE id = $1`,
		userID, delta.Points, delta.StationsAdded, delta.FeedbackGiven, delta.BottlesSaved,
	)
	if err != nil {
		return fmt.Errorf("apply profile delta: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
