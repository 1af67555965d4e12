// Package repository содержит реализации хранилища купонов: PostgreSQL и память процесса.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/coupontracker/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrDataUnavailable возвращается, если коллекцию купонов не удалось получить.
	ErrDataUnavailable = errors.New("coupon data unavailable")
	// ErrCouponNotFound возвращается, если купон не найден.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponCodeExists возвращается при попытке сохранить купон с уже занятым кодом.
	ErrCouponCodeExists = errors.New("coupon code already exists")
	// ErrCouponIDExists возвращается при попытке создать купон с уже занятым идентификатором.
	ErrCouponIDExists = errors.New("coupon id already exists")
)

const couponsPrimaryKey = "coupons_pkey"

// PostgresRepository предоставляет доступ к купонам в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
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

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

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

// withRetry повторяет fn при временных ошибках БД с нарастающей задержкой.
func withRetry(ctx context.Context, delays []time.Duration, fn func() error) error {
	var err error

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const couponColumns = `id, company_name, coupon_code, amount_cents, expiry_date,
	COALESCE(category, ''), COALESCE(stored_status, ''), notes, tags, created_at, updated_at`

func scanCoupon(row pgx.Row) (model.Coupon, error) {
	var (
		c           model.Coupon
		amountCents int64
		status      string
	)
	err := row.Scan(&c.ID, &c.CompanyName, &c.CouponCode, &amountCents, &c.ExpiryDate,
		&c.Category, &status, &c.Notes, &c.Tags, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Coupon{}, err
	}

	c.Amount = fromCents(amountCents)
	c.StoredStatus = model.StoredStatus(status)
	return c, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListCoupons возвращает все купоны в порядке создания.
func (r *PostgresRepository) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	var res []model.Coupon

	err := withRetry(ctx, r.delays, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+couponColumns+`
			 FROM coupons
			 ORDER BY created_at, id`,
		)
		if err != nil {
			return fmt.Errorf("select coupons: %w", err)
		}
		defer rows.Close()

		res = res[:0]
		for rows.Next() {
			c, err := scanCoupon(rows)
			if err != nil {
				return fmt.Errorf("scan coupon: %w", err)
			}
			res = append(res, c)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	return res, nil
}

// GetCoupon возвращает купон по идентификатору.
func (r *PostgresRepository) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	var c model.Coupon

	err := withRetry(ctx, r.delays, func() error {
		var err error
		c, err = scanCoupon(r.pool.QueryRow(ctx,
			`SELECT `+couponColumns+` FROM coupons WHERE id = $1`,
			id,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return &c, nil
}

// CreateCoupon сохраняет новый купон.
func (r *PostgresRepository) CreateCoupon(ctx context.Context, c model.Coupon) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (id, company_name, coupon_code, amount_cents, expiry_date,
			category, stored_status, notes, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.CompanyName, c.CouponCode, toCents(c.Amount), c.ExpiryDate,
		nullable(c.Category), nullable(string(c.StoredStatus)), c.Notes, tagsOrEmpty(c.Tags),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == couponsPrimaryKey {
				return fmt.Errorf("%w: %s", ErrCouponIDExists, c.ID)
			}
			return fmt.Errorf("%w: %s", ErrCouponCodeExists, c.CouponCode)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// UpdateCoupon обновляет существующий купон.
func (r *PostgresRepository) UpdateCoupon(ctx context.Context, c model.Coupon) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE coupons
		 SET company_name = $2, coupon_code = $3, amount_cents = $4, expiry_date = $5,
			 category = $6, stored_status = $7, notes = $8, tags = $9, updated_at = $10
		 WHERE id = $1`,
		c.ID, c.CompanyName, c.CouponCode, toCents(c.Amount), c.ExpiryDate,
		nullable(c.Category), nullable(string(c.StoredStatus)), c.Notes, tagsOrEmpty(c.Tags),
		c.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: %s", ErrCouponCodeExists, c.CouponCode)
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// DeleteCoupon удаляет купон по идентификатору.
func (r *PostgresRepository) DeleteCoupon(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// uniqueViolation сообщает, нарушено ли ограничение уникальности, и возвращает имя ограничения.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
