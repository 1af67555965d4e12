package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/coupontracker/internal/model"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository(SampleCoupons(now)...)

	list, err := repo.ListCoupons(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "4", list[3].ID)

	c := model.Coupon{ID: "5", CompanyName: "Zara", CouponCode: "ZARA10", Amount: 10, ExpiryDate: now}
	require.NoError(t, repo.CreateCoupon(ctx, c))

	got, err := repo.GetCoupon(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "ZARA10", got.CouponCode)

	c.Amount = 7.5
	require.NoError(t, repo.UpdateCoupon(ctx, c))
	got, err = repo.GetCoupon(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, 7.5, got.Amount)

	require.NoError(t, repo.DeleteCoupon(ctx, "2"))
	list, err = repo.ListCoupons(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)
	assert.Equal(t, "3", list[1].ID)
	assert.Equal(t, "5", list[3].ID)
}

func TestMemoryRepository_Errors(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryRepository(SampleCoupons(now)...)

	_, err := repo.GetCoupon(ctx, "missing")
	assert.ErrorIs(t, err, ErrCouponNotFound)

	err = repo.UpdateCoupon(ctx, model.Coupon{ID: "missing"})
	assert.ErrorIs(t, err, ErrCouponNotFound)

	err = repo.DeleteCoupon(ctx, "missing")
	assert.ErrorIs(t, err, ErrCouponNotFound)

	err = repo.CreateCoupon(ctx, model.Coupon{ID: "new", CouponCode: "greg50"})
	assert.ErrorIs(t, err, ErrCouponCodeExists)

	err = repo.UpdateCoupon(ctx, model.Coupon{ID: "1", CouponCode: "HM15"})
	assert.ErrorIs(t, err, ErrCouponCodeExists)

	err = repo.CreateCoupon(ctx, model.Coupon{ID: "1", CouponCode: "UNUSED-CODE"})
	assert.ErrorIs(t, err, ErrCouponIDExists)
	assert.NotErrorIs(t, err, ErrCouponCodeExists)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.ListCoupons(canceled)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(SampleCoupons(time.Now())...)

	list, err := repo.ListCoupons(ctx)
	require.NoError(t, err)
	list[0].Tags[0] = "changed"
	list[0].CompanyName = "changed"

	got, err := repo.GetCoupon(ctx, "1")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", got.CompanyName)
	assert.NotEqual(t, "changed", got.Tags[0])
}

func TestSampleCoupons_CoverEveryStatus(t *testing.T) {
	now := time.Now()
	coupons := SampleCoupons(now)

	require.Len(t, coupons, 4)
	assert.True(t, coupons[0].ExpiryDate.After(now.Add(7*24*time.Hour)))
	assert.True(t, coupons[1].ExpiryDate.After(now))
	assert.True(t, coupons[2].ExpiryDate.Before(now))
	assert.Equal(t, model.StoredStatusInactive, coupons[3].StoredStatus)
}

func TestWithRetry(t *testing.T) {
	delays := []time.Duration{time.Millisecond, time.Millisecond}

	t.Run("retries serialization failure", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), delays, func() error {
			calls++
			if calls < 2 {
				return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after all delays", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), delays, func() error {
			calls++
			return errors.New("dial tcp: connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, len(delays)+1, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), delays, func() error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on context error", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), delays, func() error {
			calls++
			return context.Canceled
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(1999), toCents(19.99))
	assert.Equal(t, int64(5000), toCents(50))
	assert.Equal(t, 19.99, fromCents(1999))
}

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantConstraint string
		wantOK         bool
	}{
		{
			name:           "primary key",
			err:            fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: couponsPrimaryKey}),
			wantConstraint: couponsPrimaryKey,
			wantOK:         true,
		},
		{
			name:           "coupon code",
			err:            &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "coupons_code_uniq"},
			wantConstraint: "coupons_code_uniq",
			wantOK:         true,
		},
		{
			name: "other pg error",
			err:  &pgconn.PgError{Code: pgerrcode.CheckViolation},
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueViolation(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantConstraint, constraint)
		})
	}
}
