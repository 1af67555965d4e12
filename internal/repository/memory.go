package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/coupontracker/internal/model"
)

// MemoryRepository хранит купоны в памяти процесса в порядке добавления.
type MemoryRepository struct {
	mu      sync.RWMutex
	order   []string
	coupons map[string]model.Coupon
}

// NewMemoryRepository создаёт репозиторий в памяти с начальным набором купонов.
func NewMemoryRepository(seed ...model.Coupon) *MemoryRepository {
	r := &MemoryRepository{
		coupons: make(map[string]model.Coupon, len(seed)),
	}
	for _, c := range seed {
		r.order = append(r.order, c.ID)
		r.coupons[c.ID] = clone(c)
	}
	return r
}

// SampleCoupons возвращает демонстрационные купоны, по одному на каждый отображаемый статус.
func SampleCoupons(now time.Time) []model.Coupon {
	day := 24 * time.Hour
	return []model.Coupon{
		{
			ID:          "1",
			CompanyName: "קפה גרג",
			CouponCode:  "GREG50",
			Amount:      50,
			ExpiryDate:  now.Add(60 * day),
			Category:    "אוכל",
			Notes:       "הערות לדוגמא",
			Tags:        []string{"טג", "דוגמא"},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "2",
			CompanyName: "אדידס",
			CouponCode:  "ADIDAS20",
			Amount:      20,
			ExpiryDate:  now.Add(5 * day),
			Category:    "אופנה",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "3",
			CompanyName: "H&M",
			CouponCode:  "HM15",
			Amount:      15,
			ExpiryDate:  now.Add(-10 * day),
			Category:    "אופנה",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:           "4",
			CompanyName:  "FOX",
			CouponCode:   "FOX30",
			Amount:       30,
			ExpiryDate:   now.Add(90 * day),
			Category:     "אופנה",
			StoredStatus: model.StoredStatusInactive,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func clone(c model.Coupon) model.Coupon {
	c.Tags = slices.Clone(c.Tags)
	return c
}

// Close ничего не делает: репозиторий в памяти не держит внешних ресурсов.
func (r *MemoryRepository) Close() error {
	return nil
}

// ListCoupons возвращает копии всех купонов в порядке добавления.
func (r *MemoryRepository) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Coupon, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, clone(r.coupons[id]))
	}
	return res, nil
}

// GetCoupon возвращает купон по идентификатору.
func (r *MemoryRepository) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	c = clone(c)
	return &c, nil
}

// CreateCoupon добавляет новый купон. Код купона уникален без учёта регистра.
func (r *MemoryRepository) CreateCoupon(ctx context.Context, c model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrCouponIDExists, c.ID)
	}
	if r.codeTaken(c.CouponCode, "") {
		return fmt.Errorf("%w: %s", ErrCouponCodeExists, c.CouponCode)
	}

	r.order = append(r.order, c.ID)
	r.coupons[c.ID] = clone(c)
	return nil
}

// UpdateCoupon заменяет существующий купон.
func (r *MemoryRepository) UpdateCoupon(ctx context.Context, c model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[c.ID]; !ok {
		return ErrCouponNotFound
	}
	if r.codeTaken(c.CouponCode, c.ID) {
		return fmt.Errorf("%w: %s", ErrCouponCodeExists, c.CouponCode)
	}

	r.coupons[c.ID] = clone(c)
	return nil
}

// DeleteCoupon удаляет купон по идентификатору.
func (r *MemoryRepository) DeleteCoupon(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[id]; !ok {
		return ErrCouponNotFound
	}

	delete(r.coupons, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

// codeTaken вызывается под блокировкой.
func (r *MemoryRepository) codeTaken(code, exceptID string) bool {
	for id, c := range r.coupons {
		if id != exceptID && strings.EqualFold(c.CouponCode, code) {
			return true
		}
	}
	return false
}
