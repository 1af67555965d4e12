// Package service реализует бизнес-логику сервиса учёта купонов.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/coupontracker/internal/dashboard"
	"github.com/mmeshcher/coupontracker/internal/genai"
	"github.com/mmeshcher/coupontracker/internal/model"
	"github.com/mmeshcher/coupontracker/internal/validation"
	"github.com/mmeshcher/coupontracker/internal/view"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	ListCoupons(ctx context.Context) ([]model.Coupon, error)
	GetCoupon(ctx context.Context, id string) (*model.Coupon, error)
	CreateCoupon(ctx context.Context, c model.Coupon) error
	UpdateCoupon(ctx context.Context, c model.Coupon) error
	DeleteCoupon(ctx context.Context, id string) error
}

// Generator описывает сценарии генеративной модели, используемые сервисом.
type Generator interface {
	SuggestCouponTags(ctx context.Context, in genai.TagsInput) (*genai.TagsOutput, error)
	SummarizeCompanyInfo(ctx context.Context, in genai.SummaryInput) (*genai.SummaryOutput, error)
}

// Clock возвращает текущий момент времени.
type Clock interface {
	Now() time.Time
}

// SystemClock читает системные часы.
type SystemClock struct{}

// Now реализует Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Service содержит бизнес-логику сервиса учёта купонов.
type Service struct {
	repo      Repository
	gen       Generator
	engine    *view.Engine
	formatter *dashboard.Formatter
	validator *validation.Validator
	clock     Clock
}

// NewService создаёт сервис. При clock == nil используются системные часы.
func NewService(repo Repository, gen Generator, engine *view.Engine, formatter *dashboard.Formatter, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		repo:      repo,
		gen:       gen,
		engine:    engine,
		formatter: formatter,
		validator: validation.NewValidator(),
		clock:     clock,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ListCoupons возвращает отфильтрованный и отсортированный список купонов со статусами.
func (s *Service) ListCoupons(ctx context.Context, filter model.FilterSpec, sortSpec model.SortSpec) ([]model.CouponView, error) {
	coupons, err := s.repo.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.View(coupons, filter, sortSpec, s.clock.Now())
}

// GetCoupon возвращает купон со статусом на текущий момент.
func (s *Service) GetCoupon(ctx context.Context, id string) (*model.CouponView, error) {
	c, err := s.repo.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.CouponView{Coupon: *c, Status: s.engine.Status(*c, s.clock.Now())}, nil
}

// CreateCoupon проверяет форму и создаёт новый купон.
func (s *Service) CreateCoupon(ctx context.Context, in validation.CouponInput) (*model.CouponView, error) {
	in, err := s.validator.Validate(in)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c := model.Coupon{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.ApplyTo(&c)

	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		return nil, err
	}
	return &model.CouponView{Coupon: c, Status: s.engine.Status(c, now)}, nil
}

// UpdateCoupon проверяет форму и обновляет существующий купон.
func (s *Service) UpdateCoupon(ctx context.Context, id string, in validation.CouponInput) (*model.CouponView, error) {
	in, err := s.validator.Validate(in)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	in.ApplyTo(c)
	c.UpdatedAt = now

	if err := s.repo.UpdateCoupon(ctx, *c); err != nil {
		return nil, err
	}
	return &model.CouponView{Coupon: *c, Status: s.engine.Status(*c, now)}, nil
}

// DeleteCoupon удаляет купон.
func (s *Service) DeleteCoupon(ctx context.Context, id string) error {
	return s.repo.DeleteCoupon(ctx, id)
}

// Dashboard возвращает сводные показатели. Если задано название компании, добавляется её краткое описание;
// ошибка модели не прерывает построение сводки, а отражается в поле SummaryError.
func (s *Service) Dashboard(ctx context.Context, companyName string) (*model.DashboardSummary, error) {
	coupons, err := s.repo.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	if err := view.Validate(coupons); err != nil {
		return nil, err
	}

	summary := dashboard.Summarize(s.engine, coupons, s.clock.Now())
	if s.formatter != nil {
		summary.ActiveAmountFmt = s.formatter.Money(summary.ActiveAmount)
	}

	companyName = strings.TrimSpace(companyName)
	if companyName == "" || s.gen == nil {
		return summary, nil
	}

	summary.CompanyName = companyName
	out, err := s.gen.SummarizeCompanyInfo(ctx, genai.SummaryInput{CompanyName: companyName})
	if err != nil {
		summary.SummaryError = err.Error()
		return summary, nil
	}
	summary.CompanySummary = out.Summary

	return summary, nil
}

// SuggestTags предлагает теги и категорию для купона.
func (s *Service) SuggestTags(ctx context.Context, companyName, couponCode string) (*genai.TagsOutput, error) {
	if s.gen == nil {
		return nil, &genai.GenerationError{Flow: "suggestCouponTags", Kind: genai.KindTransport, Err: fmt.Errorf("generator not configured")}
	}
	return s.gen.SuggestCouponTags(ctx, genai.TagsInput{CompanyName: companyName, CouponCode: couponCode})
}

// CompanySummary возвращает краткое описание компании.
func (s *Service) CompanySummary(ctx context.Context, companyName string) (string, error) {
	if s.gen == nil {
		return "", &genai.GenerationError{Flow: "summarizeCompanyInfo", Kind: genai.KindTransport, Err: fmt.Errorf("generator not configured")}
	}
	out, err := s.gen.SummarizeCompanyInfo(ctx, genai.SummaryInput{CompanyName: companyName})
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// StatusSnapshot возвращает сводку без описания компании; используется фоновыми задачами.
func (s *Service) StatusSnapshot(ctx context.Context) (*model.DashboardSummary, error) {
	return s.Dashboard(ctx, "")
}
