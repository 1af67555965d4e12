// Package handler содержит HTTP-обработчики API сервиса учёта купонов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coupontracker/internal/dashboard"
	"github.com/mmeshcher/coupontracker/internal/genai"
	"github.com/mmeshcher/coupontracker/internal/model"
	"github.com/mmeshcher/coupontracker/internal/repository"
	"github.com/mmeshcher/coupontracker/internal/validation"
	"github.com/mmeshcher/coupontracker/internal/view"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ListCoupons(ctx context.Context, filter model.FilterSpec, sortSpec model.SortSpec) ([]model.CouponView, error)
	GetCoupon(ctx context.Context, id string) (*model.CouponView, error)
	CreateCoupon(ctx context.Context, in validation.CouponInput) (*model.CouponView, error)
	UpdateCoupon(ctx context.Context, id string, in validation.CouponInput) (*model.CouponView, error)
	DeleteCoupon(ctx context.Context, id string) error
	Dashboard(ctx context.Context, companyName string) (*model.DashboardSummary, error)
	SuggestTags(ctx context.Context, companyName, couponCode string) (*genai.TagsOutput, error)
	CompanySummary(ctx context.Context, companyName string) (string, error)
}

// statusLabels сопоставляет статусам подписи интерфейса.
var statusLabels = map[model.DisplayStatus]string{
	model.StatusActive:       "פעיל",
	model.StatusInactive:     "לא פעיל",
	model.StatusExpired:      "פג תוקף",
	model.StatusExpiringSoon: "עומד לפוג בקרוב",
}

// Handler реализует HTTP-обработчики API сервиса учёта купонов.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

type couponResponse struct {
	ID            string    `json:"id"`
	CompanyName   string    `json:"companyName"`
	CouponCode    string    `json:"couponCode"`
	Amount        float64   `json:"amount"`
	ExpiryDate    time.Time `json:"expiryDate"`
	ExpiryDisplay string    `json:"expiryDateDisplay"`
	Category      string    `json:"category,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Tags          []string  `json:"tags"`
	Status        string    `json:"status"`
	StatusLabel   string    `json:"statusLabel"`
}

func toResponse(c model.CouponView) couponResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return couponResponse{
		ID:            c.ID,
		CompanyName:   c.CompanyName,
		CouponCode:    c.CouponCode,
		Amount:        c.Amount,
		ExpiryDate:    c.ExpiryDate,
		ExpiryDisplay: dashboard.FormatDate(c.ExpiryDate),
		Category:      c.Category,
		Notes:         c.Notes,
		Tags:          tags,
		Status:        string(c.Status),
		StatusLabel:   statusLabels[c.Status],
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отображает ошибки бизнес-логики в HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var fErrs validation.FieldErrors
	var vErr *view.ValidationError
	var genErr *genai.GenerationError

	switch {
	case errors.As(err, &fErrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fErrs})
	case errors.Is(err, repository.ErrCouponNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrCouponCodeExists):
		http.Error(w, "coupon code already exists", http.StatusConflict)
	case errors.Is(err, repository.ErrCouponIDExists):
		h.logger.Warn(op+" error", zap.Error(err))
		http.Error(w, "coupon id already exists", http.StatusConflict)
	case errors.Is(err, repository.ErrDataUnavailable):
		h.logger.Warn(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case errors.As(err, &genErr):
		if genErr.Kind == genai.KindInput {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Warn(op+" error", zap.Error(err), zap.String("flow", genErr.Flow))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	case errors.As(err, &vErr):
		h.logger.Error(op+" error", zap.Error(err), zap.String("couponID", vErr.CouponID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		h.logger.Error(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// ListCoupons возвращает список купонов с учётом фильтров и сортировки из параметров запроса.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseFilter(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sortSpec, err := parseSort(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	coupons, err := h.service.ListCoupons(r.Context(), filter, sortSpec)
	if err != nil {
		h.writeError(w, "list coupons", err)
		return
	}

	resp := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		resp = append(resp, toResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCoupon возвращает купон по идентификатору.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*c))
}

// CreateCoupon создаёт новый купон.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validation.CouponInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.CreateCoupon(r.Context(), req)
	if err != nil {
		h.writeError(w, "create coupon", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(*c))
}

// UpdateCoupon обновляет купон по идентификатору.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validation.CouponInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.UpdateCoupon(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, "update coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*c))
}

// DeleteCoupon удаляет купон по идентификатору.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCoupon(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete coupon", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard возвращает сводные показатели.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dashboard(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		h.writeError(w, "dashboard", err)
		return
	}
	if summary.SummaryError != "" {
		h.logger.Warn("company summary unavailable",
			zap.String("company", summary.CompanyName),
			zap.String("error", summary.SummaryError),
		)
	}
	writeJSON(w, http.StatusOK, summary)
}

type tagsRequest struct {
	CompanyName string `json:"companyName"`
	CouponCode  string `json:"couponCode"`
}

// SuggestTags предлагает теги и категорию купона.
func (h *Handler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	out, err := h.service.SuggestTags(r.Context(), req.CompanyName, req.CouponCode)
	if err != nil {
		h.writeError(w, "suggest tags", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// CompanySummary возвращает краткое описание компании.
func (h *Handler) CompanySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.CompanySummary(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		h.writeError(w, "company summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}
