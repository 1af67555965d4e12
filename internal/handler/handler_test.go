package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/coupontracker/internal/genai"
	"github.com/mmeshcher/coupontracker/internal/model"
	"github.com/mmeshcher/coupontracker/internal/repository"
	"github.com/mmeshcher/coupontracker/internal/validation"
	"github.com/mmeshcher/coupontracker/internal/view"
)

type stubService struct {
	listResp   []model.CouponView
	listErr    error
	listFilter model.FilterSpec
	listSort   model.SortSpec

	getResp *model.CouponView
	getErr  error
	getID   string

	createResp *model.CouponView
	createErr  error

	updateResp *model.CouponView
	updateErr  error

	deleteErr error

	dashboardResp *model.DashboardSummary
	dashboardErr  error

	tagsResp *genai.TagsOutput
	tagsErr  error

	summaryResp string
	summaryErr  error
}

func (s *stubService) ListCoupons(ctx context.Context, filter model.FilterSpec, sortSpec model.SortSpec) ([]model.CouponView, error) {
	s.listFilter = filter
	s.listSort = sortSpec
	return s.listResp, s.listErr
}

func (s *stubService) GetCoupon(ctx context.Context, id string) (*model.CouponView, error) {
	s.getID = id
	return s.getResp, s.getErr
}

func (s *stubService) CreateCoupon(ctx context.Context, in validation.CouponInput) (*model.CouponView, error) {
	return s.createResp, s.createErr
}

func (s *stubService) UpdateCoupon(ctx context.Context, id string, in validation.CouponInput) (*model.CouponView, error) {
	return s.updateResp, s.updateErr
}

func (s *stubService) DeleteCoupon(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *stubService) Dashboard(ctx context.Context, companyName string) (*model.DashboardSummary, error) {
	return s.dashboardResp, s.dashboardErr
}

func (s *stubService) SuggestTags(ctx context.Context, companyName, couponCode string) (*genai.TagsOutput, error) {
	return s.tagsResp, s.tagsErr
}

func (s *stubService) CompanySummary(ctx context.Context, companyName string) (string, error) {
	return s.summaryResp, s.summaryErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger)
}

func serve(t *testing.T, h *Handler, req *http.Request) *http.Response {
	t.Helper()

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func sampleView(status model.DisplayStatus) model.CouponView {
	return model.CouponView{
		Coupon: model.Coupon{
			ID:          "1",
			CompanyName: "שופרסל",
			CouponCode:  "SHUF50",
			Amount:      50,
			ExpiryDate:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		Status: status,
	}
}

func TestListCoupons_JSONResponse(t *testing.T) {
	svc := &stubService{
		listResp: []model.CouponView{sampleView(model.StatusExpiringSoon)},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/coupons?status=expiringSoon&company=%D7%A9%D7%95&sort=amount&order=desc&from=2024-01-01&to=2024-12-31", nil)
	res := serve(t, h, req)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var got []couponResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].StatusLabel != "עומד לפוג בקרוב" {
		t.Fatalf("statusLabel = %q", got[0].StatusLabel)
	}
	if got[0].ExpiryDisplay != "05/03/2024" {
		t.Fatalf("expiryDateDisplay = %q, want 05/03/2024", got[0].ExpiryDisplay)
	}
	if got[0].Tags == nil {
		t.Fatalf("tags must be an empty array, got nil")
	}

	if svc.listFilter.Status != string(model.StatusExpiringSoon) {
		t.Fatalf("filter status = %q", svc.listFilter.Status)
	}
	if svc.listFilter.CompanyName != "שו" {
		t.Fatalf("filter company = %q", svc.listFilter.CompanyName)
	}
	if svc.listFilter.DateRange == nil {
		t.Fatalf("date range not parsed")
	}
	wantTo := time.Date(2024, 12, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !svc.listFilter.DateRange.To.Equal(wantTo) {
		t.Fatalf("date range to = %v, want %v", svc.listFilter.DateRange.To, wantTo)
	}
	if svc.listSort.Column != model.SortByAmount || svc.listSort.Order != model.SortDesc {
		t.Fatalf("sort = %+v", svc.listSort)
	}
}

func TestListCoupons_Defaults(t *testing.T) {
	svc := &stubService{listResp: []model.CouponView{}}
	h := newTestHandler(t, svc)

	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/coupons", nil))
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if svc.listFilter.Status != model.StatusFilterAll {
		t.Fatalf("filter status = %q, want all", svc.listFilter.Status)
	}
	if svc.listFilter.DateRange != nil {
		t.Fatalf("date range = %+v, want nil", svc.listFilter.DateRange)
	}
	if svc.listSort != model.DefaultSortSpec() {
		t.Fatalf("sort = %+v, want default", svc.listSort)
	}
}

func TestListCoupons_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown status", query: "status=archived"},
		{name: "bad from", query: "from=yesterday"},
		{name: "bad to", query: "to=31/12/2024"},
		{name: "inverted range", query: "from=2024-05-01&to=2024-04-01"},
		{name: "unknown column", query: "sort=category"},
		{name: "unknown order", query: "order=up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{})

			res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/coupons?"+tt.query, nil))
			defer res.Body.Close()

			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: repository.ErrCouponNotFound, want: http.StatusNotFound},
		{name: "data unavailable", err: fmt.Errorf("%w: %w", repository.ErrDataUnavailable, errors.New("dial tcp")), want: http.StatusServiceUnavailable},
		{name: "invalid record", err: &view.ValidationError{CouponID: "7", Field: "expiryDate", Reason: "missing"}, want: http.StatusInternalServerError},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{getErr: tt.err}
			h := newTestHandler(t, svc)

			res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/coupons/7", nil))
			defer res.Body.Close()

			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
			if svc.getID != "7" {
				t.Fatalf("id = %q, want 7", svc.getID)
			}
		})
	}
}

func TestCreateCoupon(t *testing.T) {
	created := sampleView(model.StatusActive)

	tests := []struct {
		name string
		body string
		svc  *stubService
		want int
	}{
		{
			name: "created",
			body: `{"companyName":"שופרסל","couponCode":"SHUF50","amount":50,"expiryDate":"2024-03-05T00:00:00Z"}`,
			svc:  &stubService{createResp: &created},
			want: http.StatusCreated,
		},
		{
			name: "malformed json",
			body: `{"companyName":`,
			svc:  &stubService{},
			want: http.StatusBadRequest,
		},
		{
			name: "invalid form",
			body: `{"companyName":"x"}`,
			svc: &stubService{createErr: validation.FieldErrors{
				{Field: "companyName", Message: "must be at least 2 characters"},
			}},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "duplicate code",
			body: `{"companyName":"שופרסל","couponCode":"SHUF50","amount":50,"expiryDate":"2024-03-05T00:00:00Z"}`,
			svc:  &stubService{createErr: repository.ErrCouponCodeExists},
			want: http.StatusConflict,
		},
		{
			name: "duplicate id",
			body: `{"companyName":"שופרסל","couponCode":"SHUF50","amount":50,"expiryDate":"2024-03-05T00:00:00Z"}`,
			svc:  &stubService{createErr: repository.ErrCouponIDExists},
			want: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.svc)

			req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString(tt.body))
			res := serve(t, h, req)
			defer res.Body.Close()

			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestUpdateCoupon_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{updateErr: repository.ErrCouponNotFound})

	body := `{"companyName":"שופרסל","couponCode":"SHUF50","amount":50,"expiryDate":"2024-03-05T00:00:00Z"}`
	res := serve(t, h, httptest.NewRequest(http.MethodPut, "/api/coupons/42", bytes.NewBufferString(body)))
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestDeleteCoupon_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := serve(t, h, httptest.NewRequest(http.MethodDelete, "/api/coupons/1", nil))
	defer res.Body.Close()

	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}

func TestDashboard_SummaryErrorIsNotFatal(t *testing.T) {
	svc := &stubService{
		dashboardResp: &model.DashboardSummary{
			Total:        3,
			CompanyName:  "רמי לוי",
			SummaryError: "generation unavailable",
		},
	}
	h := newTestHandler(t, svc)

	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/dashboard?company=x", nil))
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got model.DashboardSummary
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || got.SummaryError == "" {
		t.Fatalf("summary = %+v", got)
	}
}

func TestSuggestTags(t *testing.T) {
	tests := []struct {
		name string
		svc  *stubService
		want int
	}{
		{
			name: "ok",
			svc:  &stubService{tagsResp: &genai.TagsOutput{Tags: []string{"food", "grocery", "discount"}, Category: "food"}},
			want: http.StatusOK,
		},
		{
			name: "bad input",
			svc:  &stubService{tagsErr: &genai.GenerationError{Flow: "suggestCouponTags", Kind: genai.KindInput, Err: errors.New("empty company")}},
			want: http.StatusBadRequest,
		},
		{
			name: "upstream failure",
			svc:  &stubService{tagsErr: &genai.GenerationError{Flow: "suggestCouponTags", Kind: genai.KindStatus, StatusCode: 500, Err: errors.New("500")}},
			want: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.svc)

			body := `{"companyName":"שופרסל","couponCode":"SHUF50"}`
			res := serve(t, h, httptest.NewRequest(http.MethodPost, "/api/ai/tags", bytes.NewBufferString(body)))
			defer res.Body.Close()

			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestCompanySummary(t *testing.T) {
	h := newTestHandler(t, &stubService{summaryResp: "Israeli supermarket chain."})

	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/ai/company-summary?company=shufersal", nil))
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got summaryResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Summary != "Israeli supermarket chain." {
		t.Fatalf("summary = %q", got.Summary)
	}
}

func TestRouter_HealthAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	res = serve(t, h, httptest.NewRequest(http.MethodPatch, "/api/coupons/1", nil))
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("patch status = %d, want %d", res.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestRouter_MetricsCompressedOnce(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	res := serve(t, h, req)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ce := res.Header.Values("Content-Encoding"); len(ce) != 1 || ce[0] != "gzip" {
		t.Fatalf("content-encoding = %v, want [gzip]", ce)
	}

	gr, err := gzip.NewReader(res.Body)
	if err != nil {
		t.Fatalf("new gzip reader: %v", err)
	}
	defer gr.Close()

	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "# HELP") {
		t.Fatalf("metrics body is not text exposition: %q", body[:min(len(body), 16)])
	}
}

func TestRouter_NoContentIsNotCompressed(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/coupons/1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	res := serve(t, h, req)
	defer res.Body.Close()

	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
	if ce := res.Header.Get("Content-Encoding"); ce != "" {
		t.Fatalf("content-encoding = %q, want empty", ce)
	}
	body, _ := io.ReadAll(res.Body)
	if len(body) != 0 {
		t.Fatalf("body length = %d, want 0", len(body))
	}
}
