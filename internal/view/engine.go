// Package view вычисляет отображаемое представление списка купонов:
// статус по сроку действия, фильтрацию и устойчивую сортировку.
//
// Все функции пакета чистые: они не читают системные часы, не изменяют
// входные данные и не хранят состояние между вызовами.
package view

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmeshcher/coupontracker/internal/model"
)

// DefaultExpiringSoonDays задаёт окно «скоро истекает» по умолчанию.
const DefaultExpiringSoonDays = 7

const day = 24 * time.Hour

// DeriveStatus вычисляет отображаемый статус купона на момент now.
func DeriveStatus(c model.Coupon, now time.Time, windowDays int) model.DisplayStatus {
	if c.StoredStatus == model.StoredStatusInactive {
		return model.StatusInactive
	}
	if c.ExpiryDate.Before(now) {
		return model.StatusExpired
	}
	if !c.ExpiryDate.After(now.Add(time.Duration(windowDays) * day)) {
		return model.StatusExpiringSoon
	}
	return model.StatusActive
}

// Engine хранит неизменяемые параметры вычисления представления.
type Engine struct {
	windowDays int
	lang       language.Tag
}

// NewEngine создаёт движок с указанным окном «скоро истекает» и языком сравнения строк.
func NewEngine(windowDays int, lang language.Tag) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultExpiringSoonDays
	}
	return &Engine{
		windowDays: windowDays,
		lang:       lang,
	}
}

// WindowDays возвращает окно «скоро истекает» в днях.
func (e *Engine) WindowDays() int {
	return e.windowDays
}

// Language возвращает язык сравнения названий компаний.
func (e *Engine) Language() language.Tag {
	return e.lang
}

// Status вычисляет статус купона с окном движка.
func (e *Engine) Status(c model.Coupon, now time.Time) model.DisplayStatus {
	return DeriveStatus(c, now, e.windowDays)
}

// Filter возвращает купоны, удовлетворяющие всем активным условиям spec,
// сохраняя их исходный порядок.
func (e *Engine) Filter(coupons []model.Coupon, spec model.FilterSpec, now time.Time) []model.Coupon {
	company := strings.ToLower(spec.CompanyName)
	query := strings.ToLower(spec.Query)
	status := spec.Status
	if status == "" {
		status = model.StatusFilterAll
	}

	res := make([]model.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if status != model.StatusFilterAll && string(e.Status(c, now)) != status {
			continue
		}
		if !inRange(c.ExpiryDate, spec.DateRange) {
			continue
		}
		if company != "" && !strings.Contains(strings.ToLower(c.CompanyName), company) {
			continue
		}
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		res = append(res, c)
	}

	return res
}

func inRange(t time.Time, r *model.DateRange) bool {
	if r == nil {
		return true
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// matchesQuery ожидает query в нижнем регистре.
func matchesQuery(c model.Coupon, query string) bool {
	return strings.Contains(strings.ToLower(c.CompanyName), query) ||
		strings.Contains(strings.ToLower(c.CouponCode), query) ||
		strings.Contains(FormatAmount(c.Amount), query)
}

// FormatAmount возвращает кратчайшую десятичную запись суммы, по которой выполняется поиск.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// Sort возвращает устойчиво отсортированную копию coupons.
// Равные по ключу купоны сохраняют исходный относительный порядок при любом направлении.
func (e *Engine) Sort(coupons []model.Coupon, spec model.SortSpec) []model.Coupon {
	res := slices.Clone(coupons)
	if res == nil {
		res = []model.Coupon{}
	}

	cmpFn := e.comparator(spec.Column)
	if cmpFn == nil {
		return res
	}

	sign := 1
	if spec.Order == model.SortDesc {
		sign = -1
	}

	slices.SortStableFunc(res, func(a, b model.Coupon) int {
		return sign * cmpFn(a, b)
	})

	return res
}

func (e *Engine) comparator(column model.SortColumn) func(a, b model.Coupon) int {
	switch column {
	case model.SortByCompanyName:
		// Collator не потокобезопасен, поэтому создаётся на каждый вызов Sort.
		coll := collate.New(e.lang)
		return func(a, b model.Coupon) int {
			return coll.CompareString(a.CompanyName, b.CompanyName)
		}
	case model.SortByAmount:
		return func(a, b model.Coupon) int {
			return cmp.Compare(a.Amount, b.Amount)
		}
	case model.SortByExpiryDate:
		return func(a, b model.Coupon) int {
			return a.ExpiryDate.Compare(b.ExpiryDate)
		}
	}
	return nil
}

// View проверяет входные данные, фильтрует, сортирует и размечает купоны статусами.
func (e *Engine) View(coupons []model.Coupon, filter model.FilterSpec, sortSpec model.SortSpec, now time.Time) ([]model.CouponView, error) {
	if err := Validate(coupons); err != nil {
		return nil, err
	}

	sorted := e.Sort(e.Filter(coupons, filter, now), sortSpec)

	res := make([]model.CouponView, 0, len(sorted))
	for _, c := range sorted {
		res = append(res, model.CouponView{
			Coupon: c,
			Status: e.Status(c, now),
		})
	}

	return res, nil
}
