package handler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmeshcher/coupontracker/internal/model"
)

const dateOnly = "2006-01-02"

// parseFilter строит FilterSpec из параметров запроса status, from, to, company и q.
func parseFilter(q url.Values) (model.FilterSpec, error) {
	spec := model.FilterSpec{
		Status:      strings.TrimSpace(q.Get("status")),
		CompanyName: strings.TrimSpace(q.Get("company")),
		Query:       strings.TrimSpace(q.Get("q")),
	}

	if spec.Status == "" {
		spec.Status = model.StatusFilterAll
	}
	if spec.Status != model.StatusFilterAll && !model.DisplayStatus(spec.Status).Valid() {
		return model.FilterSpec{}, fmt.Errorf("unknown status %q", spec.Status)
	}

	from, err := parseDate(q.Get("from"), false)
	if err != nil {
		return model.FilterSpec{}, fmt.Errorf("parse from: %w", err)
	}
	to, err := parseDate(q.Get("to"), true)
	if err != nil {
		return model.FilterSpec{}, fmt.Errorf("parse to: %w", err)
	}
	if !from.IsZero() || !to.IsZero() {
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return model.FilterSpec{}, fmt.Errorf("date range end %s is before start %s", to.Format(dateOnly), from.Format(dateOnly))
		}
		spec.DateRange = &model.DateRange{From: from, To: to}
	}

	return spec, nil
}

// parseDate принимает RFC3339 или дату без времени. Для верхней границы дата без времени
// расширяется до конца дня, чтобы диапазон оставался включительным.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// parseSort строит SortSpec из параметров sort и order.
func parseSort(q url.Values) (model.SortSpec, error) {
	spec := model.DefaultSortSpec()

	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		switch col := model.SortColumn(v); col {
		case model.SortByCompanyName, model.SortByAmount, model.SortByExpiryDate:
			spec.Column = col
		default:
			return model.SortSpec{}, fmt.Errorf("unknown sort column %q", v)
		}
	}

	if v := strings.TrimSpace(q.Get("order")); v != "" {
		switch order := model.SortOrder(v); order {
		case model.SortAsc, model.SortDesc:
			spec.Order = order
		default:
			return model.SortSpec{}, fmt.Errorf("unknown sort order %q", v)
		}
	}

	return spec, nil
}
