// Package dashboard вычисляет показатели сводной панели купонов.
package dashboard

import (
	"slices"
	"time"

	"golang.org/x/text/collate"

	"github.com/mmeshcher/coupontracker/internal/model"
	"github.com/mmeshcher/coupontracker/internal/view"
)

// Summarize подсчитывает купоны по статусам и компаниям на момент now.
// Сумма активных купонов включает статусы active и expiringSoon: такими купонами ещё можно воспользоваться.
func Summarize(engine *view.Engine, coupons []model.Coupon, now time.Time) *model.DashboardSummary {
	s := &model.DashboardSummary{
		Total:       len(coupons),
		ByStatus:    make([]model.StatusCount, 0, len(model.DisplayStatuses)),
		ByCompany:   []model.CompanyCount{},
		GeneratedAt: now,
	}

	byStatus := make(map[model.DisplayStatus]int, len(model.DisplayStatuses))
	byCompany := make(map[string]int)

	for _, c := range coupons {
		status := engine.Status(c, now)
		byStatus[status]++
		byCompany[c.CompanyName]++

		if status == model.StatusActive || status == model.StatusExpiringSoon {
			s.ActiveAmount += c.Amount
		}
	}

	s.Active = byStatus[model.StatusActive]
	s.Inactive = byStatus[model.StatusInactive]
	s.Expired = byStatus[model.StatusExpired]
	s.ExpiringSoon = byStatus[model.StatusExpiringSoon]

	for _, status := range model.DisplayStatuses {
		s.ByStatus = append(s.ByStatus, model.StatusCount{Status: status, Count: byStatus[status]})
	}

	for name, count := range byCompany {
		s.ByCompany = append(s.ByCompany, model.CompanyCount{CompanyName: name, Count: count})
	}

	coll := collate.New(engine.Language())
	slices.SortFunc(s.ByCompany, func(a, b model.CompanyCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return coll.CompareString(a.CompanyName, b.CompanyName)
	})

	return s
}
