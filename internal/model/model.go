// Package model содержит доменные сущности сервиса учёта купонов.
package model

import "time"

// StoredStatus описывает явно сохранённый статус купона.
// Пустое значение означает, что статус не задан и вычисляется по сроку действия.
type StoredStatus string

const (
	StoredStatusNone     StoredStatus = ""
	StoredStatusActive   StoredStatus = "active"
	StoredStatusInactive StoredStatus = "inactive"
)

// DisplayStatus описывает статус купона, показываемый пользователю.
type DisplayStatus string

const (
	StatusActive       DisplayStatus = "active"
	StatusInactive     DisplayStatus = "inactive"
	StatusExpired      DisplayStatus = "expired"
	StatusExpiringSoon DisplayStatus = "expiringSoon"
)

// DisplayStatuses перечисляет все статусы в порядке отображения.
var DisplayStatuses = []DisplayStatus{
	StatusActive,
	StatusInactive,
	StatusExpired,
	StatusExpiringSoon,
}

// Valid сообщает, является ли значение одним из известных статусов.
func (s DisplayStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired, StatusExpiringSoon:
		return true
	}
	return false
}

// Coupon описывает промокупон пользователя.
type Coupon struct {
	ID           string
	CompanyName  string
	CouponCode   string
	Amount       float64
	ExpiryDate   time.Time
	Category     string
	StoredStatus StoredStatus
	Notes        string
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CouponView описывает купон вместе с вычисленным статусом.
type CouponView struct {
	Coupon
	Status DisplayStatus
}

// StatusFilterAll отключает фильтрацию по статусу.
const StatusFilterAll = "all"

// DateRange задаёт включительные границы даты истечения.
// Нулевое значение границы означает отсутствие ограничения с этой стороны.
type DateRange struct {
	From time.Time
	To   time.Time
}

// FilterSpec описывает активные фильтры списка купонов.
type FilterSpec struct {
	// Status принимает значение DisplayStatus или StatusFilterAll. Пустая строка равносильна StatusFilterAll.
	Status      string
	DateRange   *DateRange
	CompanyName string
	Query       string
}

// SortColumn описывает колонку сортировки.
type SortColumn string

const (
	SortByCompanyName SortColumn = "companyName"
	SortByAmount      SortColumn = "amount"
	SortByExpiryDate  SortColumn = "expiryDate"
)

// SortOrder описывает направление сортировки.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortSpec описывает колонку и направление сортировки.
type SortSpec struct {
	Column SortColumn
	Order  SortOrder
}

// DefaultSortSpec возвращает сортировку списка по умолчанию.
func DefaultSortSpec() SortSpec {
	return SortSpec{Column: SortByExpiryDate, Order: SortAsc}
}

// CompanyCount содержит число купонов одной компании.
type CompanyCount struct {
	CompanyName string `json:"companyName"`
	Count       int    `json:"count"`
}

// StatusCount содержит число купонов с указанным статусом.
type StatusCount struct {
	Status DisplayStatus `json:"status"`
	Count  int           `json:"count"`
}

// DashboardSummary содержит агрегированные показатели для сводной панели.
type DashboardSummary struct {
	Total           int            `json:"total"`
	Active          int            `json:"active"`
	Inactive        int            `json:"inactive"`
	Expired         int            `json:"expired"`
	ExpiringSoon    int            `json:"expiringSoon"`
	ActiveAmount    float64        `json:"activeAmount"`
	ActiveAmountFmt string         `json:"activeAmountFormatted"`
	ByStatus        []StatusCount  `json:"byStatus"`
	ByCompany       []CompanyCount `json:"byCompany"`
	CompanyName     string         `json:"companyName,omitempty"`
	CompanySummary  string         `json:"companySummary"`
	SummaryError    string         `json:"summaryError,omitempty"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}
