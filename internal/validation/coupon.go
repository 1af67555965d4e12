// Package validation содержит проверку данных формы купона.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/coupontracker/internal/model"
)

// CouponInput описывает данные формы создания и редактирования купона.
type CouponInput struct {
	CompanyName  string    `json:"companyName" validate:"required,min=2"`
	CouponCode   string    `json:"couponCode" validate:"required,min=3"`
	Amount       float64   `json:"amount" validate:"gt=0"`
	ExpiryDate   time.Time `json:"expiryDate" validate:"required"`
	Category     string    `json:"category,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Tags         []string  `json:"tags,omitempty" validate:"omitempty,dive,required"`
	StoredStatus string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// FieldError описывает ошибку одного поля формы.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors содержит все ошибки проверки формы.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid coupon: " + strings.Join(parts, "; ")
}

// Validator проверяет формы купонов.
type Validator struct {
	v *validator.Validate
}

// NewValidator создаёт валидатор, использующий JSON-имена полей в сообщениях.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Normalize удаляет лишние пробелы и пустые теги.
func Normalize(in CouponInput) CouponInput {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CouponCode = strings.TrimSpace(in.CouponCode)
	in.Category = strings.TrimSpace(in.Category)
	in.Notes = strings.TrimSpace(in.Notes)
	in.StoredStatus = strings.TrimSpace(in.StoredStatus)

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	in.Tags = tags

	return in
}

// Validate нормализует форму и возвращает FieldErrors, если она некорректна.
func (v *Validator) Validate(in CouponInput) (CouponInput, error) {
	in = Normalize(in)

	err := v.v.Struct(in)
	if err == nil {
		return in, nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return in, fmt.Errorf("validate coupon: %w", err)
	}

	res := make(FieldErrors, 0, len(vErrs))
	for _, fe := range vErrs {
		res = append(res, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return in, res
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return "must be positive"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}

// ApplyTo переносит значения формы в купон, не трогая идентификатор и служебные даты.
func (in CouponInput) ApplyTo(c *model.Coupon) {
	c.CompanyName = in.CompanyName
	c.CouponCode = in.CouponCode
	c.Amount = in.Amount
	c.ExpiryDate = in.ExpiryDate
	c.Category = in.Category
	c.Notes = in.Notes
	c.Tags = in.Tags
	c.StoredStatus = model.StoredStatus(in.StoredStatus)
}
