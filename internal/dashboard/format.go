package dashboard

import (
	"fmt"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const dateLayout = "02/01/2006"

// Formatter форматирует денежные суммы и даты с учётом локали.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter создаёт форматтер для языка lang и кода валюты ISO 4217.
func NewFormatter(lang language.Tag, currencyCode string) (*Formatter, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}

	return &Formatter{
		printer: message.NewPrinter(lang),
		unit:    unit,
	}, nil
}

// Money возвращает сумму с символом валюты и разделителями разрядов.
func (f *Formatter) Money(amount float64) string {
	symbol := f.printer.Sprint(currency.Symbol(f.unit))
	return f.printer.Sprintf("%s %.2f", symbol, amount)
}

// Currency возвращает ISO-код валюты форматтера.
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// FormatDate возвращает дату в формате dd/MM/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
