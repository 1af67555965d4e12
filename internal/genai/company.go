package genai

import "context"

// CompanyInfo содержит сведения о компании, передаваемые модели.
type CompanyInfo struct {
	Website     string
	Description string
}

// CompanyInfoProvider возвращает сведения о компании по её названию.
type CompanyInfoProvider interface {
	CompanyInfo(ctx context.Context, companyName string) (CompanyInfo, error)
}

// StaticCompanyInfo возвращает одинаковые демонстрационные сведения для любой компании.
// Это заглушка для демонстрации; внешний справочник компаний не подключается.
type StaticCompanyInfo struct{}

// CompanyInfo реализует CompanyInfoProvider.
func (StaticCompanyInfo) CompanyInfo(ctx context.Context, companyName string) (CompanyInfo, error) {
	return CompanyInfo{
		Website:     "https://www.example.com",
		Description: "This is a sample company description.",
	}, nil
}
