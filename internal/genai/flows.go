package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mmeshcher/coupontracker/internal/metrics"
)

const (
	flowSuggestTags      = "suggestCouponTags"
	flowSummarizeCompany = "summarizeCompanyInfo"
)

var suggestTagsTmpl = template.Must(template.New(flowSuggestTags).Parse(
	`Suggest relevant tags and a category for a coupon based on the company name and coupon code.

Company Name: {{.CompanyName}}
Coupon Code: {{.CouponCode}}

Suggest at least 3 tags.
`))

var summarizeCompanyTmpl = template.Must(template.New(flowSummarizeCompany).Parse(
	`Summarize the following company information in a concise manner.
Company Name: {{.CompanyName}}
Website: {{.Website}}
Description: {{.Description}}`))

var tagsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tags":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Suggested tags for the coupon."},
		"category": map[string]any{"type": "string", "description": "Suggested category for the coupon."},
	},
	"required": []string{"tags", "category"},
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string", "description": "A short summary of the company information."},
	},
	"required": []string{"summary"},
}

// TagsInput описывает вход сценария подбора тегов.
type TagsInput struct {
	CompanyName string `json:"companyName"`
	CouponCode  string `json:"couponCode"`
}

// TagsOutput описывает предложенные теги и категорию купона.
type TagsOutput struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// SummaryInput описывает вход сценария описания компании.
type SummaryInput struct {
	CompanyName string `json:"companyName"`
}

// SummaryOutput содержит краткое описание компании.
type SummaryOutput struct {
	Summary string `json:"summary"`
}

// Flows реализует сценарии работы с генеративной моделью.
type Flows struct {
	gen       Generator
	companies CompanyInfoProvider
	summaries *cache.Cache
}

// NewFlows создаёт сценарии поверх gen. При summaryTTL > 0 описания компаний кэшируются.
func NewFlows(gen Generator, companies CompanyInfoProvider, summaryTTL time.Duration) *Flows {
	if companies == nil {
		companies = StaticCompanyInfo{}
	}

	f := &Flows{
		gen:       gen,
		companies: companies,
	}
	if summaryTTL > 0 {
		f.summaries = cache.New(summaryTTL, 2*summaryTTL)
	}
	return f
}

// SuggestCouponTags предлагает теги и категорию для купона.
func (f *Flows) SuggestCouponTags(ctx context.Context, in TagsInput) (*TagsOutput, error) {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.CouponCode = strings.TrimSpace(in.CouponCode)
	if in.CompanyName == "" || in.CouponCode == "" {
		return nil, &GenerationError{Flow: flowSuggestTags, Kind: KindInput, Err: errors.New("companyName and couponCode are required")}
	}

	text, err := render(suggestTagsTmpl, in)
	if err != nil {
		return nil, &GenerationError{Flow: flowSuggestTags, Kind: KindInput, Err: err}
	}

	var out TagsOutput
	err = f.generate(ctx, Prompt{Name: flowSuggestTags, Text: text, OutputSchema: tagsSchema}, &out)
	if err != nil {
		return nil, err
	}

	if out.Tags == nil || strings.TrimSpace(out.Category) == "" {
		return nil, &GenerationError{Flow: flowSuggestTags, Kind: KindSchema, Err: errors.New("output must contain tags and category")}
	}

	return &out, nil
}

// SummarizeCompanyInfo возвращает краткое описание компании.
func (f *Flows) SummarizeCompanyInfo(ctx context.Context, in SummaryInput) (*SummaryOutput, error) {
	name := strings.TrimSpace(in.CompanyName)
	if name == "" {
		return nil, &GenerationError{Flow: flowSummarizeCompany, Kind: KindInput, Err: errors.New("companyName is required")}
	}

	key := strings.ToLower(name)
	if f.summaries != nil {
		if v, ok := f.summaries.Get(key); ok {
			cached := v.(SummaryOutput)
			return &cached, nil
		}
	}

	info, err := f.companies.CompanyInfo(ctx, name)
	if err != nil {
		return nil, &GenerationError{Flow: flowSummarizeCompany, Kind: KindInput, Err: fmt.Errorf("company info: %w", err)}
	}

	text, err := render(summarizeCompanyTmpl, struct {
		CompanyName string
		Website     string
		Description string
	}{name, info.Website, info.Description})
	if err != nil {
		return nil, &GenerationError{Flow: flowSummarizeCompany, Kind: KindInput, Err: err}
	}

	var out SummaryOutput
	err = f.generate(ctx, Prompt{Name: flowSummarizeCompany, Text: text, OutputSchema: summarySchema}, &out)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.Summary) == "" {
		return nil, &GenerationError{Flow: flowSummarizeCompany, Kind: KindSchema, Err: errors.New("output must contain summary")}
	}

	if f.summaries != nil {
		f.summaries.Set(key, out, cache.DefaultExpiration)
	}

	return &out, nil
}

func (f *Flows) generate(ctx context.Context, p Prompt, out any) error {
	start := time.Now()
	err := f.gen.Generate(ctx, p, out)
	metrics.ObserveGeneration(p.Name, err, time.Since(start))

	if err == nil {
		return nil
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Flow: p.Name, Kind: KindTransport, Err: err}
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
