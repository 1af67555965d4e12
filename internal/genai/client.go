// Package genai предоставляет клиент внешней генеративной модели и сценарии
// подбора тегов купона и краткого описания компании.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Prompt описывает запрос к модели и ожидаемую схему ответа.
type Prompt struct {
	Name         string
	Text         string
	OutputSchema map[string]any
}

// Generator выполняет запрос к модели и декодирует структурированный ответ в out.
type Generator interface {
	Generate(ctx context.Context, p Prompt, out any) error
}

// Client инкапсулирует HTTP-взаимодействие с сервисом генеративной модели.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type generateRequest struct {
	Model        string         `json:"model,omitempty"`
	Name         string         `json:"name"`
	Prompt       string         `json:"prompt"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

// NewClient создаёт HTTP-клиент сервиса модели по указанному адресу.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Generate отправляет запрос модели. Любая ошибка возвращается как *GenerationError.
func (c *Client) Generate(ctx context.Context, p Prompt, out any) error {
	if c == nil || c.baseURL == "" {
		return &GenerationError{Flow: p.Name, Kind: KindTransport, Err: errors.New("generation client not configured")}
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(generateRequest{
		Model:        c.model,
		Name:         p.Name,
		Prompt:       p.Text,
		OutputSchema: p.OutputSchema,
	})
	if err != nil {
		return &GenerationError{Flow: p.Name, Kind: KindInput, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return &GenerationError{Flow: p.Name, Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GenerationError{Flow: p.Name, Kind: KindTransport, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &GenerationError{
			Flow:       p.Name,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %d", resp.StatusCode),
		}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &GenerationError{Flow: p.Name, Kind: KindSchema, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(result.Output) == 0 || string(result.Output) == "null" {
		return &GenerationError{Flow: p.Name, Kind: KindSchema, Err: errors.New("empty output")}
	}

	dec := json.NewDecoder(bytes.NewReader(result.Output))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &GenerationError{Flow: p.Name, Kind: KindSchema, Err: fmt.Errorf("decode output: %w", err)}
	}

	return nil
}
