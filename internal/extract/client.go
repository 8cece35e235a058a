// Package extract talks to the chat-completions gateway that reads invoice
// images and suggests categories.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurv-15/ai-invoice-track/internal/metrics"
)

var (
	ErrRateLimited     = errors.New("rate limit exceeded, please try again later")
	ErrQuotaExceeded   = errors.New("payment required, please add credits to continue")
	ErrUnavailable     = errors.New("extraction service unavailable")
	ErrInvalidResponse = errors.New("invalid extraction response")
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// Fields is the structured content of an invoice image.
type Fields struct {
	InvoiceNumber string          `json:"invoice_number"`
	Vendor        string          `json:"vendor"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category"`
	Confidence    float64         `json:"confidence"`
}

// ParsedDate returns Date as a calendar day in UTC.
func (f Fields) ParsedDate() (time.Time, error) {
	return time.Parse(time.DateOnly, f.Date)
}

type Categorization struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Fallback is the categorization used when the service cannot answer.
var Fallback = Categorization{Category: "Other", Confidence: 0}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func tool(name, description string, schema map[string]any) ([]map[string]any, map[string]any) {
	tools := []map[string]any{{
		"type": "function",
		"function": map[string]any{
			"name":        name,
			"description": description,
			"parameters":  schema,
		},
	}}
	choice := map[string]any{"type": "function", "function": map[string]any{"name": name}}

	return tools, choice
}

// Extract reads the invoice fields from a single image.
func (c *Client) Extract(ctx context.Context, image []byte, mimeType string) (Fields, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("extract.start", "req_id", rid, "model", c.cfg.Model, "mime", mimeType, "image_bytes", len(image))

	schema := extractSchema()
	tools, choice := tool(extractTool, "Extract structured invoice data from image", schema)
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": extractSystemPrompt},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": extractPrompt()},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}},
		},
		"tools":       tools,
		"tool_choice": choice,
	}

	args, err := c.callTool(ctx, extractTool, body, schema)
	c.observe(extractTool, start, err)

	if err != nil {
		c.log.Error("extract.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Fields{}, err
	}

	var out Fields
	if err := json.Unmarshal(args, &out); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if _, err := out.ParsedDate(); err != nil {
		return Fields{}, fmt.Errorf("%w: date %q", ErrInvalidResponse, out.Date)
	}

	c.log.Info("extract.ok",
		"req_id", rid,
		"vendor", out.Vendor,
		"invoice_number", out.InvoiceNumber,
		"category", out.Category,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// Categorize asks the model for a category. Callers that cannot surface the
// error use Fallback.
func (c *Client) Categorize(ctx context.Context, vendor, description string, amount decimal.Decimal) (Categorization, error) {
	start := time.Now()

	schema := categorizeSchema()
	tools, choice := tool(categorizeTool, "Categorize an invoice and return confidence score", schema)

	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": categorizeSystemPrompt},
			{"role": "user", "content": categorizePrompt(vendor, description, amount)},
		},
		"tools":       tools,
		"tool_choice": choice,
	}

	args, err := c.callTool(ctx, categorizeTool, body, schema)
	c.observe(categorizeTool, start, err)

	if err != nil {
		c.log.Warn("categorize.failed", "vendor", vendor, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Fallback, err
	}

	var out Categorization
	if err := json.Unmarshal(args, &out); err != nil {
		return Fallback, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	c.log.Info("categorize.ok", "vendor", vendor, "category", out.Category, "elapsed_ms", time.Since(start).Milliseconds())

	return out, nil
}

// Complete runs a plain chat completion and returns the message content.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()

	body := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
	}

	raw, err := c.post(ctx, body)
	c.observe("complete", start, err)

	if err != nil {
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}

	return cc.Choices[0].Message.Content, nil
}

func (c *Client) callTool(ctx context.Context, name string, body map[string]any, schema map[string]any) ([]byte, error) {
	raw, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(cc.Choices) == 0 || len(cc.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool call in response", ErrInvalidResponse)
	}

	call := cc.Choices[0].Message.ToolCalls[0].Function
	if call.Name != "" && call.Name != name {
		return nil, fmt.Errorf("%w: unexpected tool %q", ErrInvalidResponse, call.Name)
	}

	args := []byte(call.Arguments)
	if err := validate(schema, args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return args, nil
}

func (c *Client) post(ctx context.Context, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("extract response body close error", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, ErrQuotaExceeded
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return raw, nil
}

func (c *Client) observe(tool string, start time.Time, err error) {
	outcome := "ok"

	switch {
	case err == nil:
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, ErrQuotaExceeded):
		outcome = "quota_exceeded"
	case errors.Is(err, ErrInvalidResponse):
		outcome = "invalid_response"
	default:
		outcome = "unavailable"
	}

	metrics.Extractions.WithLabelValues(tool, outcome).Inc()
	metrics.ExtractionDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}
