package analyzer

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

	"github.com/mmynk/onecount/internal/models"
)

const (
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 2048
	anthropicVersion = "2023-06-01"

	receiptPrompt = `Analyze this receipt image. Extract all purchased items with their individual prices.
Extract the total tip if explicitly stated. Do not extract tax.
Also extract the merchant/store name and the date of the receipt (YYYY-MM-DD format if possible).
If multiple people are listed, ignore the people and just list the items.
Prices must be JSON numbers.

Respond ONLY with JSON in this shape:
{"items":[{"name":"...","price":0.0}],"tip":0.0,"merchantName":"...","date":"YYYY-MM-DD"}`
)

// ClaudeAnalyzer analyzes receipts with the Anthropic Messages API.
type ClaudeAnalyzer struct {
	apiKey     string
	model      string
	maxTokens  int
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClaudeOption configures a ClaudeAnalyzer.
type ClaudeOption func(*ClaudeAnalyzer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClaudeOption {
	return func(c *ClaudeAnalyzer) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithEndpoint overrides the Messages API URL.
func WithEndpoint(url string) ClaudeOption {
	return func(c *ClaudeAnalyzer) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithModel sets the model name.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeAnalyzer) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) ClaudeOption {
	return func(c *ClaudeAnalyzer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClaudeOption {
	return func(c *ClaudeAnalyzer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClaudeAnalyzer creates an analyzer. apiKey must not be empty.
func NewClaudeAnalyzer(apiKey string, opts ...ClaudeOption) (*ClaudeAnalyzer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is empty")
	}

	c := &ClaudeAnalyzer{
		apiKey:     apiKey,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// receiptPayload mirrors the JSON the model is asked for. Pointers tell
// missing fields apart from zeros.
type receiptPayload struct {
	Items []struct {
		Name  string   `json:"name"`
		Price *float64 `json:"price"`
	} `json:"items"`
	Tip          *float64 `json:"tip"`
	MerchantName string   `json:"merchantName"`
	Date         string   `json:"date"`
}

// Analyze sends the image to the Messages API and parses the reply.
// All failures are returned as *AnalysisError.
func (c *ClaudeAnalyzer) Analyze(ctx context.Context, image []byte) (*models.ParsedReceipt, error) {
	if err := CheckImageSize(image); err != nil {
		return nil, err
	}

	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: mediaType(image),
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: receiptPrompt},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &AnalysisError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &AnalysisError{Op: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AnalysisError{Op: "request", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AnalysisError{Op: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("analysis service returned error status",
			"status", resp.StatusCode,
			"body", truncate(string(data), 512),
		)
		return nil, &AnalysisError{Op: "request", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var completion messagesResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, &AnalysisError{Op: "decode response", Err: err}
	}

	var text string
	for _, block := range completion.Content {
		if block.Type == "" || block.Type == "text" {
			text = block.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &AnalysisError{Op: "decode response", Err: errors.New("empty response")}
	}

	receipt, err := parseReceipt(text)
	if err != nil {
		return nil, &AnalysisError{Op: "parse receipt", Err: err}
	}

	c.logger.Debug("receipt analyzed",
		"items", len(receipt.Items),
		"input_tokens", completion.Usage.InputTokens,
		"output_tokens", completion.Usage.OutputTokens,
		"duration", time.Since(start),
	)
	return receipt, nil
}

// parseReceipt decodes the model's JSON, tolerating a markdown code fence.
// Missing items become an empty list and a missing tip becomes 0.
func parseReceipt(content string) (*models.ParsedReceipt, error) {
	trimmed := stripCodeFence(content)

	var payload receiptPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("invalid receipt JSON: %w", err)
	}

	receipt := &models.ParsedReceipt{
		Items:        make([]models.ParsedItem, 0, len(payload.Items)),
		MerchantName: strings.TrimSpace(payload.MerchantName),
		Date:         strings.TrimSpace(payload.Date),
	}
	for _, item := range payload.Items {
		p := models.ParsedItem{Name: strings.TrimSpace(item.Name)}
		if item.Price != nil {
			p.Price = *item.Price
		}
		receipt.Items = append(receipt.Items, p)
	}
	if payload.Tip != nil {
		receipt.Tip = *payload.Tip
	}
	return receipt, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```JSON")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

// mediaType sniffs the image format. The API accepts jpeg, png, gif and webp.
func mediaType(image []byte) string {
	switch ct := http.DetectContentType(image); ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return ct
	default:
		return "image/jpeg"
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
