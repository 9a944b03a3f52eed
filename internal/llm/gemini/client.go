// Package gemini adapts Google's Gemini API to the llm interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

type Config struct {
	APIKey      string
	Model       string // default gemini-2.5-flash-lite
	Temperature float32
	Timeout     time.Duration // per call, default 30s
}

// generator is the subset of *genai.Models we call.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	models generator
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newClient(cfg, gc.Models, logger), nil
}

func newClient(cfg Config, models generator, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, models: models, logger: logger}
}

// ExtractReport implements llm.StructuredExtractor with JSON response mode.
func (c *Client) ExtractReport(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"text_len", len(req.OCRText),
	)

	schema, err := llm.SchemaJSON()
	if err != nil {
		return nil, err
	}
	temp := c.cfg.Temperature
	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		Temperature:       &temp,
		SystemInstruction: textContent("", llm.BuildExtractionSystemPrompt()+"\n\nJSON Schema:\n"+schema),
	}
	contents := []*genai.Content{textContent("user", llm.BuildExtractionUserPrompt(req))}

	text, err := c.generate(ctx, contents, config)
	if err != nil {
		c.logger.Error("llm.extract.gemini_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	c.logger.Info("llm.extract.ok", "req_id", rid, "content_bytes", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return []byte(text), nil
}

// Complete implements llm.ChatCompleter. System turns become the system instruction.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case entity.RoleSystem:
			system = append(system, m.Content)
		case entity.RoleAssistant:
			contents = append(contents, textContent("model", m.Content))
		default:
			contents = append(contents, textContent("user", m.Content))
		}
	}

	temp := req.Temperature
	config := &genai.GenerateContentConfig{Temperature: &temp}
	if req.TopP > 0 {
		topP := req.TopP
		config.TopP = &topP
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(system) > 0 {
		config.SystemInstruction = textContent("", strings.Join(system, "\n\n"))
	}

	start := time.Now()
	text, err := c.generate(ctx, contents, config)
	if err != nil {
		c.logger.Error("llm.chat.error", "provider", "gemini", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.logger.Info("llm.chat.ok", "provider", "gemini", "messages", len(contents), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned empty response")
	}
	return text, nil
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}
