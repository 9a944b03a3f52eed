// Package explain produces conversational explanations of a stored report.
// Only turns started by a user prompt are kept in the report's history.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

var ErrNoReport = errors.New("no patient data found for this report")

// History is the conversation window the explainer reads and extends.
type History interface {
	Get(ctx context.Context, reportID string) ([]entity.Turn, error)
	Append(ctx context.Context, reportID string, turns ...entity.Turn) error
}

// Sampling settings for explanation replies.
const (
	Temperature      = 0.85
	TopP             = 0.9
	MaxTokens        = 1000
	FrequencyPenalty = 0.2
	PresencePenalty  = 0.1
)

type Explainer struct {
	chat    llm.ChatCompleter
	history History
	timeout time.Duration
	logger  *slog.Logger
}

func NewExplainer(chat llm.ChatCompleter, history History, timeout time.Duration, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Explainer{chat: chat, history: history, timeout: timeout, logger: logger}
}

// Explain answers prompt about report. An empty prompt asks for the opening
// greeting, which is not recorded in history.
func (e *Explainer) Explain(ctx context.Context, report *entity.Report, pc entity.PatientContext, prompt string) (string, error) {
	if report == nil {
		return "", ErrNoReport
	}
	start := time.Now()
	first := firstName(report.Patient.Name)

	background, err := backgroundPrompt(report, pc)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	messages := []entity.Turn{
		{Role: entity.RoleSystem, Content: systemPrompt(first)},
		{Role: entity.RoleSystem, Content: background},
	}

	if e.history != nil {
		past, err := e.history.Get(ctx, report.ReportID)
		if err != nil {
			e.logger.Warn("explain.history.load.failed", "report_id", report.ReportID, "error", err)
		} else {
			messages = append(messages, past...)
		}
	}

	if prompt != "" {
		messages = append(messages, entity.Turn{Role: entity.RoleUser, Content: prompt})
	} else {
		messages = append(messages, entity.Turn{Role: entity.RoleSystem, Content: greetingPrompt(first)})
	}

	callCtx, cancel := common.WithTimeout(ctx, e.timeout)
	defer cancel()
	reply, err := e.chat.Complete(callCtx, llm.ChatRequest{
		Messages:         messages,
		Temperature:      Temperature,
		TopP:             TopP,
		MaxTokens:        MaxTokens,
		FrequencyPenalty: FrequencyPenalty,
		PresencePenalty:  PresencePenalty,
	})
	if err != nil {
		e.logger.Error("explain.complete.failed", "report_id", report.ReportID, "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return "", fmt.Errorf("explanation service: %w", err)
	}

	if prompt != "" && e.history != nil {
		err := e.history.Append(ctx, report.ReportID,
			entity.Turn{Role: entity.RoleUser, Content: prompt},
			entity.Turn{Role: entity.RoleAssistant, Content: reply},
		)
		if err != nil {
			e.logger.Warn("explain.history.append.failed", "report_id", report.ReportID, "error", err)
		}
	}
	e.logger.Info("explain.ok", "report_id", report.ReportID, "messages", len(messages), "elapsed_ms", time.Since(start).Milliseconds())
	return reply, nil
}
