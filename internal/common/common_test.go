package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mediway/labreports/constants"
)

func TestStageErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("process: %w", OCRError("tesseract", cause))

	assert.True(t, errors.Is(err, ErrOCR))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrRender))
	assert.Equal(t, ErrOCR, StageOf(err))
	assert.Nil(t, StageOf(cause))
	assert.Contains(t, err.Error(), "ocr failed: tesseract: exit status 1")

	var se *StageError
	require.True(t, errors.As(RenderError("empty document", nil), &se))
	assert.Equal(t, "render failed: empty document", se.Error())
}

func TestStatusFromStage(t *testing.T) {
	assert.Nil(t, StatusFromStage(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(StatusFromStage(RenderError("x", nil))))
	assert.Equal(t, codes.Unavailable, status.Code(StatusFromStage(StoreError("x", nil))))
	assert.Equal(t, codes.Internal, status.Code(StatusFromStage(errors.New("boom"))))
}

func TestLoadConfigDefaultsAndValidate(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PARSER_STRATEGY", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("QUEUE_WORKERS", "")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, constants.RenderDPI, cfg.OCR.DPI)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, constants.StrategyGrammar, cfg.EffectiveStrategy())

	cfg.LLM.APIKey = "sk-test"
	assert.Equal(t, constants.StrategyAssisted, cfg.EffectiveStrategy())
}

func TestValidateRejectsAssistedWithoutKey(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PARSER_STRATEGY", "assisted")
	t.Setenv("OPENAI_API_KEY", "")

	err := LoadConfig().Validate()
	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("document_path", "report.txt", Required, DocumentPath).
		Field("report_id", "not-a-uuid", UUID).
		Field("prompt", "short", MaxLength(3))
	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.Equal(t, codes.InvalidArgument, status.Code(ValidateAndReturnError(v)))

	ok := NewValidator().Field("document_path", "/tmp/a.PDF", Required, DocumentPath)
	assert.NoError(t, ValidateAndReturnError(ok))
}
