package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/events"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "REDIS_ADDR", "KAFKA_BROKERS", "PARSER_STRATEGY", "LLM_PROVIDER"} {
		t.Setenv(k, "")
	}
	t.Setenv("DB_DRIVER", "sqlite")
	cfg := common.LoadConfig()
	cfg.OCR.ArtifactDir = t.TempDir()
	return cfg
}

func TestBuild_InMemoryGrammar(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, testConfig(t), Options{InMemory: true}, quiet())
	require.NoError(t, err)

	assert.Nil(t, app.Explainer)
	assert.Equal(t, "grammar", app.Processor.Parser.Name())
	assert.IsType(t, events.Noop{}, app.Events)

	id, err := app.Reports.Insert(ctx, entity.ParsedReport{Patient: entity.PatientFields{Name: "Jane Doe"}})
	require.NoError(t, err)
	require.NoError(t, app.History.Append(ctx, id, entity.Turn{Role: entity.RoleUser, Content: "hi"}))
	turns, err := app.History.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, turns, 1)

	assert.NotNil(t, app.ReportsService())

	sqlDB := app.DB.Driver.DB()
	app.Close()
	assert.Error(t, sqlDB.PingContext(ctx))
}

func TestBuild_AssistedWithKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = "sk-test"
	app, err := Build(context.Background(), cfg, Options{InMemory: true}, quiet())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Explainer)
	assert.Equal(t, "assisted", app.Processor.Parser.Name())
}

func TestBuild_SQLiteFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "reports.db")
	cfg.Database.DSN = path
	app, err := Build(context.Background(), cfg, Options{}, quiet())
	require.NoError(t, err)
	app.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestBuild_RedisUnavailableFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	app, err := Build(context.Background(), cfg, Options{InMemory: true}, quiet())
	require.NoError(t, err)
	defer app.Close()
	assert.NotNil(t, app.History)
}
