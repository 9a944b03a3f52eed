package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mediway/labreports/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Parser   ParserConfig
	LLM      LLMConfig
	Gemini   GeminiConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	History  HistoryConfig
	Queue    QueueConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	TessdataDir   string
	TesseractLang string
	DPI           int
	PSM           int
	ArtifactDir   string
}

// ParserConfig selects the report parser.
type ParserConfig struct {
	Strategy      constants.ParserStrategy
	KeepLastEntry bool
}

// LLMConfig holds structured-extraction and explanation provider configuration
type LLMConfig struct {
	Provider    constants.LLMProvider
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type HistoryConfig struct {
	Limit int
}

// QueueConfig sizes the batch worker pool and the daemon inbox.
type QueueConfig struct {
	Workers    int
	JobTimeout time.Duration
	InboxDir   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	strategy, _ := constants.CanonicalizeStrategy(getEnv("PARSER_STRATEGY", string(constants.StrategyAuto)))
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", constants.RenderDPI),
			PSM:           getEnvAsInt("OCR_PSM", 0),
			ArtifactDir:   getEnv("ARTIFACT_DIR", os.TempDir()),
		},
		Parser: ParserConfig{
			Strategy:      strategy,
			KeepLastEntry: getEnvAsBool("PARSER_KEEP_LAST_ENTRY", false),
		},
		LLM: LLMConfig{
			Provider:    constants.LLMProvider(strings.ToLower(getEnv("LLM_PROVIDER", string(constants.ProviderOpenAI)))),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "lab-reports"),
		},
		History: HistoryConfig{
			Limit: getEnvAsInt("HISTORY_LIMIT", 10),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 4),
			JobTimeout: getEnvAsDuration("JOB_TIMEOUT", 2*time.Minute),
			InboxDir:   getEnv("INBOX_DIR", ""),
		},
	}
}

// LLMConfigured reports whether the selected provider has credentials.
func (c *Config) LLMConfigured() bool {
	switch c.LLM.Provider {
	case constants.ProviderGemini:
		return c.Gemini.APIKey != ""
	default:
		return c.LLM.APIKey != ""
	}
}

// EffectiveStrategy resolves StrategyAuto against the configured providers.
func (c *Config) EffectiveStrategy() constants.ParserStrategy {
	if c.Parser.Strategy != constants.StrategyAuto {
		return c.Parser.Strategy
	}
	if c.LLMConfigured() {
		return constants.StrategyAssisted
	}
	return constants.StrategyGrammar
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case constants.ProviderOpenAI, constants.ProviderGemini:
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Parser.Strategy == constants.StrategyAssisted && !c.LLMConfigured() {
		return NewAppError("CONFIG_ERROR", "PARSER_STRATEGY=assisted needs an API key for "+string(c.LLM.Provider), ErrInvalidInput)
	}
	if c.History.Limit <= 0 {
		return NewAppError("CONFIG_ERROR", "HISTORY_LIMIT must be positive", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
