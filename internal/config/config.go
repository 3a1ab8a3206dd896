package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"local"`

	Log LogConfig

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"` // memory | mongo
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"call_insights"`

	TranscribeURL     string        `env:"TRANSCRIBE_URL"`
	MockTranscribe    bool          `env:"USE_MOCK_TRANSCRIBE" envDefault:"false"`
	TranscribeTimeout time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"2m"`

	LLMGatewayURL string        `env:"LLM_GATEWAY_URL"`
	LLMAPIKey     string        `env:"LLM_API_KEY"`
	LLMModel      string        `env:"LLM_MODEL"`
	MockLLM       bool          `env:"USE_MOCK_LLM" envDefault:"false"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"25s"`
	LLMMaxRetry   time.Duration `env:"LLM_MAX_RETRY" envDefault:"45s"`

	// AnalysisParallel bounds concurrent questions per transcript.
	AnalysisParallel int `env:"ANALYSIS_PARALLELISM" envDefault:"4"`

	Aggregation AggregationConfig

	// StatusFanout bounds concurrent engine lookups when listing a campaign.
	StatusFanout int `env:"STATUS_FANOUT" envDefault:"8"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
}

type AggregationConfig struct {
	OracleTimeout   time.Duration `env:"ORACLE_TIMEOUT" envDefault:"30s"`
	TopicMinLabels  int           `env:"TOPIC_CONSOLIDATION_MIN" envDefault:"5"`
	TopicCap        int           `env:"TOPIC_CAP" envDefault:"10"`
	ImprovementCap  int           `env:"IMPROVEMENT_CAP" envDefault:"5"`
	AgentActionCap  int           `env:"AGENT_ACTION_CAP" envDefault:"10"`
	YesTokens       []string      `env:"RESOLUTION_YES_TOKENS" envSeparator:"," envDefault:"oui,yes"`
	PartialTokens   []string      `env:"RESOLUTION_PARTIAL_TOKENS" envSeparator:"," envDefault:"partiellement,partially"`
	ExtractParallel int           `env:"AGGREGATION_PARALLELISM" envDefault:"8"`
}

// Load reads an optional .env file then parses the environment.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...) // a missing .env is fine

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	a := c.Aggregation
	if a.TopicCap <= 0 || a.ImprovementCap <= 0 || a.AgentActionCap <= 0 {
		return errors.New("consolidation caps must be positive")
	}
	if a.OracleTimeout <= 0 {
		return errors.New("ORACLE_TIMEOUT must be positive")
	}
	if len(a.YesTokens) == 0 {
		return errors.New("RESOLUTION_YES_TOKENS must not be empty")
	}
	if c.StatusFanout <= 0 {
		c.StatusFanout = 1
	}
	if c.AnalysisParallel <= 0 {
		c.AnalysisParallel = 1
	}
	return nil
}
