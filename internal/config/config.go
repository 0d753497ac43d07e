package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the progress and offline sections.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	DefaultTimeLimit     = 30 * time.Minute
	DefaultQuestionCount = 10
	DefaultTick          = time.Second
	DefaultBudgetBytes   = 50 * 1024 * 1024
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TimeLimit     string `yaml:"time_limit"`
		QuestionCount int    `yaml:"question_count"`
		Tick          string `yaml:"tick"`
		CacheTTL      string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Offline struct {
		Backend     string `yaml:"backend"`
		BudgetBytes int64  `yaml:"budget_bytes"`
	} `yaml:"offline"`
	Progress struct {
		Backend string `yaml:"backend"`
	} `yaml:"progress"`
	Catalog struct {
		ModulesPath   string `yaml:"modules_path"`
		QuestionsPath string `yaml:"questions_path"`
	} `yaml:"catalog"`
	Certificates struct {
		VerifyBaseURL string `yaml:"verify_base_url"`
	} `yaml:"certificates"`
	Logging Logging `yaml:"logging"`
}

// Logging selects level, encoding and an optional rotating file.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Quiz.QuestionCount <= 0 {
		c.Quiz.QuestionCount = DefaultQuestionCount
	}
	if c.Offline.BudgetBytes <= 0 {
		c.Offline.BudgetBytes = DefaultBudgetBytes
	}
	if c.Offline.Backend == "" {
		c.Offline.Backend = BackendMemory
	}
	if c.Progress.Backend == "" {
		c.Progress.Backend = BackendMemory
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// QuizTimeLimit is the per-attempt countdown.
func (c Config) QuizTimeLimit() time.Duration {
	return Duration(c.Quiz.TimeLimit, DefaultTimeLimit)
}

// QuizTick is the countdown resolution.
func (c Config) QuizTick() time.Duration {
	return Duration(c.Quiz.Tick, DefaultTick)
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
