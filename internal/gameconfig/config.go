package gameconfig

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds process-level settings read from the environment.
type Config struct {
	Port    string
	NATSURL string
	DB      DBConfig
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewConfigFromEnv reads settings from environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		Port:    getEnv("PORT", "8080"),
		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "medmelody"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

// DSN returns the Postgres connection URL.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RoundSettings configures a screening round. Loaded from a YAML file when
// one is provided, otherwise the defaults of the live event are used.
type RoundSettings struct {
	// QuestionDurationSec is the countdown window per question.
	QuestionDurationSec int `yaml:"question_duration_sec"`
	// TotalQuestions is the fixed length of the round.
	TotalQuestions int `yaml:"total_questions"`
	// HostAccessCode gates the advance/reset operations.
	HostAccessCode string `yaml:"host_access_code"`
	// TeamAccessCode gates join/submit.
	TeamAccessCode string `yaml:"team_access_code"`
}

// DefaultRoundSettings returns the settings of the original event.
func DefaultRoundSettings() RoundSettings {
	return RoundSettings{
		QuestionDurationSec: 60,
		TotalQuestions:      10,
		HostAccessCode:      "CEREBREXIA2025",
		TeamAccessCode:      "CEREBREXIA25",
	}
}

// LoadRoundSettings reads a YAML settings file. Zero-valued fields fall
// back to the defaults so a partial file stays valid.
func LoadRoundSettings(path string) (RoundSettings, error) {
	settings := DefaultRoundSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read round settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		// A partially decoded struct must not escape.
		return DefaultRoundSettings(), fmt.Errorf("failed to parse round settings: %w", err)
	}

	if settings.QuestionDurationSec <= 0 {
		settings.QuestionDurationSec = DefaultRoundSettings().QuestionDurationSec
	}
	if settings.TotalQuestions <= 0 {
		settings.TotalQuestions = DefaultRoundSettings().TotalQuestions
	}
	return settings, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
