package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// app config; values come from defaults, then CONFIG_FILE, then the environment
type Config struct {
	Provider string `yaml:"ai_provider"`
	Port     string `yaml:"port"`

	StoreDriver     string `yaml:"store_driver"` // sqlite, postgres or mongo
	DatabaseDSN     string `yaml:"database_dsn"`
	MongoURI        string `yaml:"mongo_uri"`
	QuestionsDBName string `yaml:"questions_db_name"`
	RedisAddr       string `yaml:"redis_addr"` // empty = in-memory feedback cache

	JWTSecret   string `yaml:"jwt_secret"`
	AuthEnabled bool   `yaml:"auth_enabled"`

	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	BatchConcurrency  int           `yaml:"batch_concurrency"`

	FeedbackCacheTTL       time.Duration `yaml:"feedback_cache_ttl"`
	FeedbackExportEnabled  bool          `yaml:"feedback_export_enabled"`
	FeedbackExportSchedule string        `yaml:"feedback_export_schedule"`
	FeedbackExportDir      string        `yaml:"feedback_export_dir"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

var supportedStoreDrivers = map[string]bool{"sqlite": true, "postgres": true, "mongo": true}

func defaults() *Config {
	return &Config{
		Provider:               "gemini",
		Port:                   "8086",
		StoreDriver:            "sqlite",
		DatabaseDSN:            "file:questiongen.db?cache=shared",
		MongoURI:               "mongodb://localhost:27017",
		QuestionsDBName:        "questiongen",
		GenerationTimeout:      45 * time.Second,
		BatchConcurrency:       3,
		FeedbackCacheTTL:       24 * time.Hour,
		FeedbackExportSchedule: "0 2 * * *",
		FeedbackExportDir:      "./exports",
		AllowedOrigins:         []string{"http://localhost:5173"},
	}
}

// loads configuration from an optional YAML file and environment variables
func LoadConfig() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(c *Config) error {
	c.Provider = getEnvOrDefault("AI_PROVIDER", c.Provider)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.StoreDriver = strings.ToLower(getEnvOrDefault("STORE_DRIVER", c.StoreDriver))
	c.DatabaseDSN = getEnvOrDefault("DATABASE_DSN", c.DatabaseDSN)
	c.MongoURI = getEnvOrDefault("MONGO_URI", c.MongoURI)
	c.QuestionsDBName = getEnvOrDefault("QUESTIONS_DB_NAME", c.QuestionsDBName)
	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.JWTSecret = getEnvOrDefault("JWT_SECRET", c.JWTSecret)
	c.FeedbackExportSchedule = getEnvOrDefault("FEEDBACK_EXPORT_SCHEDULE", c.FeedbackExportSchedule)
	c.FeedbackExportDir = getEnvOrDefault("FEEDBACK_EXPORT_DIR", c.FeedbackExportDir)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	var err error
	if c.AuthEnabled, err = getEnvBool("AUTH_ENABLED", c.AuthEnabled); err != nil {
		return err
	}
	if c.FeedbackExportEnabled, err = getEnvBool("FEEDBACK_EXPORT_ENABLED", c.FeedbackExportEnabled); err != nil {
		return err
	}
	if c.BatchConcurrency, err = getEnvInt("BATCH_CONCURRENCY", c.BatchConcurrency); err != nil {
		return err
	}
	if c.GenerationTimeout, err = getEnvDuration("GENERATION_TIMEOUT", c.GenerationTimeout); err != nil {
		return err
	}
	if c.FeedbackCacheTTL, err = getEnvDuration("FEEDBACK_CACHE_TTL", c.FeedbackCacheTTL); err != nil {
		return err
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	// Gemini validation is handled by gemini.NewConfig()
	if !supportedStoreDrivers[config.StoreDriver] {
		return errors.New("unsupported store driver: " + config.StoreDriver + ". Supported: sqlite, postgres, mongo")
	}
	if config.BatchConcurrency <= 0 {
		return errors.New("BATCH_CONCURRENCY must be positive")
	}
	if config.GenerationTimeout <= 0 {
		return errors.New("GENERATION_TIMEOUT must be positive")
	}
	if config.AuthEnabled && config.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s: %w", key, err)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GormDriver is the relational driver behind feedback and model versions. It
// follows STORE_DRIVER unless records live in mongo, where the DSN decides.
func (c *Config) GormDriver() string {
	if c.StoreDriver != "mongo" {
		return c.StoreDriver
	}
	if strings.HasPrefix(c.DatabaseDSN, "postgres") || strings.Contains(c.DatabaseDSN, "host=") {
		return "postgres"
	}
	return "sqlite"
}
