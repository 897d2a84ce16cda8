package gemini

import (
	"errors"
	"os"
	"strconv"
)

// holds Gemini-specific configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash" // default model
	}

	temperature := float32(0.4)
	if raw := os.Getenv("GEMINI_TEMPERATURE"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 32)
		if err != nil || parsed < 0 || parsed > 2 {
			return nil, errors.New("GEMINI_TEMPERATURE must be a number between 0 and 2")
		}
		temperature = float32(parsed)
	}

	return &Config{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     os.Getenv("GEMINI_BASE_URL"),
		Temperature: temperature,
	}, nil
}
