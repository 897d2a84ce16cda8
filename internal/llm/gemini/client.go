package gemini

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"
	"gorm.io/gorm"

	"peerprep/questiongen/internal/llm"
	"peerprep/questiongen/internal/models"
)

const providerName = "gemini"

// Client represents a Gemini LLM client
type Client struct {
	apiKeyClient *genai.Client
	config       *Config
	db           *gorm.DB // optional; enables routing traffic to tuned model versions
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		apiKeyClient: client,
		config:       config,
	}, nil
}

// SetDatabase lets the client pick active tuned model versions by traffic weight.
func (c *Client) SetDatabase(db *gorm.DB) {
	c.db = db
}

// GenerateContent sends one prompt and returns the raw model text. It makes a
// single attempt; retries belong to the caller.
func (c *Client) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	startTime := time.Now()
	model, _ := c.selectModel(ctx)

	result, err := c.apiKeyClient.Models.GenerateContent(
		ctx,
		model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](c.config.Temperature)},
	)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	if result == nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}

	content := result.Text()
	if strings.TrimSpace(content) == "" {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}

	return &models.GenerationResponse{
		Content: content,
		Metadata: models.GenerationMetadata{
			ProcessingTime: int(time.Since(startTime).Milliseconds()),
			Provider:       providerName,
			Model:          model,
		},
	}, nil
}

func classifyError(ctx context.Context, err error) *llm.ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeTimeout, Message: "Generation timed out", Err: err}
	case isRateLimitError(err):
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	default:
		return &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeServiceDown, Message: "Failed to generate content", Err: err}
	}
}

// selectModel returns the model to call and, when a tuned version won the
// traffic roll, that version's name.
func (c *Client) selectModel(ctx context.Context) (string, string) {
	if c.db == nil {
		return c.config.Model, ""
	}

	var active []models.ModelVersion
	err := c.db.WithContext(ctx).
		Where("is_active = ? AND traffic_weight > 0", true).
		Order("id").
		Find(&active).Error
	if err != nil || len(active) == 0 {
		return c.config.Model, ""
	}

	roll := rand.Intn(100)
	cumulative := 0
	for _, v := range active {
		cumulative += v.TrafficWeight
		if roll < cumulative {
			return v.VersionName, v.VersionName
		}
	}
	return c.config.Model, ""
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

func (c *Client) GetProviderName() string {
	return providerName
}
