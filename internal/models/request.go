package models

import (
	"fmt"
	"slices"
	"strings"
)

type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic,omitempty"`
	RequestID  string `json:"request_id"`
}

// implements the Validator interface
func (r *GenerateRequest) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Prompt == "" {
		return &ErrorResponse{
			Code:    "missing_prompt",
			Message: "Prompt field is required",
		}
	}

	if len(r.Prompt) > MaxPromptLength {
		return &ErrorResponse{
			Code:    "prompt_too_long",
			Message: fmt.Sprintf("Prompt must be at most %d characters", MaxPromptLength),
		}
	}

	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}

	if !slices.Contains(ValidDifficultiesList(), r.Difficulty) {
		return &ErrorResponse{
			Code:    "invalid_difficulty",
			Message: "Difficulty must be one of: " + strings.Join(ValidDifficultiesList(), ", "),
		}
	}

	r.Topic = strings.TrimSpace(r.Topic)
	return nil
}

type BatchGenerateRequest struct {
	Items []GenerateRequest `json:"items"`
}

func (r *BatchGenerateRequest) Validate() error {
	if len(r.Items) == 0 {
		return &ErrorResponse{Code: "missing_items", Message: "At least one item is required"}
	}
	if len(r.Items) > MaxBatchItems {
		return &ErrorResponse{
			Code:    "too_many_items",
			Message: fmt.Sprintf("A batch holds at most %d items", MaxBatchItems),
		}
	}

	var details []ValidationErrorDetail
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			reason := err.Error()
			if resp, ok := err.(*ErrorResponse); ok {
				reason = resp.Code
			}
			details = append(details, ValidationErrorDetail{
				Field:  fmt.Sprintf("items[%d]", i),
				Reason: reason,
			})
		}
	}
	if len(details) > 0 {
		return &ErrorResponse{
			Code:    "invalid_items",
			Message: "One or more batch items are invalid",
			Details: details,
		}
	}
	return nil
}

type ExtractChallengeRequest struct {
	RawText string `json:"raw_text"`
	Prompt  string `json:"prompt"`
}

func (r *ExtractChallengeRequest) Validate() error {
	if len(r.RawText) > MaxRawTextBytes {
		return &ErrorResponse{Code: "raw_text_too_large", Message: "raw_text exceeds the size limit"}
	}
	// empty raw_text is allowed: the pipeline synthesizes a fallback record from the prompt
	if strings.TrimSpace(r.RawText) == "" && strings.TrimSpace(r.Prompt) == "" {
		return &ErrorResponse{Code: "missing_input", Message: "raw_text or prompt is required"}
	}
	return nil
}

type ExtractMCQRequest struct {
	RawText string `json:"raw_text"`
}

func (r *ExtractMCQRequest) Validate() error {
	if strings.TrimSpace(r.RawText) == "" {
		return &ErrorResponse{Code: "missing_raw_text", Message: "raw_text is required"}
	}
	if len(r.RawText) > MaxRawTextBytes {
		return &ErrorResponse{Code: "raw_text_too_large", Message: "raw_text exceeds the size limit"}
	}
	return nil
}

type FeedbackRequest struct {
	IsPositive *bool `json:"is_positive"`
}

func (r *FeedbackRequest) Validate() error {
	if r.IsPositive == nil {
		return &ErrorResponse{Code: "missing_is_positive", Message: "is_positive is required"}
	}
	return nil
}
