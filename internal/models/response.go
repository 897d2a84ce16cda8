package models

import "time"

// raw text returned by a generation provider
type GenerationResponse struct {
	Content  string             `json:"content"`
	Metadata GenerationMetadata `json:"metadata"`
}

// additional information about the generation call
type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

type ChallengeResponse struct {
	ID        string          `json:"id,omitempty"`
	RequestID string          `json:"request_id"`
	Outcome   Outcome         `json:"outcome"`
	Stage     string          `json:"stage"`
	Record    ChallengeRecord `json:"record"`
}

type BatchChallengeResponse struct {
	Items []ChallengeResponse `json:"items"`
}

type MCQResponse struct {
	ID        string    `json:"id,omitempty"`
	RequestID string    `json:"request_id"`
	Record    MCQRecord `json:"record"`
}

// SavedChallenge is a challenge record after persistence assigned its identity.
type SavedChallenge struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Record    ChallengeRecord `json:"record"`
}

type SavedMCQ struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Record    MCQRecord `json:"record"`
}

type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

// generic envelope for simple acknowledgements
type Resp struct {
	OK   bool        `json:"ok"`
	Info interface{} `json:"info"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
