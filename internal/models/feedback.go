package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestionFeedback is one reviewer rating of a generated question. Reviewer ids are not stored.
type QuestionFeedback struct {
	gorm.Model
	RequestID  string     `gorm:"uniqueIndex;not null" json:"request_id"`
	Kind       Kind       `gorm:"not null" json:"kind"` // "challenge", "mcq"
	RecordID   string     `gorm:"index" json:"record_id"`
	Prompt     string     `gorm:"type:text;not null" json:"prompt"`
	Response   string     `gorm:"type:text;not null" json:"response"`
	Outcome    Outcome    `gorm:"not null" json:"outcome"`
	ModelName  string     `gorm:"column:model;index" json:"model"` // model or tuned version that produced the response
	IsPositive bool       `gorm:"not null" json:"is_positive"` // true = thumbs up, false = thumbs down
	FeedbackAt time.Time  `gorm:"not null" json:"feedback_at"`
	Exported   bool       `gorm:"not null;default:false;index" json:"exported"`
	ExportedAt *time.Time `json:"exported_at"`
}

// ModelVersion is a tuned model that can take a share of generation traffic
type ModelVersion struct {
	gorm.Model
	VersionName   string     `gorm:"uniqueIndex;not null" json:"version_name"`
	BaseModel     string     `gorm:"not null" json:"base_model"`
	IsActive      bool       `gorm:"not null;default:false" json:"is_active"`
	TrafficWeight int        `gorm:"not null;default:0" json:"traffic_weight"` // 0-100 percentage
	ActivatedAt   *time.Time `json:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at"`
}

// TrainingDataPoint represents a single training example in JSONL format for Gemini fine-tuning
type TrainingDataPoint struct {
	Contents []TrainingContent `json:"contents"`
}

type TrainingContent struct {
	Role  string         `json:"role"` // "user" or "model"
	Parts []TrainingPart `json:"parts"`
}

type TrainingPart struct {
	Text string `json:"text"`
}

// RequestContext keeps a generation around until a reviewer rates it
type RequestContext struct {
	RequestID string    `json:"request_id"`
	Kind      Kind      `json:"kind"`
	RecordID  string    `json:"record_id"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Outcome   Outcome   `json:"outcome"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}
