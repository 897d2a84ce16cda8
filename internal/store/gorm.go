package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peerprep/questiongen/internal/models"
)

// challengeRow is the relational form of a challenge; test case lists and the
// degradation block are JSON columns.
type challengeRow struct {
	ID               string                 `gorm:"primaryKey;size:36"`
	CreatedAt        time.Time              `gorm:"index"`
	Title            string                 `gorm:"not null"`
	Difficulty       models.Difficulty      `gorm:"index;not null"`
	Description      string                 `gorm:"type:text"`
	InputFormat      string                 `gorm:"type:text"`
	OutputFormat     string                 `gorm:"type:text"`
	Constraints      string                 `gorm:"type:text"`
	PublicTestCases  []models.TestCase      `gorm:"serializer:json"`
	PrivateTestCases []models.TestCase      `gorm:"serializer:json"`
	EdgeCases        []models.TestCase      `gorm:"serializer:json"`
	Explanation      string                 `gorm:"type:text"`
	Prompt           string                 `gorm:"type:text"`
	Outcome          models.Outcome         `gorm:"index"`
	Degradation      models.DegradationInfo `gorm:"serializer:json"`
}

func (challengeRow) TableName() string { return "challenges" }

type mcqRow struct {
	ID              string            `gorm:"primaryKey;size:36"`
	CreatedAt       time.Time         `gorm:"index"`
	Title           string            `gorm:"not null"`
	Difficulty      models.Difficulty `gorm:"index;not null"`
	Question        string            `gorm:"type:text;not null"`
	Options         []models.Option   `gorm:"serializer:json"`
	CorrectOptionID string            `gorm:"size:1;not null"`
	Explanation     string            `gorm:"type:text"`
	Prompt          string            `gorm:"type:text"`
}

func (mcqRow) TableName() string { return "mcqs" }

// OpenGorm opens a sqlite or postgres database.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver: %s", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

// GormStore keeps records in a relational database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore migrates the record tables and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&challengeRow{}, &mcqRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate record tables: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) SaveChallenge(ctx context.Context, rec models.ChallengeRecord) (models.SavedChallenge, error) {
	row := challengeRow{
		ID:               uuid.NewString(),
		CreatedAt:        s.now().UTC(),
		Title:            rec.Title,
		Difficulty:       rec.DifficultyLevel,
		Description:      rec.Description,
		InputFormat:      rec.InputFormat,
		OutputFormat:     rec.OutputFormat,
		Constraints:      rec.Constraints,
		PublicTestCases:  rec.PublicTestCases,
		PrivateTestCases: rec.PrivateTestCases,
		EdgeCases:        rec.EdgeCases,
		Explanation:      rec.Explanation,
		Prompt:           rec.Prompt,
		Outcome:          rec.Degradation.Outcome(),
		Degradation:      rec.Degradation,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.SavedChallenge{}, fmt.Errorf("failed to save challenge: %w", err)
	}
	return row.saved(), nil
}

func (s *GormStore) SaveMCQ(ctx context.Context, rec models.MCQRecord) (models.SavedMCQ, error) {
	row := mcqRow{
		ID:              uuid.NewString(),
		CreatedAt:       s.now().UTC(),
		Title:           rec.Title,
		Difficulty:      rec.DifficultyLevel,
		Question:        rec.Question,
		Options:         rec.Options,
		CorrectOptionID: rec.CorrectOptionID,
		Explanation:     rec.Explanation,
		Prompt:          rec.Prompt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.SavedMCQ{}, fmt.Errorf("failed to save question: %w", err)
	}
	return row.saved(), nil
}

func (s *GormStore) GetChallenge(ctx context.Context, id string) (models.SavedChallenge, error) {
	var row challengeRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SavedChallenge{}, ErrNotFound
		}
		return models.SavedChallenge{}, fmt.Errorf("failed to load challenge %s: %w", id, err)
	}
	return row.saved(), nil
}

func (s *GormStore) GetMCQ(ctx context.Context, id string) (models.SavedMCQ, error) {
	var row mcqRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SavedMCQ{}, ErrNotFound
		}
		return models.SavedMCQ{}, fmt.Errorf("failed to load question %s: %w", id, err)
	}
	return row.saved(), nil
}

func (s *GormStore) ListChallenges(ctx context.Context, filter ListFilter) ([]models.SavedChallenge, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(filter.limit())
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	var rows []challengeRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	out := make([]models.SavedChallenge, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.saved())
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r challengeRow) saved() models.SavedChallenge {
	return models.SavedChallenge{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Record: models.ChallengeRecord{
			Title:            r.Title,
			DifficultyLevel:  r.Difficulty,
			Description:      r.Description,
			InputFormat:      r.InputFormat,
			OutputFormat:     r.OutputFormat,
			Constraints:      r.Constraints,
			PublicTestCases:  r.PublicTestCases,
			PrivateTestCases: r.PrivateTestCases,
			EdgeCases:        r.EdgeCases,
			Explanation:      r.Explanation,
			Prompt:           r.Prompt,
			Degradation:      r.Degradation,
		},
	}
}

func (r mcqRow) saved() models.SavedMCQ {
	return models.SavedMCQ{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Record: models.MCQRecord{
			Title:           r.Title,
			DifficultyLevel: r.Difficulty,
			Question:        r.Question,
			Options:         r.Options,
			CorrectOptionID: r.CorrectOptionID,
			Explanation:     r.Explanation,
			Prompt:          r.Prompt,
		},
	}
}
