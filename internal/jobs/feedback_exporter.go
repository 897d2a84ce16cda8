package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"peerprep/questiongen/internal/feedback"
	"peerprep/questiongen/internal/models"
)

// FeedbackExporterJob periodically writes rated questions out as training data
type FeedbackExporterJob struct {
	feedbackManager *feedback.FeedbackManager
	config          *ExporterConfig
	cron            *cron.Cron
	logger          *zap.Logger
	now             func() time.Time
}

// ExporterConfig contains configuration for the exporter job
type ExporterConfig struct {
	Schedule      string // Cron schedule (e.g., "0 2 * * *" for 2 AM daily)
	ExportDir     string // Directory to store exported files
	ExportEnabled bool
}

// NewFeedbackExporterJob creates a new exporter job
func NewFeedbackExporterJob(feedbackManager *feedback.FeedbackManager, config *ExporterConfig, logger *zap.Logger) *FeedbackExporterJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackExporterJob{
		feedbackManager: feedbackManager,
		config:          config,
		cron:            cron.New(),
		logger:          logger,
		now:             time.Now,
	}
}

// Start begins the scheduled export job
func (fej *FeedbackExporterJob) Start() error {
	if !fej.config.ExportEnabled {
		fej.logger.Info("feedback export is disabled, skipping scheduler")
		return nil
	}

	_, err := fej.cron.AddFunc(fej.config.Schedule, func() {
		if _, err := fej.RunExport(); err != nil {
			fej.logger.Error("export job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export job: %w", err)
	}

	fej.cron.Start()
	fej.logger.Info("feedback exporter started", zap.String("schedule", fej.config.Schedule))
	return nil
}

// Stop stops the scheduler and waits for a running export to finish
func (fej *FeedbackExporterJob) Stop() {
	if fej.cron == nil {
		return
	}
	<-fej.cron.Stop().Done()
	fej.logger.Info("feedback exporter stopped")
}

// RunExport performs a single export run. It returns the path of the file
// written, or "" when there was nothing worth writing. Every record read is
// marked exported either way so negative feedback is not re-read.
func (fej *FeedbackExporterJob) RunExport() (string, error) {
	records, err := fej.feedbackManager.GetUnexportedFeedback(0)
	if err != nil {
		return "", fmt.Errorf("failed to get unexported feedback: %w", err)
	}
	if len(records) == 0 {
		fej.logger.Debug("no unexported feedback found")
		return "", nil
	}

	data, err := fej.feedbackManager.ExportToJSONL(records)
	if err != nil {
		return "", fmt.Errorf("failed to export to JSONL: %w", err)
	}

	var path string
	if len(data) > 0 {
		if path, err = fej.writeFile(data); err != nil {
			return "", err
		}
		fej.logger.Info("exported training examples",
			zap.Int("examples", exportable(records)),
			zap.String("path", path),
		)
	} else {
		fej.logger.Info("no positive feedback to export, skipping file creation", zap.Int("records", len(records)))
	}

	ids := make([]uint, len(records))
	for i, fb := range records {
		ids[i] = fb.ID
	}
	if err := fej.feedbackManager.MarkAsExported(ids); err != nil {
		return path, fmt.Errorf("failed to mark as exported: %w", err)
	}
	return path, nil
}

func (fej *FeedbackExporterJob) writeFile(data []byte) (string, error) {
	if err := os.MkdirAll(fej.config.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("feedback_export_%s.jsonl", fej.now().Format("20060102_150405"))
	path := filepath.Join(fej.config.ExportDir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func exportable(records []models.QuestionFeedback) int {
	n := 0
	for _, fb := range records {
		if fb.IsPositive && fb.Outcome != models.OutcomeFallback {
			n++
		}
	}
	return n
}
