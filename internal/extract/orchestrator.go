// Package extract turns raw model output into typed question records.
//
// Challenges take the JSON-shaped path: direct parse, then syntax repair,
// then structural repair, then fallback synthesis. Every path ends in the
// validator, so a record always comes back and its DegradationInfo says how
// much was repaired or invented. Multiple-choice questions take the
// label-shaped path, which refuses bad input instead of repairing it.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"peerprep/questiongen/internal/llm"
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/repair"
	"peerprep/questiongen/internal/utils"
)

// Stage is the last pipeline step a challenge extraction reached.
type Stage string

const (
	StageDirect           Stage = "direct"
	StageSyntaxRepair     Stage = "syntax_repair"
	StageStructuralRepair Stage = "structural_repair"
	StageFallback         Stage = "fallback"
)

// ChallengeResult is the terminal state of a challenge extraction.
type ChallengeResult struct {
	Record models.ChallengeRecord
	Stage  Stage
	// Raw is the model text the record came from; empty when generation failed.
	Raw string
	// Model names what produced Raw, when it came from a provider.
	Model string
}

func (r ChallengeResult) Outcome() models.Outcome {
	return r.Record.Degradation.Outcome()
}

// MCQResult is a successfully parsed multiple-choice question.
type MCQResult struct {
	Record   models.MCQRecord
	Warnings []string
	Raw      string
	Model    string
}

// Extractor runs the pipelines. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	provider llm.Provider
	logger   *zap.Logger
	timeout  time.Duration
}

// NewExtractor wraps the model provider. A zero timeout leaves
// deadlines to the caller's context.
func NewExtractor(provider llm.Provider, logger *zap.Logger, timeout time.Duration) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{provider: provider, logger: logger, timeout: timeout}
}

// ExtractChallenge always returns a record satisfying the challenge cardinality rules.
func (e *Extractor) ExtractChallenge(raw, prompt string) ChallengeResult {
	text := utils.StripFences(raw)

	cand, err := parseCandidate(text)
	if err == nil {
		return e.finish(cand, prompt, raw, StageDirect, nil)
	}
	e.logger.Debug("direct parse failed", zap.Error(err))

	repaired := repair.Syntax(text)
	if cand, err = parseCandidate(repaired); err == nil {
		return e.finish(cand, prompt, raw, StageSyntaxRepair, []string{"structured text needed syntax repair"})
	}
	e.logger.Debug("parse after syntax repair failed", zap.Error(err))

	restructured, notes := repair.Structural(repaired, ChallengeSchema)
	if cand, err = parseCandidate(restructured); err == nil {
		notes = append([]string{"structured text needed structural repair"}, notes...)
		return e.finish(cand, prompt, raw, StageStructuralRepair, notes)
	}
	e.logger.Debug("parse after structural repair failed", zap.Error(err))

	rec, warnings := SynthesizeChallenge(repaired, prompt)
	rec.Degradation = models.DegradationInfo{
		WasRepaired: repaired != text || len(notes) > 0,
		IsFallback:  true,
		Warnings:    append([]string{"structured text could not be parsed; synthesized a fallback record"}, warnings...),
	}
	e.logOutcome(rec.Degradation, StageFallback)
	return ChallengeResult{Record: rec, Stage: StageFallback, Raw: raw}
}

func (e *Extractor) finish(cand Candidate, prompt, raw string, stage Stage, notes []string) ChallengeResult {
	rec, warnings := ValidateChallenge(cand, prompt)
	rec.Degradation = models.DegradationInfo{
		WasRepaired: stage != StageDirect,
		Warnings:    append(notes, warnings...),
	}
	if rec.Degradation.Warnings == nil {
		rec.Degradation.Warnings = []string{}
	}
	e.logOutcome(rec.Degradation, stage)
	return ChallengeResult{Record: rec, Stage: stage, Raw: raw}
}

func (e *Extractor) logOutcome(d models.DegradationInfo, stage Stage) {
	fields := []zap.Field{
		zap.String("kind", string(models.KindChallenge)),
		zap.String("stage", string(stage)),
		zap.String("outcome", string(d.Outcome())),
		zap.Int("warnings", len(d.Warnings)),
	}
	if d.Outcome() == models.OutcomeClean {
		e.logger.Debug("challenge extracted", fields...)
		return
	}
	e.logger.Warn("challenge extracted with degradation", fields...)
}

// ExtractMCQ parses label-shaped text. Errors match ErrRefusal.
func (e *Extractor) ExtractMCQ(raw string) (MCQResult, error) {
	cand, err := ParseLabeled(utils.StripFences(raw))
	if err != nil {
		e.logger.Warn("question text refused", zap.String("kind", string(models.KindMCQ)), zap.Error(err))
		return MCQResult{Raw: raw}, err
	}
	rec, warnings, err := ValidateMCQ(cand)
	if err != nil {
		return MCQResult{Raw: raw}, err
	}
	return MCQResult{Record: rec, Warnings: warnings, Raw: raw}, nil
}

func (e *Extractor) generate(ctx context.Context, rendered, requestID string) (*models.GenerationResponse, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.provider.GenerateContent(ctx, rendered, requestID)
}

// GenerateChallenge asks the provider for a challenge built from rendered and
// extracts it. When generation fails the record is synthesized from prompt
// alone; the call itself never fails.
func (e *Extractor) GenerateChallenge(ctx context.Context, requestID, rendered, prompt string) ChallengeResult {
	resp, err := e.generate(ctx, rendered, requestID)
	if err != nil {
		e.logger.Warn("generation failed; synthesizing fallback",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		rec, warnings := SynthesizeChallenge("", prompt)
		rec.Degradation = models.DegradationInfo{
			IsFallback: true,
			Warnings:   append([]string{"generation unavailable: " + err.Error()}, warnings...),
		}
		return ChallengeResult{Record: rec, Stage: StageFallback}
	}

	res := e.ExtractChallenge(resp.Content, prompt)
	res.Model = resp.Metadata.Model
	e.logger.Debug("challenge generated", zap.String("request_id", requestID), zap.String("stage", string(res.Stage)))
	return res
}

// GenerateMCQ asks the provider for a label-shaped question. Generation
// errors are returned as-is; parse refusals match ErrRefusal.
func (e *Extractor) GenerateMCQ(ctx context.Context, requestID, rendered, prompt string) (MCQResult, error) {
	resp, err := e.generate(ctx, rendered, requestID)
	if err != nil {
		return MCQResult{}, err
	}
	res, err := e.ExtractMCQ(resp.Content)
	res.Model = resp.Metadata.Model
	if err != nil {
		return res, err
	}
	res.Record.Prompt = prompt
	return res, nil
}
