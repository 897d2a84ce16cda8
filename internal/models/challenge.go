package models

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty matches a difficulty label case-insensitively.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	}
	return "", false
}

// cardinality required of every challenge record
const (
	MinPublicTestCases   = 2
	PrivateTestCaseCount = 4
	EdgeCaseCount        = 1
)

// single testcase
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// labels that mark synthesized test case text
const (
	PlaceholderTag = "[placeholder]"
	FallbackTag    = "[fallback]"
)

// PlaceholderTestCase stands in for the i-th case of field when the model's
// version was missing or unusable.
func PlaceholderTestCase(field string, i int) TestCase {
	return TestCase{
		Input:  PlaceholderText(field, i, "input"),
		Output: PlaceholderText(field, i, "output"),
	}
}

// PlaceholderText names the exact leaf that failed, e.g. "[placeholder] edgeCases[0].output".
func PlaceholderText(field string, i int, side string) string {
	return fmt.Sprintf("%s %s[%d].%s", PlaceholderTag, field, i, side)
}

// IsSynthesized reports whether s was produced by padding or fallback rather than by the model.
func IsSynthesized(s string) bool {
	return strings.HasPrefix(s, PlaceholderTag) || strings.HasPrefix(s, FallbackTag)
}

// DegradationInfo tells consumers how far a record is from a clean model answer.
type DegradationInfo struct {
	WasRepaired bool     `json:"wasRepaired"`
	IsFallback  bool     `json:"isFallback"`
	Warnings    []string `json:"warnings"`
}

type ChallengeRecord struct {
	Title            string          `json:"title"`
	DifficultyLevel  Difficulty      `json:"difficultyLevel"`
	Description      string          `json:"description"`
	InputFormat      string          `json:"inputFormat"`
	OutputFormat     string          `json:"outputFormat"`
	Constraints      string          `json:"constraints"`
	PublicTestCases  []TestCase      `json:"publicTestCases"`
	PrivateTestCases []TestCase      `json:"privateTestCases"`
	EdgeCases        []TestCase      `json:"edgeCases"`
	Explanation      string          `json:"explanation"`
	Prompt           string          `json:"prompt"`
	Degradation      DegradationInfo `json:"degradation"`
}

// Outcome tags how an extraction reached its record.
type Outcome string

const (
	OutcomeClean    Outcome = "clean"
	OutcomeRepaired Outcome = "repaired"
	OutcomeFallback Outcome = "fallback"
)

// Outcome derives the tag from the degradation flags.
func (d DegradationInfo) Outcome() Outcome {
	switch {
	case d.IsFallback:
		return OutcomeFallback
	case d.WasRepaired:
		return OutcomeRepaired
	default:
		return OutcomeClean
	}
}

// Kind names the two record shapes the service produces.
type Kind string

const (
	KindChallenge Kind = "challenge"
	KindMCQ       Kind = "mcq"
)
