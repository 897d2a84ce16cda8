package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"peerprep/questiongen/internal/markdown"
	"peerprep/questiongen/internal/models"
)

var (
	// unresolved template placeholders such as {{n}} or ${n}
	templated = regexp.MustCompile(`\{\{|\$\{`)
	// string building the model wrote instead of a literal value
	concatenated = regexp.MustCompile(`["']\s*[+*]\s*["'\d]|\.repeat\(|\.join\(`)
	// boundary-scale evidence expected in an edge case
	boundaryHint = regexp.MustCompile(`(?i)\d{5,}|10\^\d|1e\d|\bmax(imum)?\b|INT_MAX|2\^31`)
)

// coercer accumulates a warning for every deviation it repairs.
type coercer struct {
	warnings []string
}

func (c *coercer) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// ValidateChallenge coerces cand into a challenge record. It never fails:
// wrong or missing values become labeled defaults and each substitution is
// reported in the returned warnings.
func ValidateChallenge(cand Candidate, prompt string) (models.ChallengeRecord, []string) {
	c := &coercer{}
	rec := models.ChallengeRecord{
		Title:           c.text(cand, "title", titleFromPrompt(prompt)),
		DifficultyLevel: c.difficulty(cand["difficultyLevel"]),
		Description:     c.text(cand, "description", descriptionFromPrompt(prompt)),
		InputFormat:     c.text(cand, "inputFormat", defaultFormat),
		OutputFormat:    c.text(cand, "outputFormat", defaultFormat),
		Constraints:     c.constraints(cand),
		Explanation:     c.text(cand, "explanation", defaultExplanation),
		Prompt:          prompt,
	}

	public := c.testCases(cand, "publicTestCases")
	private := c.testCases(cand, "privateTestCases")
	edge := c.testCases(cand, "edgeCases")
	rec.PublicTestCases, rec.PrivateTestCases, rec.EdgeCases = c.cardinality(public, private, edge)
	c.edgeAdvisory(rec.EdgeCases)

	rec.Description = markdown.Normalize(rec.Description)
	rec.InputFormat = markdown.Normalize(rec.InputFormat)
	rec.OutputFormat = markdown.Normalize(rec.OutputFormat)
	rec.Constraints = markdown.Normalize(rec.Constraints)
	rec.Explanation = markdown.Normalize(rec.Explanation)

	return rec, c.warnings
}

func (c *coercer) text(cand Candidate, field, def string) string {
	v, ok := cand[field]
	if !ok {
		c.warnf("%s is missing; using a default", field)
		return def
	}
	s, ok := v.(string)
	if !ok {
		c.warnf("%s is a %s, not text; using a default", field, typeName(v))
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		c.warnf("%s is empty; using a default", field)
		return def
	}
	return s
}

func (c *coercer) difficulty(v any) models.Difficulty {
	s, _ := v.(string)
	if d, ok := models.ParseDifficulty(s); ok {
		return d
	}
	c.warnf("difficultyLevel %q is not Easy, Medium or Hard; using Medium", fmt.Sprint(v))
	return models.Medium
}

// constraints accepts one string or a list of strings joined with "; ".
func (c *coercer) constraints(cand Candidate) string {
	list, ok := cand["constraints"].([]any)
	if !ok {
		return c.text(cand, "constraints", defaultConstraints)
	}

	parts := make([]string, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				parts = append(parts, s)
			}
		case json.Number:
			parts = append(parts, v.String())
		default:
			c.warnf("constraints[%d] is a %s, not text; skipped", i, typeName(item))
		}
	}
	if len(parts) == 0 {
		c.warnf("constraints is an empty list; using a default")
		return defaultConstraints
	}
	return strings.Join(parts, "; ")
}

func (c *coercer) testCases(cand Candidate, field string) []models.TestCase {
	v, ok := cand[field]
	if !ok || v == nil {
		c.warnf("%s is missing", field)
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		c.warnf("%s is a %s, not a list", field, typeName(v))
		return nil
	}

	cases := make([]models.TestCase, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			c.warnf("%s[%d] is a %s, not a test case; replaced with a placeholder", field, i, typeName(item))
			cases = append(cases, models.PlaceholderTestCase(field, i))
			continue
		}
		cases = append(cases, models.TestCase{
			Input:  c.leaf(obj, field, i, "input"),
			Output: c.leaf(obj, field, i, "output"),
		})
	}
	return cases
}

// leaf returns the literal text of one side of a test case, or a placeholder
// naming exactly which case and side could not be used.
func (c *coercer) leaf(obj map[string]any, field string, i int, side string) string {
	placeholder := models.PlaceholderText(field, i, side)
	v, ok := obj[side]
	if !ok {
		c.warnf("%s[%d].%s is missing", field, i, side)
		return placeholder
	}
	s, ok := v.(string)
	if !ok {
		c.warnf("%s[%d].%s is a %s, not text", field, i, side, typeName(v))
		return placeholder
	}
	if reason := literalDefect(s); reason != "" {
		c.warnf("%s[%d].%s %s", field, i, side, reason)
		return placeholder
	}
	return s
}

func literalDefect(s string) string {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return "is empty"
	case templated.MatchString(s):
		return "contains an unresolved template"
	case concatenated.MatchString(s):
		return "is built by concatenation instead of written out"
	case strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") ||
		strings.Contains(strings.ToLower(s), "[truncated]"):
		return "is truncated"
	}
	return ""
}

// cardinality enforces public >= 2, private == 4 and edge == 1. Surplus
// private and edge cases move to the public list; shortfalls are padded with
// placeholders. Nothing the model wrote is dropped.
func (c *coercer) cardinality(public, private, edge []models.TestCase) ([]models.TestCase, []models.TestCase, []models.TestCase) {
	if n := len(private); n > models.PrivateTestCaseCount {
		public = append(public, private[models.PrivateTestCaseCount:]...)
		private = private[:models.PrivateTestCaseCount:models.PrivateTestCaseCount]
		c.warnf("privateTestCases had %d cases; moved %d to publicTestCases", n, n-models.PrivateTestCaseCount)
	}
	if n := len(edge); n > models.EdgeCaseCount {
		public = append(public, edge[models.EdgeCaseCount:]...)
		edge = edge[:models.EdgeCaseCount:models.EdgeCaseCount]
		c.warnf("edgeCases had %d cases; moved %d to publicTestCases", n, n-models.EdgeCaseCount)
	}

	private = c.pad("privateTestCases", private, models.PrivateTestCaseCount)
	edge = c.pad("edgeCases", edge, models.EdgeCaseCount)
	public = c.pad("publicTestCases", public, models.MinPublicTestCases)
	return public, private, edge
}

func (c *coercer) pad(field string, cases []models.TestCase, want int) []models.TestCase {
	n := len(cases)
	if n >= want {
		return cases
	}
	for i := n; i < want; i++ {
		cases = append(cases, models.PlaceholderTestCase(field, i))
	}
	c.warnf("%s had %d cases; padded to %d with placeholders", field, n, want)
	return cases
}

// edgeAdvisory warns when the edge case carries no sign of a boundary-scale
// value. It never changes the record.
func (c *coercer) edgeAdvisory(edge []models.TestCase) {
	for _, tc := range edge {
		if models.IsSynthesized(tc.Input) {
			continue
		}
		if !boundaryHint.MatchString(tc.Input) && !boundaryHint.MatchString(tc.Output) {
			c.warnf("edge case shows no boundary or maximum-scale value")
		}
	}
}

// ValidateMCQ coerces a label-parsed candidate into a question record.
// Unlike challenges, an unusable option set or answer is refused.
func ValidateMCQ(cand Candidate) (models.MCQRecord, []string, error) {
	c := &coercer{}

	question := strings.TrimSpace(asString(cand["question"]))
	if question == "" {
		return models.MCQRecord{}, nil, &MissingSectionsError{Sections: []string{"QUESTION"}}
	}

	options, err := coerceOptions(cand["options"])
	if err != nil {
		return models.MCQRecord{}, nil, err
	}

	correct := strings.ToUpper(strings.TrimSpace(asString(cand["correctOptionId"])))
	if !models.IsOptionID(correct) {
		return models.MCQRecord{}, nil, &InvalidCorrectOptionError{Value: correct}
	}

	rec := models.MCQRecord{
		Title:           c.text(cand, "title", titleFromPrompt(question)),
		DifficultyLevel: c.difficulty(cand["difficultyLevel"]),
		Question:        markdown.Normalize(question),
		Options:         options,
		CorrectOptionID: correct,
		Explanation:     markdown.Normalize(c.text(cand, "explanation", defaultExplanation)),
		Prompt:          asString(cand["prompt"]),
	}
	return rec, c.warnings, nil
}

// coerceOptions requires exactly the ids A to D, each once, and returns them in id order.
func coerceOptions(v any) ([]models.Option, error) {
	list, _ := v.([]any)
	byID := make(map[string]string, len(list))
	for _, item := range list {
		obj, _ := item.(map[string]any)
		id := strings.ToUpper(strings.TrimSpace(asString(obj["id"])))
		if !models.IsOptionID(id) {
			continue
		}
		if _, dup := byID[id]; dup {
			return nil, &WrongOptionCountError{Found: len(list)}
		}
		byID[id] = strings.TrimSpace(asString(obj["text"]))
	}
	if len(list) != models.OptionCount || len(byID) != models.OptionCount {
		return nil, &WrongOptionCountError{Found: len(list)}
	}

	options := make([]models.Option, 0, models.OptionCount)
	for _, id := range models.OptionIDs {
		options = append(options, models.Option{ID: id, Text: markdown.Normalize(byID[id])})
	}
	return options, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
