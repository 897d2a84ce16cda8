package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"peerprep/questiongen/internal/models"
)

const (
	defaultTitle   = "Generated Challenge"
	titleWordLimit = 6
)

// scalar fields the fallback tries to lift out of unparseable text
var fallbackScalars = []string{
	"title", "difficultyLevel", "description", "inputFormat",
	"outputFormat", "constraints", "explanation",
}

var (
	easyWords = regexp.MustCompile(`(?i)\b(easy|simple|beginner|basic|introductory)\b`)
	hardWords = regexp.MustCompile(`(?i)\b(hard|difficult|advanced|challenging|complex)\b`)
)

func scalarPattern(field string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// SynthesizeChallenge builds a record from whatever "field": "value"
// fragments text still holds, deriving everything else from the prompt. Test
// cases are always deterministic fallback placeholders. It cannot fail.
func SynthesizeChallenge(text, prompt string) (models.ChallengeRecord, []string) {
	cand := Candidate{}
	for _, field := range fallbackScalars {
		if m := scalarPattern(field).FindStringSubmatch(text); m != nil {
			cand[field] = unescapeLoose(m[1])
		}
	}
	if _, ok := cand["difficultyLevel"]; !ok {
		cand["difficultyLevel"] = string(difficultyFromPrompt(prompt))
	}
	cand["publicTestCases"] = fallbackCases("publicTestCases", models.MinPublicTestCases)
	cand["privateTestCases"] = fallbackCases("privateTestCases", models.PrivateTestCaseCount)
	cand["edgeCases"] = fallbackCases("edgeCases", models.EdgeCaseCount)

	return ValidateChallenge(cand, prompt)
}

func fallbackCases(field string, n int) []any {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"input":  fmt.Sprintf("%s %s[%d].input", models.FallbackTag, field, i),
			"output": fmt.Sprintf("%s %s[%d].output", models.FallbackTag, field, i),
		})
	}
	return out
}

// unescapeLoose resolves the common JSON escapes without failing on bad ones.
func unescapeLoose(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
		case '"', '\\', '/':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// titleFromPrompt title-cases the first few words of the prompt.
func titleFromPrompt(prompt string) string {
	words := strings.FieldsFunc(prompt, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	if len(words) == 0 {
		return defaultTitle
	}
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func descriptionFromPrompt(prompt string) string {
	if p := strings.TrimSpace(prompt); p != "" {
		return p
	}
	return defaultDescription
}

func difficultyFromPrompt(prompt string) models.Difficulty {
	switch {
	case easyWords.MatchString(prompt):
		return models.Easy
	case hardWords.MatchString(prompt):
		return models.Hard
	}
	return models.Medium
}
