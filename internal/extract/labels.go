package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRefusal matches every error the label parser returns. Callers should ask
// for a new generation rather than repair the text.
var ErrRefusal = errors.New("label-shaped text refused")

// MissingSectionsError names every absent label, in label order.
type MissingSectionsError struct {
	Sections []string
}

func (e *MissingSectionsError) Error() string {
	return "missing sections: " + strings.Join(e.Sections, ", ")
}

func (e *MissingSectionsError) Is(target error) bool { return target == ErrRefusal }

// WrongOptionCountError reports an OPTIONS block without exactly A, B, C and D.
type WrongOptionCountError struct {
	Found int
}

func (e *WrongOptionCountError) Error() string {
	return fmt.Sprintf("expected options A, B, C and D, found %d option(s)", e.Found)
}

func (e *WrongOptionCountError) Is(target error) bool { return target == ErrRefusal }

// InvalidCorrectOptionError reports a CORRECT section naming no option id.
type InvalidCorrectOptionError struct {
	Value string
}

func (e *InvalidCorrectOptionError) Error() string {
	return fmt.Sprintf("correct option %q is not one of A, B, C, D", e.Value)
}

func (e *InvalidCorrectOptionError) Is(target error) bool { return target == ErrRefusal }

// section labels in the order they must appear
var sectionLabels = []string{"TITLE", "DIFFICULTY", "QUESTION", "OPTIONS", "CORRECT", "EXPLANATION"}

var labelPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(sectionLabels))
	for _, label := range sectionLabels {
		m[label] = regexp.MustCompile(`(?m)^[ \t]*(?:\*\*)?` + label + `(?:\*\*)?[ \t]*:(?:\*\*)?`)
	}
	return m
}()

var (
	optionLine    = regexp.MustCompile(`^\s*([A-D])[:)]\s*(.*)$`)
	correctLetter = regexp.MustCompile(`\b([A-D])\b`)
)

type labelHit struct {
	label      string
	start, end int
}

// splitSections locates each label at a line start after the previous one
// and returns the text between a label and the next label found.
func splitSections(text string) (map[string]string, error) {
	var hits []labelHit
	var missing []string
	pos := 0
	for _, label := range sectionLabels {
		loc := labelPatterns[label].FindStringIndex(text[pos:])
		if loc == nil {
			missing = append(missing, label)
			continue
		}
		hits = append(hits, labelHit{label: label, start: pos + loc[0], end: pos + loc[1]})
		pos += loc[1]
	}
	if len(missing) > 0 {
		return nil, &MissingSectionsError{Sections: missing}
	}

	sections := make(map[string]string, len(hits))
	for i, h := range hits {
		stop := len(text)
		if i+1 < len(hits) {
			stop = hits[i+1].start
		}
		sections[h.label] = strings.TrimSpace(text[h.end:stop])
	}
	return sections, nil
}

// parseOptions reads option lines; a line that does not start a new option
// continues the previous one.
func parseOptions(block string) []any {
	var options []any
	var current map[string]any
	for _, line := range strings.Split(block, "\n") {
		if m := optionLine.FindStringSubmatch(line); m != nil {
			current = map[string]any{"id": m[1], "text": strings.TrimSpace(m[2])}
			options = append(options, current)
			continue
		}
		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}
		current["text"] = current["text"].(string) + "\n" + strings.TrimSpace(line)
	}
	return options
}

// ParseLabeled turns label-shaped text into a candidate. It refuses text
// missing any section, with an option block other than A to D, or without a
// usable answer letter.
func ParseLabeled(text string) (Candidate, error) {
	sections, err := splitSections(strings.ReplaceAll(text, "\r\n", "\n"))
	if err != nil {
		return nil, err
	}

	var empty []string
	for _, label := range []string{"QUESTION", "OPTIONS", "CORRECT"} {
		if sections[label] == "" {
			empty = append(empty, label)
		}
	}
	if len(empty) > 0 {
		return nil, &MissingSectionsError{Sections: empty}
	}

	options := parseOptions(sections["OPTIONS"])
	if _, err := coerceOptions(options); err != nil {
		return nil, err
	}

	m := correctLetter.FindStringSubmatch(sections["CORRECT"])
	if m == nil {
		return nil, &InvalidCorrectOptionError{Value: sections["CORRECT"]}
	}

	return Candidate{
		"title":           sections["TITLE"],
		"difficultyLevel": firstWord(sections["DIFFICULTY"]),
		"question":        sections["QUESTION"],
		"options":         options,
		"correctOptionId": m[1],
		"explanation":     sections["EXPLANATION"],
	}, nil
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "*.,;:!()[]")
}
