package utils

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeTopic collapses whitespace so topics render cleanly into prompts.
func NormalizeTopic(topic string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(topic), " ")
}

// StripFences removes a single surrounding markdown code fence (with optional
// language tag) and trims the result. Text without a leading fence is only trimmed.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
