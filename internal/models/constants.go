package models

// ValidDifficultiesList is the accepted request difficulties, lowercase, easiest first.
func ValidDifficultiesList() []string {
	return []string{"easy", "medium", "hard"}
}

// request limits
const (
	MaxPromptLength = 4000
	MaxRawTextBytes = 256 * 1024
	MaxBatchItems   = 10
)
