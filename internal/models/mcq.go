package models

// valid option ids, in order
var OptionIDs = []string{"A", "B", "C", "D"}

const OptionCount = 4

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MCQRecord struct {
	Title           string     `json:"title"`
	DifficultyLevel Difficulty `json:"difficultyLevel"`
	Question        string     `json:"question"`
	Options         []Option   `json:"options"`
	CorrectOptionID string     `json:"correctOptionId"`
	Explanation     string     `json:"explanation"`
	Prompt          string     `json:"prompt"`
}

// IsOptionID reports whether id is one of A-D.
func IsOptionID(id string) bool {
	for _, valid := range OptionIDs {
		if id == valid {
			return true
		}
	}
	return false
}
