package extract

import (
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/repair"
)

// ChallengeSchema is the set of top-level keys every challenge candidate must carry.
var ChallengeSchema = repair.Schema{Fields: []repair.Field{
	{Name: "title", Kind: repair.Scalar},
	{Name: "difficultyLevel", Kind: repair.Scalar, Default: string(models.Medium)},
	{Name: "description", Kind: repair.Scalar},
	{Name: "inputFormat", Kind: repair.Scalar},
	{Name: "outputFormat", Kind: repair.Scalar},
	{Name: "constraints", Kind: repair.Scalar},
	{Name: "publicTestCases", Kind: repair.TestCaseArray},
	{Name: "privateTestCases", Kind: repair.TestCaseArray},
	{Name: "edgeCases", Kind: repair.TestCaseArray},
	{Name: "explanation", Kind: repair.Scalar},
}}

// default text for prose fields the model left out
const (
	defaultFormat      = "Not specified."
	defaultConstraints = "Not specified."
	defaultExplanation = "No explanation was provided."
	defaultDescription = "No description was provided."
)
