package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"peerprep/questiongen/internal/models"
)

func TestChallengeDocSurvivesBSON(t *testing.T) {
	rec := sampleChallenge("Two Sum", models.Hard)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := bson.Marshal(toChallengeDoc("id-1", created, rec))
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "id-1", decoded["_id"])
	assert.Equal(t, "repaired", decoded["outcome"])

	var doc challengeDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	saved := doc.saved()
	assert.Equal(t, "id-1", saved.ID)
	assert.True(t, created.Equal(saved.CreatedAt))
	assert.Equal(t, rec, saved.Record)
}

func TestMCQDocConversion(t *testing.T) {
	rec := models.MCQRecord{
		Title:           "t",
		DifficultyLevel: models.Easy,
		Question:        "q",
		Options:         []models.Option{{ID: "A", Text: "1"}, {ID: "B", Text: "2"}, {ID: "C", Text: "3"}, {ID: "D", Text: "4"}},
		CorrectOptionID: "C",
	}
	saved := toMCQDoc("id-2", time.Now(), rec).saved()
	assert.Equal(t, rec, saved.Record)
}
