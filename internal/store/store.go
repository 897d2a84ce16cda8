// Package store persists validated question records. Implementations assign
// the identifier and creation time; records arrive already valid.
package store

import (
	"context"
	"errors"

	"peerprep/questiongen/internal/models"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListFilter narrows ListChallenges. A zero Limit means the default page size.
type ListFilter struct {
	Difficulty models.Difficulty
	Limit      int
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	}
	return f.Limit
}

type Store interface {
	SaveChallenge(ctx context.Context, rec models.ChallengeRecord) (models.SavedChallenge, error)
	SaveMCQ(ctx context.Context, rec models.MCQRecord) (models.SavedMCQ, error)
	GetChallenge(ctx context.Context, id string) (models.SavedChallenge, error)
	GetMCQ(ctx context.Context, id string) (models.SavedMCQ, error)
	ListChallenges(ctx context.Context, filter ListFilter) ([]models.SavedChallenge, error)
	Ping(ctx context.Context) error
}
