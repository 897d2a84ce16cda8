package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"peerprep/questiongen/internal/models"
)

type testCaseDoc struct {
	Input  string `bson:"input"`
	Output string `bson:"output"`
}

type degradationDoc struct {
	WasRepaired bool     `bson:"was_repaired"`
	IsFallback  bool     `bson:"is_fallback"`
	Warnings    []string `bson:"warnings"`
}

type challengeDoc struct {
	ID               string         `bson:"_id"`
	CreatedAt        time.Time      `bson:"created_at"`
	Title            string         `bson:"title"`
	Difficulty       string         `bson:"difficulty"`
	Description      string         `bson:"description"`
	InputFormat      string         `bson:"input_format"`
	OutputFormat     string         `bson:"output_format"`
	Constraints      string         `bson:"constraints"`
	PublicTestCases  []testCaseDoc  `bson:"public_test_cases"`
	PrivateTestCases []testCaseDoc  `bson:"private_test_cases"`
	EdgeCases        []testCaseDoc  `bson:"edge_cases"`
	Explanation      string         `bson:"explanation"`
	Prompt           string         `bson:"prompt"`
	Outcome          string         `bson:"outcome"`
	Degradation      degradationDoc `bson:"degradation"`
}

type optionDoc struct {
	ID   string `bson:"id"`
	Text string `bson:"text"`
}

type mcqDoc struct {
	ID              string      `bson:"_id"`
	CreatedAt       time.Time   `bson:"created_at"`
	Title           string      `bson:"title"`
	Difficulty      string      `bson:"difficulty"`
	Question        string      `bson:"question"`
	Options         []optionDoc `bson:"options"`
	CorrectOptionID string      `bson:"correct_option_id"`
	Explanation     string      `bson:"explanation"`
	Prompt          string      `bson:"prompt"`
}

// MongoStore keeps records as documents, one collection per record kind.
type MongoStore struct {
	client     *mongo.Client
	challenges *mongo.Collection
	mcqs       *mongo.Collection
	now        func() time.Time
}

// NewMongoStore connects to uri and prepares the collections in dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	db := client.Database(dbName)
	s := &MongoStore{
		client:     client,
		challenges: db.Collection("challenges"),
		mcqs:       db.Collection("mcqs"),
		now:        time.Now,
	}

	_, err = s.challenges.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "difficulty", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) SaveChallenge(ctx context.Context, rec models.ChallengeRecord) (models.SavedChallenge, error) {
	doc := toChallengeDoc(uuid.NewString(), s.now().UTC(), rec)
	if _, err := s.challenges.InsertOne(ctx, doc); err != nil {
		return models.SavedChallenge{}, fmt.Errorf("failed to save challenge: %w", err)
	}
	return doc.saved(), nil
}

func (s *MongoStore) SaveMCQ(ctx context.Context, rec models.MCQRecord) (models.SavedMCQ, error) {
	doc := toMCQDoc(uuid.NewString(), s.now().UTC(), rec)
	if _, err := s.mcqs.InsertOne(ctx, doc); err != nil {
		return models.SavedMCQ{}, fmt.Errorf("failed to save question: %w", err)
	}
	return doc.saved(), nil
}

func (s *MongoStore) GetChallenge(ctx context.Context, id string) (models.SavedChallenge, error) {
	var doc challengeDoc
	if err := s.challenges.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.SavedChallenge{}, ErrNotFound
		}
		return models.SavedChallenge{}, fmt.Errorf("failed to load challenge %s: %w", id, err)
	}
	return doc.saved(), nil
}

func (s *MongoStore) GetMCQ(ctx context.Context, id string) (models.SavedMCQ, error) {
	var doc mcqDoc
	if err := s.mcqs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.SavedMCQ{}, ErrNotFound
		}
		return models.SavedMCQ{}, fmt.Errorf("failed to load question %s: %w", id, err)
	}
	return doc.saved(), nil
}

func (s *MongoStore) ListChallenges(ctx context.Context, filter ListFilter) ([]models.SavedChallenge, error) {
	query := bson.M{}
	if filter.Difficulty != "" {
		query["difficulty"] = string(filter.Difficulty)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(filter.limit()))

	cur, err := s.challenges.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer cur.Close(ctx)

	var docs []challengeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode challenges: %w", err)
	}
	out := make([]models.SavedChallenge, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.saved())
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toTestCaseDocs(cases []models.TestCase) []testCaseDoc {
	out := make([]testCaseDoc, len(cases))
	for i, tc := range cases {
		out[i] = testCaseDoc{Input: tc.Input, Output: tc.Output}
	}
	return out
}

func fromTestCaseDocs(docs []testCaseDoc) []models.TestCase {
	out := make([]models.TestCase, len(docs))
	for i, d := range docs {
		out[i] = models.TestCase{Input: d.Input, Output: d.Output}
	}
	return out
}

func toChallengeDoc(id string, createdAt time.Time, rec models.ChallengeRecord) challengeDoc {
	return challengeDoc{
		ID:               id,
		CreatedAt:        createdAt,
		Title:            rec.Title,
		Difficulty:       string(rec.DifficultyLevel),
		Description:      rec.Description,
		InputFormat:      rec.InputFormat,
		OutputFormat:     rec.OutputFormat,
		Constraints:      rec.Constraints,
		PublicTestCases:  toTestCaseDocs(rec.PublicTestCases),
		PrivateTestCases: toTestCaseDocs(rec.PrivateTestCases),
		EdgeCases:        toTestCaseDocs(rec.EdgeCases),
		Explanation:      rec.Explanation,
		Prompt:           rec.Prompt,
		Outcome:          string(rec.Degradation.Outcome()),
		Degradation: degradationDoc{
			WasRepaired: rec.Degradation.WasRepaired,
			IsFallback:  rec.Degradation.IsFallback,
			Warnings:    rec.Degradation.Warnings,
		},
	}
}

func (d challengeDoc) saved() models.SavedChallenge {
	return models.SavedChallenge{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Record: models.ChallengeRecord{
			Title:            d.Title,
			DifficultyLevel:  models.Difficulty(d.Difficulty),
			Description:      d.Description,
			InputFormat:      d.InputFormat,
			OutputFormat:     d.OutputFormat,
			Constraints:      d.Constraints,
			PublicTestCases:  fromTestCaseDocs(d.PublicTestCases),
			PrivateTestCases: fromTestCaseDocs(d.PrivateTestCases),
			EdgeCases:        fromTestCaseDocs(d.EdgeCases),
			Explanation:      d.Explanation,
			Prompt:           d.Prompt,
			Degradation: models.DegradationInfo{
				WasRepaired: d.Degradation.WasRepaired,
				IsFallback:  d.Degradation.IsFallback,
				Warnings:    d.Degradation.Warnings,
			},
		},
	}
}

func toMCQDoc(id string, createdAt time.Time, rec models.MCQRecord) mcqDoc {
	options := make([]optionDoc, len(rec.Options))
	for i, o := range rec.Options {
		options[i] = optionDoc{ID: o.ID, Text: o.Text}
	}
	return mcqDoc{
		ID:              id,
		CreatedAt:       createdAt,
		Title:           rec.Title,
		Difficulty:      string(rec.DifficultyLevel),
		Question:        rec.Question,
		Options:         options,
		CorrectOptionID: rec.CorrectOptionID,
		Explanation:     rec.Explanation,
		Prompt:          rec.Prompt,
	}
}

func (d mcqDoc) saved() models.SavedMCQ {
	options := make([]models.Option, len(d.Options))
	for i, o := range d.Options {
		options[i] = models.Option{ID: o.ID, Text: o.Text}
	}
	return models.SavedMCQ{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Record: models.MCQRecord{
			Title:           d.Title,
			DifficultyLevel: models.Difficulty(d.Difficulty),
			Question:        d.Question,
			Options:         options,
			CorrectOptionID: d.CorrectOptionID,
			Explanation:     d.Explanation,
			Prompt:          d.Prompt,
		},
	}
}
