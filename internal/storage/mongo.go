package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anishjha12309/itero/internal/models"
)

const interviewsCollection = "interviews"

// MongoStore persists interviews in a MongoDB collection, one document
// per session keyed by session_id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and pings it before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(interviewsCollection),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, interview *models.Interview) error {
	filter := bson.M{"sessionId": interview.SessionID}
	update := bson.M{"$set": interview}
	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save interview: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*models.Interview, error) {
	var interview models.Interview
	err := s.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&interview)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return &interview, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*models.Interview, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*models.Interview
	for cursor.Next(ctx) {
		var interview models.Interview
		if err := cursor.Decode(&interview); err != nil {
			return nil, fmt.Errorf("decode interview: %w", err)
		}
		out = append(out, &interview)
	}
	return out, cursor.Err()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
