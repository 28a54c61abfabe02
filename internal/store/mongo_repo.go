package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/annel0/starforge/internal/level"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB level repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. starforge
	Collection string // e.g. levels
}

// MongoLevelRepo implements LevelRepo on a MongoDB backend. The level
// document is stored as raw JSON next to the fields the listing needs,
// so List never has to decode entity payloads.
type MongoLevelRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type mongoLevelRecord struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	LastModified time.Time `bson:"last_modified"`
	IsPublished  bool      `bson:"is_published"`
	PublishID    string    `bson:"publish_id,omitempty"`
	Document     []byte    `bson:"document"`
}

// NewMongoLevelRepo establishes the connection and returns the repository.
func NewMongoLevelRepo(cfg MongoConfig) (*MongoLevelRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "starforge"
	}
	if cfg.Collection == "" {
		cfg.Collection = "levels"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongoLevelRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

// Put upserts the level record keyed by id.
func (m *MongoLevelRepo) Put(ctx context.Context, id string, doc *level.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}

	record := mongoLevelRecord{
		ID:           id,
		Name:         doc.Settings.Name,
		LastModified: doc.Metadata.LastModified,
		IsPublished:  doc.PublishState.IsPublished,
		PublishID:    doc.PublishState.PublishID,
		Document:     raw,
	}

	cctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(cctx, bson.M{"_id": id}, record, opts); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

// Get fetches the level document by id.
func (m *MongoLevelRepo) Get(ctx context.Context, id string) (*level.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	cctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var record mongoLevelRecord
	err := m.collection.FindOne(cctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}

	var doc level.Document
	if err := json.Unmarshal(record.Document, &doc); err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return &doc, nil
}

// List builds summaries from the indexed fields without decoding documents.
func (m *MongoLevelRepo) List(ctx context.Context) ([]level.Summary, error) {
	cctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"document": 0})
	cursor, err := m.collection.Find(cctx, bson.M{}, opts)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	defer cursor.Close(cctx)

	summaries := make([]level.Summary, 0)
	for cursor.Next(cctx) {
		var record mongoLevelRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, &StorageError{Op: "list", Err: err}
		}
		summaries = append(summaries, level.Summary{
			ID:           record.ID,
			Name:         record.Name,
			LastModified: record.LastModified,
			IsPublished:  record.IsPublished,
			PublishID:    record.PublishID,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return summaries, nil
}

// Delete removes the level record.
func (m *MongoLevelRepo) Delete(ctx context.Context, id string) error {
	cctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	res, err := m.collection.DeleteOne(cctx, bson.M{"_id": id})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *MongoLevelRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
