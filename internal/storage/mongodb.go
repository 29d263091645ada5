package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

const statusCollection = "ingestion_status"

// MongoDBStatusStore implements StatusStore using MongoDB
type MongoDBStatusStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBStatusStore connects to MongoDB and verifies the connection
func NewMongoDBStatusStore(ctx context.Context, cfg config.StatusConfig) (*MongoDBStatusStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBStatusStore{
		client:     client,
		collection: client.Database(cfg.MongoDB).Collection(statusCollection),
	}, nil
}

// UpdateIngestionStatus upserts the status document
func (m *MongoDBStatusStore) UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error {
	filter := bson.M{"_id": statusKey}
	opts := options.Replace().SetUpsert(true)

	if _, err := m.collection.ReplaceOne(ctx, filter, status, opts); err != nil {
		return fmt.Errorf("failed to store ingestion status: %w", err)
	}

	return nil
}

// GetIngestionStatus retrieves the current ingestion status
func (m *MongoDBStatusStore) GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error) {
	var status models.IngestionStatus

	err := m.collection.FindOne(ctx, bson.M{"_id": statusKey}).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.IngestionStatus{Status: models.StatusNeverRun}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}

	return &status, nil
}

// Close disconnects the MongoDB client
func (m *MongoDBStatusStore) Close() error {
	return m.client.Disconnect(context.Background())
}
