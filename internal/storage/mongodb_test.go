package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

func newMockMongoStore(mt *mtest.T) *MongoDBStatusStore {
	return &MongoDBStatusStore{client: mt.Client, collection: mt.Coll}
}

func TestMongoDBStatusStore_UpdateIngestionStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert succeeds", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(0)},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: int32(0)}, {Key: "_id", Value: statusKey}}}},
		))

		err := newMockMongoStore(mt).UpdateIngestionStatus(context.Background(), models.IngestionStatus{
			RunID:  "run-1",
			Status: models.StatusSuccess,
		})

		assert.NoError(mt, err)
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := newMockMongoStore(mt).UpdateIngestionStatus(context.Background(), models.IngestionStatus{RunID: "run-1"})

		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to store ingestion status")
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})
}

func TestMongoDBStatusStore_GetIngestionStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stored status", func(mt *mtest.T) {
		attempt := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trends.ingestion_status", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: statusKey},
			{Key: "run_id", Value: "run-1"},
			{Key: "last_attempt", Value: attempt},
			{Key: "status", Value: models.StatusSuccess},
			{Key: "table", Value: "trending_now_2026_oct"},
			{Key: "records_ingested", Value: int32(12)},
			{Key: "duplicates_removed", Value: int32(3)},
		}))

		got, err := newMockMongoStore(mt).GetIngestionStatus(context.Background())

		require.NoError(mt, err)
		assert.Equal(mt, "run-1", got.RunID)
		assert.Equal(mt, models.StatusSuccess, got.Status)
		assert.Equal(mt, "trending_now_2026_oct", got.Table)
		assert.Equal(mt, 12, got.RecordsIngested)
		assert.Equal(mt, 3, got.DuplicatesRemoved)
		assert.True(mt, attempt.Equal(got.LastAttempt))
	})

	mt.Run("no document means never run", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trends.ingestion_status", mtest.FirstBatch))

		got, err := newMockMongoStore(mt).GetIngestionStatus(context.Background())

		require.NoError(mt, err)
		assert.Equal(mt, models.StatusNeverRun, got.Status)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		_, err := newMockMongoStore(mt).GetIngestionStatus(context.Background())

		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to get ingestion status")
	})
}
