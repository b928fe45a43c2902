package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wemeetoffline/server/internal/audit"
)

// LogsRepository backs the audit recorder; the collection's TTL index
// expires entries after the retention window.
type LogsRepository struct {
	collection *mongo.Collection
}

func NewLogsRepository(db *mongo.Database) *LogsRepository {
	return &LogsRepository{collection: db.Collection(logsCollection)}
}

func (r *LogsRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("inserting client log: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = id
	}
	return nil
}
