package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
	logsCollection   = "client_logs"

	clientLogRetention = 15 * 24 * time.Hour
)

// Connect dials the server and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates every index the repositories rely on. Index creation
// is idempotent, so this runs unconditionally at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users indexes: %w", err)
	}

	_, err = db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "organizer_id", Value: 1}}},
		{Keys: bson.D{{Key: "attendee_ids", Value: 1}}},
		{Keys: bson.D{{Key: "requested_attendee_ids", Value: 1}}},
		{Keys: bson.D{{Key: "begins_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating events indexes: %w", err)
	}

	_, err = db.Collection(logsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(clientLogRetention.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("creating client_logs indexes: %w", err)
	}
	return nil
}
