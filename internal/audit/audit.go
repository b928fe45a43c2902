package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wemeetoffline/server/internal/sanitize"
)

// Entry is a client-reported log line. The backing collection carries a TTL
// index so entries age out on their own.
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Origin    string             `bson:"origin" json:"origin"`
	Type      string             `bson:"type" json:"type"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Store interface {
	Insert(ctx context.Context, entry *Entry) error
}

// Recorder persists client log entries and mirrors them into the server log
// so they show up alongside request logs.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, origin, kind, message string) (*Entry, error) {
	entry := &Entry{
		Origin:    sanitize.Text(origin),
		Type:      sanitize.Text(kind),
		Message:   sanitize.Text(message),
		CreatedAt: time.Now().UTC(),
	}
	if entry.Type == "" {
		entry.Type = "log"
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("origin", entry.Origin).
		Str("client_log_type", entry.Type).
		Str("message", entry.Message).
		Msg("client log recorded")
	return entry, nil
}
