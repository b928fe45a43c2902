package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("event not found")
	ErrConflict        = errors.New("event with this title already exists")
	ErrForbidden       = errors.New("unauthorized action")
	ErrCommentNotFound = errors.New("comment not found")
	ErrReplyNotFound   = errors.New("reply not found")
	ErrNotRegistered   = errors.New("not registered for this event")
)

// ValidationError reports contradictory or malformed input for one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Event is the aggregate root. It owns its comment threads outright and
// references users (organizer, attendees, requesters, comment authors) by id
// only; user lifetime is independent of any event.
type Event struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty"`
	Title                string               `bson:"title"`
	Description          string               `bson:"description"`
	BeginsAt             time.Time            `bson:"begins_at"`
	EndsAt               time.Time            `bson:"ends_at"`
	IsVirtual            bool                 `bson:"is_virtual"`
	Address              string               `bson:"address"`
	Tags                 []string             `bson:"tags"`
	OrganizerID          primitive.ObjectID   `bson:"organizer_id"`
	AttendeeIDs          []primitive.ObjectID `bson:"attendee_ids"`
	RequestedAttendeeIDs []primitive.ObjectID `bson:"requested_attendee_ids"`
	Comments             []Comment            `bson:"comments"`
	Picture              string               `bson:"picture"`
	CreatedAt            time.Time            `bson:"created_at"`
}

// Comment ids are ULIDs generated at creation; comments and replies are only
// addressable through their parent event.
type Comment struct {
	ID      string             `bson:"id"`
	UserID  primitive.ObjectID `bson:"user_id"`
	Text    string             `bson:"text"`
	Replies []Reply            `bson:"replies"`
}

type Reply struct {
	ID     string             `bson:"id"`
	UserID primitive.ObjectID `bson:"user_id"`
	Text   string             `bson:"text"`
}

// Person is the public projection of a user on event payloads.
type Person struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Picture string `json:"pfp"`
}

// Summary is the redacted listing projection: no address, no attendee or
// request lists, organizer collapsed to name and picture.
type Summary struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BeginsAt    time.Time `json:"beginsAt"`
	EndsAt      time.Time `json:"endsAt"`
	IsVirtual   bool      `json:"isVirtual"`
	Tags        []string  `json:"tags"`
	Picture     string    `json:"picture"`
	Organizer   Person    `json:"organizer"`
}

// SearchHit is the trimmed projection returned by search.
type SearchHit struct {
	Title     string    `json:"title"`
	BeginsAt  time.Time `json:"beginsAt"`
	IsVirtual bool      `json:"isVirtual"`
	Tags      []string  `json:"tags"`
	Picture   string    `json:"picture"`
	Organizer Person    `json:"organizer"`
}

// Card is the minimal projection used on profile pages.
type Card struct {
	Title    string    `json:"title"`
	BeginsAt time.Time `json:"beginsAt"`
	Picture  string    `json:"picture"`
}

// CommentView is a comment with its author resolved, as returned to clients
// after every comment mutation.
type CommentView struct {
	ID      string      `json:"id"`
	Author  Person      `json:"author"`
	Text    string      `json:"text"`
	Replies []ReplyView `json:"replies"`
}

type ReplyView struct {
	ID     string `json:"id"`
	Author Person `json:"author"`
	Text   string `json:"text"`
}

// Roster holds the populated attendee and requester lists.
type Roster struct {
	Attendees []Person
	Requested []Person
}

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByTitle(ctx context.Context, title string) (*Event, error)
	// Update persists the whole aggregate; concurrent writers are
	// last-write-wins, the store is the sole point of serialization.
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	ListSummaries(ctx context.Context) ([]Summary, error)
	ListSummariesPage(ctx context.Context, page, limit int64) ([]Summary, int64, error)
	GetSummaryByTitle(ctx context.Context, title string) (*Summary, error)
	Search(ctx context.Context, term string, page, limit int64) ([]SearchHit, int64, error)

	Roster(ctx context.Context, id primitive.ObjectID) (*Roster, error)
	CommentsWithAuthors(ctx context.Context, id primitive.ObjectID) ([]CommentView, error)

	ListByOrganizer(ctx context.Context, userID primitive.ObjectID) ([]Card, error)
	ListByAttendee(ctx context.Context, userID primitive.ObjectID) ([]Card, error)
	ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]Card, error)
}
