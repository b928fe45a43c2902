package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wemeetoffline/server/internal/domain/events"
)

type EventsRepository struct {
	collection *mongo.Collection
	users      *mongo.Collection
}

func NewEventsRepository(db *mongo.Database) *EventsRepository {
	return &EventsRepository{
		collection: db.Collection(eventsCollection),
		users:      db.Collection(usersCollection),
	}
}

func (r *EventsRepository) Create(ctx context.Context, event *events.Event) error {
	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return events.ErrConflict
		}
		return fmt.Errorf("inserting event: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = id
	}
	return nil
}

func (r *EventsRepository) GetByTitle(ctx context.Context, title string) (*events.Event, error) {
	var event events.Event
	if err := r.collection.FindOne(ctx, bson.M{"title": title}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("fetching event: %w", err)
	}
	return &event, nil
}

func (r *EventsRepository) Update(ctx context.Context, event *events.Event) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return events.ErrConflict
		}
		return fmt.Errorf("updating event: %w", err)
	}
	if result.MatchedCount == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventsRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if result.DeletedCount == 0 {
		return events.ErrNotFound
	}
	return nil
}

// personDoc is the projection of a user inside event aggregations.
type personDoc struct {
	ID      primitive.ObjectID `bson:"_id"`
	Name    string             `bson:"name"`
	Picture string             `bson:"pfp"`
}

func (d personDoc) person() events.Person {
	return events.Person{ID: d.ID.Hex(), Name: d.Name, Picture: d.Picture}
}

type summaryDoc struct {
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	BeginsAt    time.Time `bson:"begins_at"`
	EndsAt      time.Time `bson:"ends_at"`
	IsVirtual   bool      `bson:"is_virtual"`
	Tags        []string  `bson:"tags"`
	Picture     string    `bson:"picture"`
	Organizer   personDoc `bson:"organizer"`
}

func (d summaryDoc) summary() events.Summary {
	return events.Summary{
		Title:       d.Title,
		Description: d.Description,
		BeginsAt:    d.BeginsAt,
		EndsAt:      d.EndsAt,
		IsVirtual:   d.IsVirtual,
		Tags:        d.Tags,
		Picture:     d.Picture,
		Organizer:   events.Person{Name: d.Organizer.Name, Picture: d.Organizer.Picture},
	}
}

// organizerStages join the organizer onto each event as a single document.
func organizerStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "organizer_id",
			"foreignField": "_id",
			"as":           "organizer",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$organizer",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
}

var summaryProjection = bson.D{{Key: "$project", Value: bson.M{
	"title":       1,
	"description": 1,
	"begins_at":   1,
	"ends_at":     1,
	"is_virtual":  1,
	"tags":        1,
	"picture":     1,
	"organizer":   bson.M{"_id": "$organizer._id", "name": "$organizer.name", "pfp": "$organizer.pfp"},
}}}

func (r *EventsRepository) ListSummaries(ctx context.Context) ([]events.Summary, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "begins_at", Value: 1}}}},
	}, organizerStages()...)
	pipeline = append(pipeline, summaryProjection)

	return r.aggregateSummaries(ctx, pipeline)
}

func (r *EventsRepository) ListSummariesPage(ctx context.Context, page, limit int64) ([]events.Summary, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	pipeline := append(mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "begins_at", Value: 1}}}},
		{{Key: "$skip", Value: page * limit}},
		{{Key: "$limit", Value: limit}},
	}, organizerStages()...)
	pipeline = append(pipeline, summaryProjection)

	summaries, err := r.aggregateSummaries(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func (r *EventsRepository) GetSummaryByTitle(ctx context.Context, title string) (*events.Summary, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"title": title}}},
	}, organizerStages()...)
	pipeline = append(pipeline, summaryProjection)

	summaries, err := r.aggregateSummaries(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, events.ErrNotFound
	}
	return &summaries[0], nil
}

func (r *EventsRepository) aggregateSummaries(ctx context.Context, pipeline mongo.Pipeline) ([]events.Summary, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []summaryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}

	summaries := make([]events.Summary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, doc.summary())
	}
	return summaries, nil
}

// Search matches a case-insensitive substring against title, tags, and
// organizer name, paginating results and counting the total in one round
// trip via $facet.
func (r *EventsRepository) Search(ctx context.Context, term string, page, limit int64) ([]events.SearchHit, int64, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}

	pipeline := append(organizerStages(), mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"tags": pattern},
			bson.M{"organizer.name": pattern},
		}}}},
		{{Key: "$facet", Value: bson.M{
			"results": bson.A{
				bson.D{{Key: "$sort", Value: bson.D{{Key: "begins_at", Value: 1}}}},
				bson.D{{Key: "$skip", Value: page * limit}},
				bson.D{{Key: "$limit", Value: limit}},
				summaryProjection,
			},
			"total": bson.A{
				bson.D{{Key: "$count", Value: "count"}},
			},
		}}},
	}...)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("searching events: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Results []summaryDoc `bson:"results"`
		Total   []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, 0, fmt.Errorf("decoding search results: %w", err)
	}
	if len(facets) == 0 {
		return []events.SearchHit{}, 0, nil
	}

	hits := make([]events.SearchHit, 0, len(facets[0].Results))
	for _, doc := range facets[0].Results {
		hits = append(hits, events.SearchHit{
			Title:     doc.Title,
			BeginsAt:  doc.BeginsAt,
			IsVirtual: doc.IsVirtual,
			Tags:      doc.Tags,
			Picture:   doc.Picture,
			Organizer: events.Person{Name: doc.Organizer.Name, Picture: doc.Organizer.Picture},
		})
	}

	var total int64
	if len(facets[0].Total) > 0 {
		total = facets[0].Total[0].Count
	}
	return hits, total, nil
}

// Roster resolves the attendee and requester id lists to {name, pfp} people.
func (r *EventsRepository) Roster(ctx context.Context, id primitive.ObjectID) (*events.Roster, error) {
	event, err := r.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	people, err := r.peopleByID(ctx, append(append([]primitive.ObjectID{}, event.AttendeeIDs...), event.RequestedAttendeeIDs...))
	if err != nil {
		return nil, err
	}

	roster := &events.Roster{Attendees: []events.Person{}, Requested: []events.Person{}}
	for _, uid := range event.AttendeeIDs {
		roster.Attendees = append(roster.Attendees, people[uid])
	}
	for _, uid := range event.RequestedAttendeeIDs {
		roster.Requested = append(roster.Requested, people[uid])
	}
	return roster, nil
}

// CommentsWithAuthors returns the event's comment tree with every author
// resolved to {name, pfp}.
func (r *EventsRepository) CommentsWithAuthors(ctx context.Context, id primitive.ObjectID) ([]events.CommentView, error) {
	event, err := r.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var authorIDs []primitive.ObjectID
	for _, comment := range event.Comments {
		authorIDs = append(authorIDs, comment.UserID)
		for _, reply := range comment.Replies {
			authorIDs = append(authorIDs, reply.UserID)
		}
	}
	people, err := r.peopleByID(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]events.CommentView, 0, len(event.Comments))
	for _, comment := range event.Comments {
		view := events.CommentView{
			ID:      comment.ID,
			Author:  people[comment.UserID],
			Text:    comment.Text,
			Replies: []events.ReplyView{},
		}
		for _, reply := range comment.Replies {
			view.Replies = append(view.Replies, events.ReplyView{
				ID:     reply.ID,
				Author: people[reply.UserID],
				Text:   reply.Text,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

var cardOptions = options.Find().
	SetProjection(bson.M{"title": 1, "begins_at": 1, "picture": 1}).
	SetSort(bson.D{{Key: "begins_at", Value: 1}})

func (r *EventsRepository) ListByOrganizer(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error) {
	return r.listCards(ctx, bson.M{"organizer_id": userID})
}

func (r *EventsRepository) ListByAttendee(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error) {
	return r.listCards(ctx, bson.M{"attendee_ids": userID})
}

func (r *EventsRepository) ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]events.Card, error) {
	return r.listCards(ctx, bson.M{"requested_attendee_ids": userID})
}

func (r *EventsRepository) listCards(ctx context.Context, filter bson.M) ([]events.Card, error) {
	cursor, err := r.collection.Find(ctx, filter, cardOptions)
	if err != nil {
		return nil, fmt.Errorf("listing event cards: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Title    string    `bson:"title"`
		BeginsAt time.Time `bson:"begins_at"`
		Picture  string    `bson:"picture"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding event cards: %w", err)
	}

	cards := make([]events.Card, 0, len(docs))
	for _, doc := range docs {
		cards = append(cards, events.Card{Title: doc.Title, BeginsAt: doc.BeginsAt, Picture: doc.Picture})
	}
	return cards, nil
}

func (r *EventsRepository) findByID(ctx context.Context, id primitive.ObjectID) (*events.Event, error) {
	var event events.Event
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("fetching event: %w", err)
	}
	return &event, nil
}

func (r *EventsRepository) peopleByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]events.Person, error) {
	people := map[primitive.ObjectID]events.Person{}
	if len(ids) == 0 {
		return people, nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "pfp": 1}))
	if err != nil {
		return nil, fmt.Errorf("resolving users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []personDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	for _, doc := range docs {
		people[doc.ID] = doc.person()
	}
	return people, nil
}
