package events

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wemeetoffline/server/internal/sanitize"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Title       string
	Description string
	BeginsAt    time.Time
	EndsAt      time.Time
	IsVirtual   bool
	Address     string
	Tags        []string
	Picture     string
}

// UpdateParams carries optional updates; nil fields are left untouched.
// BeginsAt and EndsAt must be supplied together so the window stays
// validated as a pair.
type UpdateParams struct {
	Description *string
	BeginsAt    *time.Time
	EndsAt      *time.Time
	IsVirtual   *bool
	Address     *string
	Tags        []string
	Picture     *string
}

// Status describes the caller's relationship to an event.
type Status struct {
	IsOrganizer  bool `json:"isOrganizer"`
	IsAttendee   bool `json:"isAttendee"`
	HasRequested bool `json:"hasRequested"`
}

// Disclosure is the address/attendee view; Requested is only present for
// the organizer.
type Disclosure struct {
	Address   string   `json:"address"`
	Attendees []Person `json:"attendees"`
	Requested []Person `json:"requestedAttendees,omitempty"`
}

type UnregisterOutcome int

const (
	OutcomeUnregistered UnregisterOutcome = iota
	OutcomeRequestCancelled
)

type RemovalOutcome int

const (
	OutcomeRemoved RemovalOutcome = iota
	OutcomeRejected
)

// PageResult is a page of summaries plus the total page count.
type PageResult struct {
	Events []Summary `json:"events"`
	Pages  int64     `json:"pages"`
}

// SearchResult is a page of hits plus page and raw totals.
type SearchResult struct {
	Events []SearchHit `json:"events"`
	Pages  int64       `json:"pages"`
	Total  int64       `json:"total"`
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Event, error) {
	organizerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	if params.Title == "" {
		return nil, ValidationError{Field: "title", Message: "must not be empty"}
	}
	if !params.BeginsAt.Before(params.EndsAt) {
		return nil, ValidationError{Field: "endsAt", Message: "event end time must be after start time"}
	}

	event := &Event{
		Title:                sanitize.Text(params.Title),
		Description:          sanitize.Text(params.Description),
		BeginsAt:             params.BeginsAt,
		EndsAt:               params.EndsAt,
		IsVirtual:            params.IsVirtual,
		Address:              sanitize.Text(params.Address),
		Tags:                 sanitize.TextSlice(params.Tags),
		OrganizerID:          organizerID,
		AttendeeIDs:          []primitive.ObjectID{},
		RequestedAttendeeIDs: []primitive.ObjectID{},
		Comments:             []Comment{},
		Picture:              params.Picture,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.ListSummaries(ctx)
}

func (s *Service) ListPage(ctx context.Context, page, limit int64) (*PageResult, error) {
	if page < 0 {
		return nil, ValidationError{Field: "page", Message: "must not be negative"}
	}
	if limit < 1 {
		return nil, ValidationError{Field: "limit", Message: "must be at least 1"}
	}

	summaries, total, err := s.repo.ListSummariesPage(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &PageResult{Events: summaries, Pages: pageCount(total, limit)}, nil
}

func (s *Service) GetByTitle(ctx context.Context, title string) (*Summary, error) {
	return s.repo.GetSummaryByTitle(ctx, title)
}

// Search matches a case-insensitive substring against titles, tags, and
// organizer names.
func (s *Service) Search(ctx context.Context, term string, page, limit int64) (*SearchResult, error) {
	if page < 0 {
		return nil, ValidationError{Field: "page", Message: "must not be negative"}
	}
	if limit < 1 {
		return nil, ValidationError{Field: "limit", Message: "must be at least 1"}
	}

	hits, total, err := s.repo.Search(ctx, term, page, limit)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Events: hits, Pages: pageCount(total, limit), Total: total}, nil
}

func (s *Service) Update(ctx context.Context, userID, title string, params UpdateParams) error {
	callerID, err := parseUserID(userID)
	if err != nil {
		return err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if event.OrganizerID != callerID {
		return ErrForbidden
	}

	if (params.BeginsAt == nil) != (params.EndsAt == nil) {
		return ValidationError{Field: "beginsAt", Message: "start and end times must be updated together"}
	}
	if params.BeginsAt != nil {
		if !params.BeginsAt.Before(*params.EndsAt) {
			return ValidationError{Field: "endsAt", Message: "event end time must be after start time"}
		}
		event.BeginsAt = *params.BeginsAt
		event.EndsAt = *params.EndsAt
	}
	if params.Description != nil {
		event.Description = sanitize.Text(*params.Description)
	}
	if params.IsVirtual != nil {
		event.IsVirtual = *params.IsVirtual
	}
	if params.Address != nil {
		event.Address = sanitize.Text(*params.Address)
	}
	if params.Tags != nil {
		event.Tags = sanitize.TextSlice(params.Tags)
	}
	if params.Picture != nil {
		event.Picture = *params.Picture
	}

	// The organizer reference is immutable: it is re-pinned to the caller
	// no matter what the payload carried.
	event.OrganizerID = callerID

	return s.repo.Update(ctx, event)
}

func (s *Service) Delete(ctx context.Context, userID, title string) error {
	callerID, err := parseUserID(userID)
	if err != nil {
		return err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if event.OrganizerID != callerID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, event.ID)
}

// Register moves the caller to the pending list. A confirmed attendee cannot
// re-register; a duplicate pending request is a no-op (set union).
func (s *Service) Register(ctx context.Context, userID, title string) error {
	callerID, err := parseUserID(userID)
	if err != nil {
		return err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if containsID(event.AttendeeIDs, callerID) {
		return fmt.Errorf("%w: already registered", ErrConflict)
	}
	if containsID(event.RequestedAttendeeIDs, callerID) {
		return nil
	}

	event.RequestedAttendeeIDs = append(event.RequestedAttendeeIDs, callerID)
	return s.repo.Update(ctx, event)
}

func (s *Service) Unregister(ctx context.Context, userID, title string) (UnregisterOutcome, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return 0, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return 0, err
	}

	if containsID(event.AttendeeIDs, callerID) {
		event.AttendeeIDs = removeID(event.AttendeeIDs, callerID)
		return OutcomeUnregistered, s.repo.Update(ctx, event)
	}
	if containsID(event.RequestedAttendeeIDs, callerID) {
		event.RequestedAttendeeIDs = removeID(event.RequestedAttendeeIDs, callerID)
		return OutcomeRequestCancelled, s.repo.Update(ctx, event)
	}
	return 0, ErrNotRegistered
}

func (s *Service) Approve(ctx context.Context, organizerID, title, attendeeID string) error {
	callerID, err := parseUserID(organizerID)
	if err != nil {
		return err
	}
	targetID, err := primitive.ObjectIDFromHex(attendeeID)
	if err != nil {
		return ValidationError{Field: "attendeeId", Message: "invalid user id"}
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return err
	}
	if event.OrganizerID != callerID {
		return ErrForbidden
	}
	if !containsID(event.RequestedAttendeeIDs, targetID) {
		return ValidationError{Field: "attendeeId", Message: "attendee has not requested to join"}
	}

	event.RequestedAttendeeIDs = removeID(event.RequestedAttendeeIDs, targetID)
	if !containsID(event.AttendeeIDs, targetID) {
		event.AttendeeIDs = append(event.AttendeeIDs, targetID)
	}
	return s.repo.Update(ctx, event)
}

func (s *Service) Remove(ctx context.Context, organizerID, title, attendeeID string) (RemovalOutcome, error) {
	callerID, err := parseUserID(organizerID)
	if err != nil {
		return 0, err
	}
	targetID, err := primitive.ObjectIDFromHex(attendeeID)
	if err != nil {
		return 0, ValidationError{Field: "attendeeId", Message: "invalid user id"}
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return 0, err
	}
	if event.OrganizerID != callerID {
		return 0, ErrForbidden
	}

	if containsID(event.AttendeeIDs, targetID) {
		event.AttendeeIDs = removeID(event.AttendeeIDs, targetID)
		return OutcomeRemoved, s.repo.Update(ctx, event)
	}
	if containsID(event.RequestedAttendeeIDs, targetID) {
		event.RequestedAttendeeIDs = removeID(event.RequestedAttendeeIDs, targetID)
		return OutcomeRejected, s.repo.Update(ctx, event)
	}
	return 0, ValidationError{Field: "attendeeId", Message: "attendee not registered"}
}

func (s *Service) StatusFor(ctx context.Context, userID, title string) (*Status, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return &Status{
		IsOrganizer:  event.OrganizerID == callerID,
		IsAttendee:   containsID(event.AttendeeIDs, callerID),
		HasRequested: containsID(event.RequestedAttendeeIDs, callerID),
	}, nil
}

// AddressAndAttendees discloses the address and confirmed list to the
// organizer and confirmed attendees; the pending list only to the organizer.
func (s *Service) AddressAndAttendees(ctx context.Context, userID, title string) (*Disclosure, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	isOrganizer := event.OrganizerID == callerID
	if !isOrganizer && !containsID(event.AttendeeIDs, callerID) {
		return nil, ErrForbidden
	}

	roster, err := s.repo.Roster(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	disclosure := &Disclosure{Address: event.Address, Attendees: roster.Attendees}
	if isOrganizer {
		disclosure.Requested = roster.Requested
	}
	return disclosure, nil
}

func pageCount(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

func parseUserID(userID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, ValidationError{Field: "userId", Message: "invalid user id"}
	}
	return id, nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	filtered := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}
