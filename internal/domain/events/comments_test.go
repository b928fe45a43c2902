package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// commentFixture sets up an event with an organizer, a confirmed attendee,
// a pending requester, and an uninvolved user.
type commentFixture struct {
	repo      *fakeRepo
	service   *Service
	organizer primitive.ObjectID
	attendee  primitive.ObjectID
	pending   primitive.ObjectID
	stranger  primitive.ObjectID
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	ctx := context.Background()
	repo := newFakeRepo()
	service := NewService(repo)

	f := &commentFixture{
		repo:      repo,
		service:   service,
		organizer: repo.addUser("ana"),
		attendee:  repo.addUser("bob"),
		pending:   repo.addUser("cleo"),
		stranger:  repo.addUser("dan"),
	}

	_, err := service.Create(ctx, f.organizer.Hex(), validCreateParams("Meetup A"))
	require.NoError(t, err)
	require.NoError(t, service.Register(ctx, f.attendee.Hex(), "Meetup A"))
	require.NoError(t, service.Approve(ctx, f.organizer.Hex(), "Meetup A", f.attendee.Hex()))
	require.NoError(t, service.Register(ctx, f.pending.Hex(), "Meetup A"))
	return f
}

func TestAddCommentParticipantsOnly(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	views, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "see you there")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "see you there", views[0].Text)
	require.Equal(t, "bob", views[0].Author.Name)
	require.NotEmpty(t, views[0].Author.Picture)

	views, err = f.service.AddComment(ctx, f.organizer.Hex(), "Meetup A", "doors open at six")
	require.NoError(t, err)
	require.Len(t, views, 2)

	_, err = f.service.AddComment(ctx, f.pending.Hex(), "Meetup A", "can I come")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.AddComment(ctx, f.stranger.Hex(), "Meetup A", "hi")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAddCommentSanitizesAndRejectsEmpty(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	_, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)

	views, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "<img src=x onerror=alert(1)>hello")
	require.NoError(t, err)
	require.Equal(t, "hello", views[0].Text)
}

func TestReplyLifecycle(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	views, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "parking?")
	require.NoError(t, err)
	commentID := views[0].ID

	views, err = f.service.AddReply(ctx, f.organizer.Hex(), "Meetup A", commentID, "street only")
	require.NoError(t, err)
	require.Len(t, views[0].Replies, 1)
	require.Equal(t, "ana", views[0].Replies[0].Author.Name)
	replyID := views[0].Replies[0].ID

	// only the author edits a reply
	_, err = f.service.EditReply(ctx, f.attendee.Hex(), "Meetup A", commentID, replyID, "nope")
	require.ErrorIs(t, err, ErrForbidden)

	views, err = f.service.EditReply(ctx, f.organizer.Hex(), "Meetup A", commentID, replyID, "street and the lot next door")
	require.NoError(t, err)
	require.Equal(t, "street and the lot next door", views[0].Replies[0].Text)

	_, err = f.service.AddReply(ctx, f.organizer.Hex(), "Meetup A", "missing", "x")
	require.ErrorIs(t, err, ErrCommentNotFound)

	_, err = f.service.EditReply(ctx, f.organizer.Hex(), "Meetup A", commentID, "missing", "x")
	require.ErrorIs(t, err, ErrReplyNotFound)
}

func TestEditCommentAuthorOnly(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	views, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "original")
	require.NoError(t, err)
	commentID := views[0].ID

	// not even the organizer can edit someone else's comment
	_, err = f.service.EditComment(ctx, f.organizer.Hex(), "Meetup A", commentID, "edited")
	require.ErrorIs(t, err, ErrForbidden)

	views, err = f.service.EditComment(ctx, f.attendee.Hex(), "Meetup A", commentID, "edited")
	require.NoError(t, err)
	require.Equal(t, "edited", views[0].Text)
}

func TestDeleteCommentAuthorOrOrganizer(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	views, err := f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "spam")
	require.NoError(t, err)
	commentID := views[0].ID

	_, err = f.service.DeleteComment(ctx, f.stranger.Hex(), "Meetup A", commentID)
	require.ErrorIs(t, err, ErrForbidden)

	// organizer moderates
	views, err = f.service.DeleteComment(ctx, f.organizer.Hex(), "Meetup A", commentID)
	require.NoError(t, err)
	require.Empty(t, views)

	views, err = f.service.AddComment(ctx, f.attendee.Hex(), "Meetup A", "mine")
	require.NoError(t, err)

	// author deletes their own
	views, err = f.service.DeleteComment(ctx, f.attendee.Hex(), "Meetup A", views[0].ID)
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestDeleteReplyAuthorOrOrganizer(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	views, err := f.service.AddComment(ctx, f.organizer.Hex(), "Meetup A", "logistics")
	require.NoError(t, err)
	commentID := views[0].ID

	views, err = f.service.AddReply(ctx, f.attendee.Hex(), "Meetup A", commentID, "off topic")
	require.NoError(t, err)
	replyID := views[0].Replies[0].ID

	_, err = f.service.DeleteReply(ctx, f.stranger.Hex(), "Meetup A", commentID, replyID)
	require.ErrorIs(t, err, ErrForbidden)

	views, err = f.service.DeleteReply(ctx, f.organizer.Hex(), "Meetup A", commentID, replyID)
	require.NoError(t, err)
	require.Empty(t, views[0].Replies)
}

func TestCommentsOnMissingEvent(t *testing.T) {
	f := newCommentFixture(t)
	_, err := f.service.Comments(context.Background(), "Nope")
	require.ErrorIs(t, err, ErrNotFound)
}
