package events

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wemeetoffline/server/internal/sanitize"
)

// Commenting is open to the organizer and confirmed attendees. Every
// mutation returns the re-populated comment tree so clients never need a
// second round trip.

func (s *Service) Comments(ctx context.Context, title string) ([]CommentView, error) {
	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

func (s *Service) AddComment(ctx context.Context, userID, title, text string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ValidationError{Field: "comment", Message: "must not be empty"}
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if !isParticipant(event, callerID) {
		return nil, ErrForbidden
	}

	event.Comments = append(event.Comments, Comment{
		ID:      ulid.Make().String(),
		UserID:  callerID,
		Text:    sanitize.Text(text),
		Replies: []Reply{},
	})
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

func (s *Service) AddReply(ctx context.Context, userID, title, commentID, text string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ValidationError{Field: "reply", Message: "must not be empty"}
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	comment := findComment(event, commentID)
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if !isParticipant(event, callerID) {
		return nil, ErrForbidden
	}

	comment.Replies = append(comment.Replies, Reply{
		ID:     ulid.Make().String(),
		UserID: callerID,
		Text:   sanitize.Text(text),
	})
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

func (s *Service) EditComment(ctx context.Context, userID, title, commentID, text string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	comment := findComment(event, commentID)
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if comment.UserID != callerID {
		return nil, ErrForbidden
	}

	comment.Text = sanitize.Text(text)
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

func (s *Service) EditReply(ctx context.Context, userID, title, commentID, replyID, text string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	comment := findComment(event, commentID)
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	reply := findReply(comment, replyID)
	if reply == nil {
		return nil, ErrReplyNotFound
	}
	if reply.UserID != callerID {
		return nil, ErrForbidden
	}

	reply.Text = sanitize.Text(text)
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

// DeleteComment is allowed for the comment author and for the organizer as
// moderator.
func (s *Service) DeleteComment(ctx context.Context, userID, title, commentID string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	comment := findComment(event, commentID)
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if comment.UserID != callerID && event.OrganizerID != callerID {
		return nil, ErrForbidden
	}

	kept := make([]Comment, 0, len(event.Comments))
	for _, c := range event.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	event.Comments = kept

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

// DeleteReply follows the same moderation rule as DeleteComment: the reply
// author or the event organizer.
func (s *Service) DeleteReply(ctx context.Context, userID, title, commentID, replyID string) ([]CommentView, error) {
	callerID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	comment := findComment(event, commentID)
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	reply := findReply(comment, replyID)
	if reply == nil {
		return nil, ErrReplyNotFound
	}
	if reply.UserID != callerID && event.OrganizerID != callerID {
		return nil, ErrForbidden
	}

	kept := make([]Reply, 0, len(comment.Replies))
	for _, r := range comment.Replies {
		if r.ID != replyID {
			kept = append(kept, r)
		}
	}
	comment.Replies = kept

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.repo.CommentsWithAuthors(ctx, event.ID)
}

func isParticipant(event *Event, userID primitive.ObjectID) bool {
	return event.OrganizerID == userID || containsID(event.AttendeeIDs, userID)
}

func findComment(event *Event, commentID string) *Comment {
	for i := range event.Comments {
		if event.Comments[i].ID == commentID {
			return &event.Comments[i]
		}
	}
	return nil
}

func findReply(comment *Comment, replyID string) *Reply {
	for i := range comment.Replies {
		if comment.Replies[i].ID == replyID {
			return &comment.Replies[i]
		}
	}
	return nil
}
