package app

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUserNotFound      = errors.New("user not found")

	ErrForbidden = errors.New("forbidden")

	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyDocument     = errors.New("no text could be extracted from the document")
	ErrAnalysisNotReady  = errors.New("document analysis is not ready")
	ErrAnalysisMalformed = errors.New("llm returned malformed analysis")

	ErrMessageEmpty = errors.New("message content is empty")

	ErrTeamNotFound         = errors.New("team not found")
	ErrMemberNotFound       = errors.New("team member not found")
	ErrAlreadyMember        = errors.New("user is already a team member")
	ErrOwnerCannotLeave     = errors.New("the owner must transfer ownership before leaving")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationPending    = errors.New("a pending invitation already exists")
	ErrInvitationExpired    = errors.New("invitation expired")
	ErrInvitationClosed     = errors.New("invitation is no longer pending")
	ErrInvitationWrongEmail = errors.New("invitation was sent to a different email")

	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidParent   = errors.New("parent comment does not belong to this document")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Publisher enqueues a JSON job. *rabbitmq.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
}
