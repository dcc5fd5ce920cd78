package repository

import (
	"context"
	"errors"

	"mailtriage/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an email with the same provider message
	// id is already stored.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// LabelRepository defines the interface for label data operations.
// Listings are ordered by creation time.
type LabelRepository interface {
	Create(ctx context.Context, label *model.Label) error
	FindByID(ctx context.Context, id string) (*model.Label, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Label, error)
	Update(ctx context.Context, label *model.Label) error
	Delete(ctx context.Context, id string) error
}

// EmailRepository defines the interface for email data operations.
// Listings are ordered newest first and do not load LabelIDs or attachments.
type EmailRepository interface {
	Create(ctx context.Context, email *model.Email) error
	FindByID(ctx context.Context, id string) (*model.Email, error)
	FindByMessageID(ctx context.Context, messageID string) (*model.Email, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Email, error)
	Update(ctx context.Context, email *model.Email) error
	Delete(ctx context.Context, id string) error

	CreateAttachments(ctx context.Context, attachments []model.Attachment) error
	FindAttachments(ctx context.Context, emailID string) ([]model.Attachment, error)
}

// AssignmentRepository stores the email/label relation. Add and Remove are
// idempotent so an interrupted batch can simply be repeated.
type AssignmentRepository interface {
	Add(ctx context.Context, labelID string, emailIDs []string) error
	Remove(ctx context.Context, labelID string, emailIDs []string) error
	EmailIDsForLabel(ctx context.Context, labelID string) ([]string, error)
	LabelIDsForEmail(ctx context.Context, emailID string) ([]string, error)
	ReplaceForEmail(ctx context.Context, emailID string, labelIDs []string) error
	DeleteByLabel(ctx context.Context, labelID string) error
	DeleteByEmail(ctx context.Context, emailID string) error
}
