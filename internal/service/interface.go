package service

import (
	"context"
	"time"

	"mailtriage/internal/model"
	"mailtriage/internal/record"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, profile Profile) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// Profile is what a sign-in provider tells us about a user.
type Profile struct {
	GoogleID     string
	Email        string
	Name         string
	AvatarURL    string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

type LabelService interface {
	ListLabels(ctx context.Context, userID string) ([]*model.Label, error)
	CreateLabel(ctx context.Context, userID string, input LabelInput) (*LabelResult, error)
	UpdateLabel(ctx context.Context, userID, labelID string, input LabelInput) (*LabelResult, error)
	DeleteLabel(ctx context.Context, userID, labelID string) error
	ValidateRule(rule string) error
}

type LabelInput struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	Rule         string `json:"filter"`
	PromptFilter string `json:"prompt_filter"`
}

// LabelResult reports how many assignments a create or update changed.
type LabelResult struct {
	Label   *model.Label `json:"label"`
	Added   int          `json:"added"`
	Removed int          `json:"removed"`
}

type EmailService interface {
	IngestInbound(ctx context.Context, msg record.InboundMessage) (*IngestResult, error)
	ImportMessage(ctx context.Context, user *model.User, msg record.InboundMessage) (*IngestResult, error)
	ListEmails(ctx context.Context, userID string, filter EmailFilter) ([]*model.Email, error)
	GetEmail(ctx context.Context, userID, emailID string) (*model.Email, error)
	UpdateEmail(ctx context.Context, userID, emailID string, update EmailUpdate) (*model.Email, error)
}

type EmailFilter struct {
	Status   model.EmailStatus
	LabelID  string
	Archived *bool
}

// EmailUpdate holds the board mutations. Nil fields are left alone; LabelIDs
// replaces the email's labels wholesale.
type EmailUpdate struct {
	Status   *model.EmailStatus `json:"status"`
	Archived *bool              `json:"archived"`
	LabelIDs *[]string          `json:"labels"`
}

type IngestResult struct {
	Email     *model.Email
	Duplicate bool
}

// MailImporter pulls recent mail from a user's mailbox into the board.
type MailImporter interface {
	Import(ctx context.Context, user *model.User) (*ImportResult, error)
}

type ImportResult struct {
	Fetched    int `json:"fetched"`
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// AIClient interface for interacting with AI services
type AIClient interface {
	SummarizeEmail(ctx context.Context, subject, body string) (string, error)
}

// Broadcaster pushes board events to a user's open connections.
type Broadcaster interface {
	BroadcastToUser(userID string, eventType string, data interface{})
}

// Deduper guards webhook delivery against provider retries. Claim reports
// whether key was seen for the first time; Release forgets it again.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToUser(string, string, interface{}) {}

type noopDeduper struct{}

func (noopDeduper) Claim(context.Context, string) (bool, error) { return true, nil }
func (noopDeduper) Release(context.Context, string) error        { return nil }
