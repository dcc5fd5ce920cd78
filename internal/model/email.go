package model

import (
	"time"

	"github.com/google/uuid"
)

type EmailStatus string

const (
	StatusPending    EmailStatus = "pending"
	StatusInProgress EmailStatus = "in-progress"
	StatusCompleted  EmailStatus = "completed"
	StatusReviewed   EmailStatus = "reviewed"
)

func (s EmailStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusReviewed:
		return true
	}
	return false
}

// Recipient is one address of a To, Cc or Bcc header.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Email keeps every header field rules can read, so a stored email is
// evaluated exactly as it was on arrival. ToEmail is the owning recipient;
// To holds the full list.
type Email struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id,omitempty"`
	MessageID         string       `json:"message_id"`
	Subject           string       `json:"subject"`
	FromEmail         string       `json:"from_email"`
	FromName          string       `json:"from_name"`
	ToEmail           string       `json:"to_email"`
	To                []Recipient  `json:"to"`
	Cc                []Recipient  `json:"cc"`
	Bcc               []Recipient  `json:"bcc,omitempty"`
	OriginalRecipient string       `json:"original_recipient,omitempty"`
	Tag               string       `json:"tag,omitempty"`
	TextBody          string       `json:"text_body"`
	HTMLBody          string       `json:"html_body"`
	StrippedTextReply string       `json:"stripped_text_reply,omitempty"`
	Summary           string       `json:"summary"`
	AISummary         string       `json:"ai_summary"`
	Status            EmailStatus  `json:"status"`
	Archived          bool         `json:"archived"`
	ReceivedAt        time.Time    `json:"received_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	LabelIDs          []string     `json:"labels"`
	Attachments       []Attachment `json:"attachments,omitempty"`
}

func NewEmail(userID, messageID, fromEmail, fromName, toEmail, subject string, receivedAt time.Time) *Email {
	now := time.Now()
	return &Email{
		ID:         uuid.New().String(),
		UserID:     userID,
		MessageID:  messageID,
		FromEmail:  fromEmail,
		FromName:   fromName,
		ToEmail:    toEmail,
		To:         []Recipient{},
		Cc:         []Recipient{},
		Bcc:        []Recipient{},
		Subject:    subject,
		Status:     StatusPending,
		ReceivedAt: receivedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
		LabelIDs:   []string{},
	}
}

// Attachment content is kept base64 encoded, as received.
type Attachment struct {
	ID            string    `json:"id"`
	EmailID       string    `json:"email_id"`
	Name          string    `json:"name"`
	ContentType   string    `json:"content_type"`
	ContentLength int64     `json:"content_length"`
	Content       string    `json:"content,omitempty"`
	ContentID     string    `json:"content_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewAttachment(emailID, name, contentType string, length int64, content, contentID string) Attachment {
	return Attachment{
		ID:            uuid.New().String(),
		EmailID:       emailID,
		Name:          name,
		ContentType:   contentType,
		ContentLength: length,
		Content:       content,
		ContentID:     contentID,
		CreatedAt:     time.Now(),
	}
}
