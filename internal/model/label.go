package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Label is a user-defined tag. A non-empty Rule assigns it automatically;
// an empty Rule means the label is only assigned by hand.
type Label struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Rule         string    `json:"filter"`
	PromptFilter string    `json:"prompt_filter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewLabel(userID, name, color, rule, promptFilter string) *Label {
	now := time.Now()
	return &Label{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         strings.TrimSpace(name),
		Color:        strings.TrimSpace(color),
		Rule:         strings.TrimSpace(rule),
		PromptFilter: strings.TrimSpace(promptFilter),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasRule reports whether the label is assigned by rule.
func (l *Label) HasRule() bool {
	return strings.TrimSpace(l.Rule) != ""
}

// Assignment links an email to a label.
type Assignment struct {
	EmailID   string    `json:"email_id"`
	LabelID   string    `json:"label_id"`
	CreatedAt time.Time `json:"created_at"`
}
