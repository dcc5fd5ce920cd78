package service

import (
	"context"
	"fmt"

	"mailtriage/internal/labelsync"
	"mailtriage/internal/model"
	"mailtriage/internal/record"
	"mailtriage/internal/repository"
)

const (
	EventEmailCreated    = "email.created"
	EventEmailUpdated    = "email.updated"
	EventLabelReconciled = "label.reconciled"
)

// loadCorpus adapts every email owned by userID into evaluation entries.
// Attachments are loaded because rules may look at them.
func loadCorpus(ctx context.Context, emails repository.EmailRepository, userID string) ([]labelsync.Entry, error) {
	stored, err := emails.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load emails: %w", err)
	}

	corpus := make([]labelsync.Entry, 0, len(stored))
	for _, e := range stored {
		attachments, err := emails.FindAttachments(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attachments of %s: %w", e.ID, err)
		}
		e.Attachments = attachments
		corpus = append(corpus, labelsync.Entry{ID: e.ID, Record: record.FromEmail(*e)})
	}
	return corpus, nil
}

func labelRules(labels []*model.Label) []labelsync.LabelRule {
	out := make([]labelsync.LabelRule, 0, len(labels))
	for _, l := range labels {
		if l.HasRule() {
			out = append(out, labelsync.LabelRule{ID: l.ID, Rule: l.Rule})
		}
	}
	return out
}
