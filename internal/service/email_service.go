package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailtriage/internal/labelsync"
	"mailtriage/internal/logger"
	"mailtriage/internal/metrics"
	"mailtriage/internal/model"
	"mailtriage/internal/record"
	"mailtriage/internal/repository"
)

type emailService struct {
	emailRepo      repository.EmailRepository
	labelRepo      repository.LabelRepository
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	sync           *labelsync.Synchronizer
	aiClient       AIClient
	events         Broadcaster
	dedupe         Deduper
	logger         *logger.Logger
}

func NewEmailService(
	emailRepo repository.EmailRepository,
	labelRepo repository.LabelRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	sync *labelsync.Synchronizer,
	aiClient AIClient,
	events Broadcaster,
	dedupe Deduper,
	logger *logger.Logger,
) EmailService {
	if events == nil {
		events = noopBroadcaster{}
	}
	if dedupe == nil {
		dedupe = noopDeduper{}
	}
	return &emailService{
		emailRepo:      emailRepo,
		labelRepo:      labelRepo,
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		sync:           sync,
		aiClient:       aiClient,
		events:         events,
		dedupe:         dedupe,
		logger:         logger,
	}
}

// IngestInbound stores a webhook message, summarizes it and assigns the
// owner's labels whose rules match. A message seen before is reported as a
// duplicate and left untouched.
func (s *emailService) IngestInbound(ctx context.Context, msg record.InboundMessage) (*IngestResult, error) {
	if missing := msg.Validate(); len(missing) > 0 {
		metrics.IncrementWebhook("invalid")
		return nil, invalid("incomplete webhook payload", "missing "+strings.Join(missing, ", "))
	}

	first, err := s.dedupe.Claim(ctx, msg.MessageID)
	if err != nil {
		// Storage still rejects duplicates, so carry on without the guard.
		s.logger.Warn("Dedupe check failed:", err)
		first = true
	}
	if !first {
		metrics.IncrementWebhook("duplicate")
		return &IngestResult{Duplicate: true}, nil
	}

	result, err := s.route(ctx, msg)
	if err != nil {
		if releaseErr := s.dedupe.Release(ctx, msg.MessageID); releaseErr != nil {
			s.logger.Warn("Failed to release dedupe key:", releaseErr)
		}
		metrics.IncrementWebhook("error")
		return nil, err
	}
	if result.Duplicate {
		metrics.IncrementWebhook("duplicate")
	} else {
		metrics.IncrementWebhook("stored")
	}
	return result, nil
}

// ImportMessage stores mail fetched from the user's own mailbox. The message
// belongs to user whatever its recipients say.
func (s *emailService) ImportMessage(ctx context.Context, user *model.User, msg record.InboundMessage) (*IngestResult, error) {
	if msg.Recipient() == "" {
		msg.ToFull = append([]record.Address{{Email: user.Email, Name: user.Name}}, msg.ToFull...)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		msg.Subject = "(no subject)"
	}
	if missing := msg.Validate(); len(missing) > 0 {
		return nil, invalid("incomplete message", "missing "+strings.Join(missing, ", "))
	}
	return s.ingest(ctx, user.ID, msg)
}

func (s *emailService) route(ctx context.Context, msg record.InboundMessage) (*IngestResult, error) {
	ownerID, err := s.ownerOf(ctx, msg.Recipient())
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, ownerID, msg)
}

func (s *emailService) ingest(ctx context.Context, ownerID string, msg record.InboundMessage) (*IngestResult, error) {
	if _, err := s.emailRepo.FindByMessageID(ctx, msg.MessageID); err == nil {
		s.logger.Info("Email already exists, skipping:", msg.MessageID)
		return &IngestResult{Duplicate: true}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up message: %w", err)
	}

	receivedAt, ok := record.ParseDate(msg.Date)
	if !ok {
		receivedAt = time.Now()
	}

	email := model.NewEmail(ownerID, msg.MessageID, msg.FromFull.Email, msg.FromFull.Name, msg.Recipient(), msg.Subject, receivedAt)
	email.To = record.ToRecipients(msg.ToFull)
	email.Cc = record.ToRecipients(msg.CcFull)
	email.Bcc = record.ToRecipients(msg.BccFull)
	email.OriginalRecipient = msg.OriginalRecipient
	email.Tag = msg.Tag
	email.TextBody = msg.TextBody
	email.HTMLBody = msg.HtmlBody
	email.StrippedTextReply = msg.StrippedTextReply

	content := msg.TextBody
	if content == "" {
		content = msg.StrippedTextReply
	}
	email.Summary = Summarize(content, SummaryLength)
	email.AISummary = s.summarize(ctx, msg.Subject, content)

	for _, a := range msg.Attachments {
		email.Attachments = append(email.Attachments, model.NewAttachment(email.ID, a.Name, a.ContentType, a.ContentLength, a.Content, a.ContentID))
	}

	if err := s.emailRepo.Create(ctx, email); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return &IngestResult{Duplicate: true}, nil
		}
		s.logger.Error("Failed to save email:", err)
		return nil, fmt.Errorf("failed to save email: %w", err)
	}
	if len(email.Attachments) > 0 {
		if err := s.emailRepo.CreateAttachments(ctx, email.Attachments); err != nil {
			s.logger.Error("Failed to save attachments:", err)
			return nil, fmt.Errorf("failed to save attachments: %w", err)
		}
	}

	labels, err := s.labelRepo.FindByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	// Evaluate the stored form so later reconciliation sees the same record.
	matched := s.sync.MatchLabelsForEmail(record.FromEmail(*email), labelRules(labels))
	for _, labelID := range matched {
		if err := s.assignmentRepo.Add(ctx, labelID, []string{email.ID}); err != nil {
			return nil, fmt.Errorf("failed to assign label %s: %w", labelID, err)
		}
	}
	email.LabelIDs = matched
	metrics.AddAssignmentChanges(len(matched), 0)

	s.logger.Infow("Stored inbound email", "email", email.ID, "message_id", email.MessageID, "labels", len(matched))
	if ownerID != "" {
		s.events.BroadcastToUser(ownerID, EventEmailCreated, email)
	}
	return &IngestResult{Email: email}, nil
}

// ownerOf maps a recipient address to a user id. Mail for unknown
// addresses is kept unowned.
func (s *emailService) ownerOf(ctx context.Context, recipient string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, recipient)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find recipient: %w", err)
	}
	return user.ID, nil
}

func (s *emailService) summarize(ctx context.Context, subject, content string) string {
	summary, err := s.aiClient.SummarizeEmail(ctx, subject, content)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.logger.Warn("AI summary failed, using fallback:", err)
		return FallbackSummary(subject, content)
	}
	return summary
}

func (s *emailService) ListEmails(ctx context.Context, userID string, filter EmailFilter) ([]*model.Email, error) {
	emails, err := s.emailRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	var labelled labelsync.IDSet
	if filter.LabelID != "" {
		ids, err := s.assignmentRepo.EmailIDsForLabel(ctx, filter.LabelID)
		if err != nil {
			return nil, fmt.Errorf("failed to load label assignments: %w", err)
		}
		labelled = labelsync.NewIDSet(ids...)
	}

	out := make([]*model.Email, 0, len(emails))
	for _, email := range emails {
		if filter.Status != "" && email.Status != filter.Status {
			continue
		}
		if filter.Archived != nil && email.Archived != *filter.Archived {
			continue
		}
		if labelled != nil && !labelled.Has(email.ID) {
			continue
		}
		if err := s.loadLabels(ctx, email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, nil
}

func (s *emailService) GetEmail(ctx context.Context, userID, emailID string) (*model.Email, error) {
	email, err := s.ownedEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}
	if err := s.loadLabels(ctx, email); err != nil {
		return nil, err
	}
	attachments, err := s.emailRepo.FindAttachments(ctx, email.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	email.Attachments = attachments
	return email, nil
}

// UpdateEmail applies board mutations. Labels given here are manual
// assignments; every label id must belong to the user.
func (s *emailService) UpdateEmail(ctx context.Context, userID, emailID string, update EmailUpdate) (*model.Email, error) {
	email, err := s.ownedEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, invalid("invalid status", string(*update.Status))
		}
		email.Status = *update.Status
	}
	if update.Archived != nil {
		email.Archived = *update.Archived
	}

	if update.LabelIDs != nil {
		if err := s.checkLabels(ctx, userID, *update.LabelIDs); err != nil {
			return nil, err
		}
	}

	email.UpdatedAt = time.Now()
	if err := s.emailRepo.Update(ctx, email); err != nil {
		s.logger.Error("Failed to update email:", err)
		return nil, fmt.Errorf("failed to update email: %w", err)
	}
	if update.LabelIDs != nil {
		if err := s.assignmentRepo.ReplaceForEmail(ctx, email.ID, *update.LabelIDs); err != nil {
			return nil, fmt.Errorf("failed to replace labels: %w", err)
		}
	}

	if err := s.loadLabels(ctx, email); err != nil {
		return nil, err
	}
	s.events.BroadcastToUser(userID, EventEmailUpdated, email)
	return email, nil
}

func (s *emailService) checkLabels(ctx context.Context, userID string, labelIDs []string) error {
	owned, err := s.labelRepo.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	known := labelsync.NewIDSet()
	for _, l := range owned {
		known.Add(l.ID)
	}
	for _, id := range labelIDs {
		if !known.Has(id) {
			return invalid("unknown label", id)
		}
	}
	return nil
}

func (s *emailService) ownedEmail(ctx context.Context, userID, emailID string) (*model.Email, error) {
	email, err := s.emailRepo.FindByID(ctx, emailID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email: %w", err)
	}
	if email.UserID != userID {
		return nil, ErrNotFound
	}
	return email, nil
}

func (s *emailService) loadLabels(ctx context.Context, email *model.Email) error {
	ids, err := s.assignmentRepo.LabelIDsForEmail(ctx, email.ID)
	if err != nil {
		return fmt.Errorf("failed to load labels of %s: %w", email.ID, err)
	}
	email.LabelIDs = ids
	return nil
}
