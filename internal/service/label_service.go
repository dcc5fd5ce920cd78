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
	"mailtriage/internal/repository"
	"mailtriage/internal/rules"
)

type labelService struct {
	labelRepo      repository.LabelRepository
	emailRepo      repository.EmailRepository
	assignmentRepo repository.AssignmentRepository
	engine         *rules.Engine
	sync           *labelsync.Synchronizer
	events         Broadcaster
	logger         *logger.Logger
}

func NewLabelService(
	labelRepo repository.LabelRepository,
	emailRepo repository.EmailRepository,
	assignmentRepo repository.AssignmentRepository,
	engine *rules.Engine,
	sync *labelsync.Synchronizer,
	events Broadcaster,
	logger *logger.Logger,
) LabelService {
	if events == nil {
		events = noopBroadcaster{}
	}
	return &labelService{
		labelRepo:      labelRepo,
		emailRepo:      emailRepo,
		assignmentRepo: assignmentRepo,
		engine:         engine,
		sync:           sync,
		events:         events,
		logger:         logger,
	}
}

func (s *labelService) ListLabels(ctx context.Context, userID string) ([]*model.Label, error) {
	labels, err := s.labelRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

func (s *labelService) ValidateRule(rule string) error {
	if err := s.engine.Validate(rule); err != nil {
		metrics.IncrementCompileError("validate")
		return invalid("invalid rule", err.Error())
	}
	return nil
}

func (s *labelService) validate(input LabelInput) error {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Color) == "" {
		return invalid("name and color are required", "")
	}
	return s.ValidateRule(input.Rule)
}

// CreateLabel stores the label and assigns it to every existing email its
// rule matches.
func (s *labelService) CreateLabel(ctx context.Context, userID string, input LabelInput) (*LabelResult, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	label := model.NewLabel(userID, input.Name, input.Color, input.Rule, input.PromptFilter)

	var matched labelsync.IDSet
	if label.HasRule() {
		corpus, err := loadCorpus(ctx, s.emailRepo, userID)
		if err != nil {
			return nil, err
		}
		matched, err = s.sync.ApplyNewLabel(ctx, label.Rule, corpus)
		if err != nil {
			return nil, s.syncError(err)
		}
	}

	if err := s.labelRepo.Create(ctx, label); err != nil {
		s.logger.Error("Failed to create label:", err)
		return nil, fmt.Errorf("failed to create label: %w", err)
	}
	if matched.Len() > 0 {
		if err := s.assignmentRepo.Add(ctx, label.ID, matched.Sorted()); err != nil {
			s.logger.Error("Failed to assign new label:", err)
			s.discard(label.ID)
			return nil, fmt.Errorf("failed to assign label: %w", err)
		}
		metrics.AddAssignmentChanges(matched.Len(), 0)
	}

	s.logger.Infow("Created label", "label", label.ID, "user", userID, "assigned", matched.Len())
	return &LabelResult{Label: label, Added: matched.Len()}, nil
}

// UpdateLabel saves the edit and, when the rule changed, corrects existing
// assignments. A cleared rule keeps the assignments it produced.
func (s *labelService) UpdateLabel(ctx context.Context, userID, labelID string, input LabelInput) (*LabelResult, error) {
	label, err := s.ownedLabel(ctx, userID, labelID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	oldRule := label.Rule
	newRule := strings.TrimSpace(input.Rule)

	diff := labelsync.Diff{}
	if newRule != oldRule {
		corpus, err := loadCorpus(ctx, s.emailRepo, userID)
		if err != nil {
			return nil, err
		}
		assigned, err := s.assignmentRepo.EmailIDsForLabel(ctx, label.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load assignments: %w", err)
		}
		diff, err = s.sync.ReconcileRuleChange(ctx, oldRule, newRule, corpus, labelsync.NewIDSet(assigned...))
		if err != nil {
			return nil, s.syncError(err)
		}
	}

	// The rule is saved only after its diff is applied. If applying fails
	// the old rule stays stored, and resubmitting the edit reconciles from
	// whatever part of the diff did land.
	if err := s.applyDiff(ctx, label.ID, diff); err != nil {
		s.logger.Error("Failed to apply rule change:", err)
		return nil, err
	}

	label.Name = strings.TrimSpace(input.Name)
	label.Color = strings.TrimSpace(input.Color)
	label.Rule = newRule
	label.PromptFilter = strings.TrimSpace(input.PromptFilter)
	label.UpdatedAt = time.Now()
	if err := s.labelRepo.Update(ctx, label); err != nil {
		s.logger.Error("Failed to update label:", err)
		return nil, fmt.Errorf("failed to update label: %w", err)
	}

	result := &LabelResult{Label: label, Added: diff.ToAdd.Len(), Removed: diff.ToRemove.Len()}
	if newRule != oldRule {
		s.events.BroadcastToUser(userID, EventLabelReconciled, result)
	}
	s.logger.Infow("Updated label", "label", label.ID, "added", result.Added, "removed", result.Removed)
	return result, nil
}

// applyDiff writes removals before insertions. Both are idempotent and the
// diff is computed from current assignments, so running the reconciliation
// again after a partial failure completes it.
func (s *labelService) applyDiff(ctx context.Context, labelID string, diff labelsync.Diff) error {
	if diff.ToRemove.Len() > 0 {
		if err := s.assignmentRepo.Remove(ctx, labelID, diff.ToRemove.Sorted()); err != nil {
			return fmt.Errorf("failed to remove assignments: %w", err)
		}
	}
	if diff.ToAdd.Len() > 0 {
		if err := s.assignmentRepo.Add(ctx, labelID, diff.ToAdd.Sorted()); err != nil {
			return fmt.Errorf("failed to add assignments: %w", err)
		}
	}
	metrics.AddAssignmentChanges(diff.ToAdd.Len(), diff.ToRemove.Len())
	return nil
}

// discard removes a label whose retroactive assignments did not land, so
// creating it again starts from scratch. It runs on a fresh context because
// the request's may be the reason the assignments failed.
func (s *labelService) discard(labelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.assignmentRepo.DeleteByLabel(ctx, labelID); err != nil {
		s.logger.Error("Failed to clean up assignments of discarded label:", err)
	}
	if err := s.labelRepo.Delete(ctx, labelID); err != nil {
		s.logger.Error("Failed to discard label:", err)
	}
}

func (s *labelService) DeleteLabel(ctx context.Context, userID, labelID string) error {
	label, err := s.ownedLabel(ctx, userID, labelID)
	if err != nil {
		return err
	}

	if err := s.assignmentRepo.DeleteByLabel(ctx, label.ID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	if err := s.labelRepo.Delete(ctx, label.ID); err != nil {
		s.logger.Error("Failed to delete label:", err)
		return fmt.Errorf("failed to delete label: %w", err)
	}
	s.logger.Info("Deleted label:", label.ID)
	return nil
}

// ownedLabel hides labels of other users behind ErrNotFound.
func (s *labelService) ownedLabel(ctx context.Context, userID, labelID string) (*model.Label, error) {
	label, err := s.labelRepo.FindByID(ctx, labelID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find label: %w", err)
	}
	if label.UserID != userID {
		return nil, ErrNotFound
	}
	return label, nil
}

func (s *labelService) syncError(err error) error {
	var compileErr *rules.CompileError
	if errors.As(err, &compileErr) {
		return invalid("invalid rule", compileErr.Error())
	}
	return err
}
