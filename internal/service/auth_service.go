package service

import (
	"context"
	"errors"
	"fmt"

	"mailtriage/internal/config"
	"mailtriage/internal/logger"
	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type authService struct {
	userRepo      repository.UserRepository
	labels        LabelService
	defaultLabels []config.DefaultLabel
	logger        *logger.Logger
}

// NewAuthService returns the sign-in service. New users get defaultLabels
// created through labels, so their rules are validated and applied like any
// other label.
func NewAuthService(userRepo repository.UserRepository, labels LabelService, defaultLabels []config.DefaultLabel, logger *logger.Logger) AuthService {
	return &authService{
		userRepo:      userRepo,
		labels:        labels,
		defaultLabels: defaultLabels,
		logger:        logger,
	}
}

func (s *authService) GetOrCreateUser(ctx context.Context, profile Profile) (*model.User, error) {
	// Try to find existing user by Google ID
	existingUser, err := s.userRepo.FindByGoogleID(ctx, profile.GoogleID)
	if errors.Is(err, repository.ErrNotFound) {
		newUser := model.NewUser(profile.GoogleID, profile.Email, profile.Name, profile.AvatarURL)
		newUser.AccessToken = profile.AccessToken
		newUser.RefreshToken = profile.RefreshToken
		newUser.TokenExpiry = profile.TokenExpiry
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error("Failed to create user:", err)
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("Created new user:", newUser.ID)
		s.seedLabels(ctx, newUser.ID)
		return newUser, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// User exists, update tokens if provided
	if profile.AccessToken != "" || profile.RefreshToken != "" {
		existingUser.AccessToken = profile.AccessToken
		existingUser.RefreshToken = profile.RefreshToken
		if !profile.TokenExpiry.IsZero() {
			existingUser.TokenExpiry = profile.TokenExpiry
		}
		if profile.AvatarURL != "" {
			existingUser.AvatarURL = profile.AvatarURL
		}

		if err := s.userRepo.Update(ctx, existingUser); err != nil {
			s.logger.Error("Failed to update user:", err)
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.logger.Info("Updated existing user:", existingUser.ID)
	}

	return existingUser, nil
}

// seedLabels never fails sign-in; a bad default is logged and skipped.
func (s *authService) seedLabels(ctx context.Context, userID string) {
	for _, def := range s.defaultLabels {
		_, err := s.labels.CreateLabel(ctx, userID, LabelInput{
			Name:         def.Name,
			Color:        def.Color,
			Rule:         def.Rule,
			PromptFilter: def.PromptFilter,
		})
		if err != nil {
			s.logger.Warnw("Failed to create default label", "user", userID, "label", def.Name, "error", err)
		}
	}
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}
