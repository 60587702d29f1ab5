package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
	"github.com/Kiptoo96/esports-arena/storage"
)

type UserService interface {
	GetProfile(ctx context.Context, userID int) (*models.User, error)
	// ToggleSelectedGame adds the game to the user's list, or removes it if
	// already present, and returns the updated profile.
	ToggleSelectedGame(ctx context.Context, userID int, game string) (*models.User, error)
	UploadProfilePhoto(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	tx       repositories.Transactor
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, tx repositories.Transactor, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		tx:       tx,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.populateProfileImageURL(user)
	return user, nil
}

func (s *userService) loadUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) populateProfileImageURL(user *models.User) {
	if user.ProfileImageKey == nil || *user.ProfileImageKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*user.ProfileImageKey); url != "" {
		user.ProfileImageURL = &url
	}
}

func (s *userService) ToggleSelectedGame(ctx context.Context, userID int, game string) (*models.User, error) {
	if game == "" {
		return nil, fmt.Errorf("%w: game is required", ErrValidationFailed)
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	games := make([]string, 0, len(user.SelectedGames)+1)
	removed := false
	for _, g := range user.SelectedGames {
		if g == game {
			removed = true
			continue
		}
		games = append(games, g)
	}
	if !removed {
		games = append(games, game)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.userRepo.UpdateSelectedGames(ctx, exec, userID, games)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update selected games for user %d: %w", userID, err)
	}

	user.SelectedGames = games
	s.populateProfileImageURL(user)
	return user, nil
}

func (s *userService) UploadProfilePhoto(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	key := fmt.Sprintf("users/%d/profile-%s%s", userID, uuid.NewString(), ext)

	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload profile photo: %w", err)
	}

	oldKey := user.ProfileImageKey
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.userRepo.UpdateProfileImageKey(ctx, exec, userID, &key)
	})
	if err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to delete orphaned profile photo",
				slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != "" {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous profile photo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	user.ProfileImageKey = &key
	s.populateProfileImageURL(user)
	return user, nil
}
