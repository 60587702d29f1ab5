package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	GamerTag string `json:"gamer_tag"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, credentials models.Credentials) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	tx       repositories.Transactor
}

func NewAuthService(userRepo repositories.UserRepository, tx repositories.Transactor) AuthService {
	return &authService{userRepo: userRepo, tx: tx}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" {
		return nil, fmt.Errorf("%w: email and username are required", ErrValidationFailed)
	}
	if len(input.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:         input.Email,
		PasswordHash:  string(hashed),
		Username:      input.Username,
		GamerTag:      strings.TrimSpace(input.GamerTag),
		Role:          models.RolePlayer,
		SelectedGames: []string{},
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.userRepo.Create(ctx, exec, user)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, credentials models.Credentials) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(credentials.Email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credentials.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}
