package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiptoo96/esports-arena/models"
)

func TestRegisterCreatesPlayer(t *testing.T) {
	users := newFakeUserRepo()
	service := NewAuthService(users, fakeTransactor{})

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "  Adhiambo@Test.co.KE ",
		Password: "correct-horse",
		Username: "adhiambo",
		GamerTag: "ADH1",
	})
	require.NoError(t, err)

	assert.Equal(t, "adhiambo@test.co.ke", user.Email)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.Empty(t, user.PasswordHash)
	assert.NotNil(t, user.SelectedGames)

	// The stored hash is a bcrypt digest, never the plaintext.
	stored, err := users.GetByEmail(context.Background(), "adhiambo@test.co.ke")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	service := NewAuthService(newFakeUserRepo(), fakeTransactor{})

	_, err := service.Register(context.Background(), RegisterInput{
		Email: "a@b.co", Password: "short", Username: "a",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service := NewAuthService(newFakeUserRepo(), fakeTransactor{})
	ctx := context.Background()

	input := RegisterInput{Email: "a@b.co", Password: "correct-horse", Username: "a"}
	_, err := service.Register(ctx, input)
	require.NoError(t, err)

	input.Username = "b"
	_, err = service.Register(ctx, input)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	service := NewAuthService(newFakeUserRepo(), fakeTransactor{})
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{
		Email: "a@b.co", Password: "correct-horse", Username: "a",
	})
	require.NoError(t, err)

	user, err := service.Login(ctx, models.Credentials{Email: "A@b.co", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = service.Login(ctx, models.Credentials{Email: "a@b.co", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, models.Credentials{Email: "nobody@b.co", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
