package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/payments"
)

type paymentFixture struct {
	tournaments *fakeTournamentRepo
	players     *fakePlayerRepo
	users       *fakeUserRepo
	service     PaymentService
	pushCount   int
}

func newPaymentFixture(t *testing.T, fee int) (*paymentFixture, *models.Tournament, *models.User) {
	t.Helper()
	f := &paymentFixture{
		tournaments: newFakeTournamentRepo(),
		players:     newFakePlayerRepo(),
		users:       newFakeUserRepo(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "token"})
		case "/mpesa/stkpush/v1/processrequest":
			f.pushCount++
			json.NewEncoder(w).Encode(map[string]string{
				"CheckoutRequestID": fmt.Sprintf("cr-%d", f.pushCount),
				"ResponseCode":      "0",
				"CustomerMessage":   "Request accepted",
			})
		}
	}))
	t.Cleanup(server.Close)

	daraja := payments.NewDarajaClient(payments.DarajaConfig{
		Shortcode: "174379", Passkey: "passkey", BaseURL: server.URL,
		CallbackURL: "https://arena.test/payments/callback",
	})
	playerService := NewPlayerService(f.players, f.tournaments, f.users, fakeTransactor{}, testLogger())
	f.service = NewPaymentService(daraja, f.tournaments, f.players, playerService, testLogger())

	ctx := context.Background()
	tournament := &models.Tournament{Name: "Kisumu Cup", Game: "CODM", Fee: fee, MaxPlayers: 16}
	require.NoError(t, f.tournaments.Create(ctx, nil, tournament))
	user := &models.User{Email: "o@test.co.ke", Username: "otieno"}
	require.NoError(t, f.users.Create(ctx, nil, user))
	return f, tournament, user
}

func successCallback(checkoutRequestID, receipt string) payments.CallbackPayload {
	var payload payments.CallbackPayload
	payload.Body.StkCallback.CheckoutRequestID = checkoutRequestID
	payload.Body.StkCallback.ResultCode = 0
	payload.Body.StkCallback.CallbackMetadata.Item = []payments.CallbackItem{
		{Name: "MpesaReceiptNumber", Value: receipt},
	}
	return payload
}

func TestInitiateEntryPaymentAndCallback(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)
	ctx := context.Background()

	resp, err := f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, "cr-1", resp.CheckoutRequestID)

	// Not registered until the callback lands.
	_, err = f.players.GetByTournamentAndUser(ctx, tournament.ID, user.ID)
	assert.Error(t, err)

	require.NoError(t, f.service.HandleCallback(ctx, successCallback("cr-1", "QGR7TKIXNV")))

	player, err := f.players.GetByTournamentAndUser(ctx, tournament.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "QGR7TKIXNV", player.MpesaReceipt)
	assert.Equal(t, 100, player.Amount)
	assert.Equal(t, "254712345678", player.PhoneNumber)
}

func TestInitiateEntryPaymentFreeTournament(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 0)
	ctx := context.Background()

	resp, err := f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	require.NoError(t, err)
	assert.Empty(t, resp.CheckoutRequestID)
	assert.Zero(t, f.pushCount)

	// Registered immediately, no prompt.
	_, err = f.players.GetByTournamentAndUser(ctx, tournament.ID, user.ID)
	require.NoError(t, err)
}

func TestInitiateEntryPaymentRejectsExistingRegistration(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)
	ctx := context.Background()

	_, err := f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	require.NoError(t, err)
	require.NoError(t, f.service.HandleCallback(ctx, successCallback("cr-1", "QGR7TKIXNV")))

	_, err = f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	assert.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestInitiateEntryPaymentRejectsStartedTournament(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)
	f.tournaments.tournaments[tournament.ID].Status = models.TournamentStatusInProgress

	_, err := f.service.InitiateEntryPayment(context.Background(), user.ID, tournament.ID, "0712345678")
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)
}

func TestInitiateEntryPaymentRejectsBadPhone(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)

	_, err := f.service.InitiateEntryPayment(context.Background(), user.ID, tournament.ID, "12345")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestHandleCallbackUnknownCheckout(t *testing.T) {
	f, _, _ := newPaymentFixture(t, 100)

	err := f.service.HandleCallback(context.Background(), successCallback("cr-unknown", "QGR7TKIXNV"))
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleCallbackFailedPayment(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)
	ctx := context.Background()

	_, err := f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	require.NoError(t, err)

	var payload payments.CallbackPayload
	payload.Body.StkCallback.CheckoutRequestID = "cr-1"
	payload.Body.StkCallback.ResultCode = 1032
	payload.Body.StkCallback.ResultDesc = "Request cancelled by user"

	err = f.service.HandleCallback(ctx, payload)
	assert.ErrorIs(t, err, ErrPaymentFailed)

	// No registration happened.
	_, err = f.players.GetByTournamentAndUser(ctx, tournament.ID, user.ID)
	assert.Error(t, err)
}

func TestHandleCallbackDuplicateDelivery(t *testing.T) {
	f, tournament, user := newPaymentFixture(t, 100)
	ctx := context.Background()

	_, err := f.service.InitiateEntryPayment(ctx, user.ID, tournament.ID, "0712345678")
	require.NoError(t, err)
	require.NoError(t, f.service.HandleCallback(ctx, successCallback("cr-1", "QGR7TKIXNV")))

	// The entry is consumed; a replayed callback is reported as unknown.
	err = f.service.HandleCallback(ctx, successCallback("cr-1", "QGR7TKIXNV"))
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	players, err := f.players.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, players, 1)
}
