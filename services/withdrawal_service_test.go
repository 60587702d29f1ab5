package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiptoo96/esports-arena/models"
)

func strPtr(s string) *string { return &s }

type withdrawalFixture struct {
	withdrawals *fakeWithdrawalRepo
	users       *fakeUserRepo
	service     WithdrawalService
}

func newWithdrawalFixture(t *testing.T, balance int) (*withdrawalFixture, *models.User) {
	t.Helper()
	f := &withdrawalFixture{
		withdrawals: newFakeWithdrawalRepo(),
		users:       newFakeUserRepo(),
	}
	f.service = NewWithdrawalService(f.withdrawals, f.users, fakeTransactor{}, testLogger())

	user := &models.User{Email: "winner@test.co.ke", Username: "winner", Balance: balance}
	require.NoError(t, f.users.Create(context.Background(), nil, user))
	return f, user
}

func TestRequestWithdrawal(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)

	w, err := f.service.RequestWithdrawal(context.Background(), user.ID, 300, "254712345678", "")
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusPending, w.Status)
	assert.Equal(t, 300, w.Amount)
	assert.Equal(t, "mpesa", w.PaymentMethod)
	assert.Equal(t, user.Username, w.UserName)

	// The balance is only debited at approval.
	reloaded, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, reloaded.Balance)
}

func TestRequestWithdrawalRejectsInvalidInput(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	_, err := f.service.RequestWithdrawal(ctx, user.ID, 0, "254712345678", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.service.RequestWithdrawal(ctx, user.ID, 100, "", "")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.service.RequestWithdrawal(ctx, user.ID, 600, "254712345678", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestApproveWithdrawalDebitsBalance(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, user.ID, 300, "254712345678", "")
	require.NoError(t, err)

	const adminID = 7
	approved, err := f.service.ApproveWithdrawal(ctx, w.ID, adminID, strPtr("QLX12345"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusApproved, approved.Status)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, adminID, *approved.ProcessedBy)
	require.NotNil(t, approved.TransactionID)
	assert.Equal(t, "QLX12345", *approved.TransactionID)
	require.NotNil(t, approved.ProcessedAt)

	reloaded, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, reloaded.Balance)
}

func TestApproveWithdrawalChecksBalanceAtApproval(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, user.ID, 300, "254712345678", "")
	require.NoError(t, err)

	// The balance drained between request and approval.
	require.NoError(t, f.users.DebitBalance(ctx, nil, user.ID, 400))

	_, err = f.service.ApproveWithdrawal(ctx, w.ID, 7, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The request stays pending.
	reloaded, err := f.withdrawals.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, reloaded.Status)
}

func TestApproveWithdrawalRejectsDoubleProcessing(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, user.ID, 100, "254712345678", "")
	require.NoError(t, err)

	_, err = f.service.ApproveWithdrawal(ctx, w.ID, 7, nil, nil)
	require.NoError(t, err)

	_, err = f.service.ApproveWithdrawal(ctx, w.ID, 7, nil, nil)
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
}

func TestRejectWithdrawalKeepsBalance(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	w, err := f.service.RequestWithdrawal(ctx, user.ID, 300, "254712345678", "")
	require.NoError(t, err)

	rejected, err := f.service.RejectWithdrawal(ctx, w.ID, 7, strPtr("phone number does not match account"))
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Notes)

	reloaded, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, reloaded.Balance)
}

func TestListPendingWithdrawals(t *testing.T) {
	f, user := newWithdrawalFixture(t, 500)
	ctx := context.Background()

	w1, err := f.service.RequestWithdrawal(ctx, user.ID, 100, "254712345678", "")
	require.NoError(t, err)
	w2, err := f.service.RequestWithdrawal(ctx, user.ID, 100, "254712345678", "")
	require.NoError(t, err)

	_, err = f.service.ApproveWithdrawal(ctx, w1.ID, 7, nil, nil)
	require.NoError(t, err)

	pending, err := f.service.ListPendingWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, w2.ID, pending[0].ID)

	mine, err := f.service.ListUserWithdrawals(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
