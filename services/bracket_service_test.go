package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiptoo96/esports-arena/models"
)

type bracketFixture struct {
	tournaments *fakeTournamentRepo
	players     *fakePlayerRepo
	matches     *fakeMatchRepo
	service     BracketService
}

func newBracketFixture() *bracketFixture {
	tournaments := newFakeTournamentRepo()
	players := newFakePlayerRepo()
	matches := newFakeMatchRepo()
	service := NewBracketService(tournaments, players, matches, fakeTransactor{}, nil, testLogger())
	return &bracketFixture{tournaments: tournaments, players: players, matches: matches, service: service}
}

func (f *bracketFixture) seedTournament(t *testing.T, playerCount int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	tournament := &models.Tournament{Name: "Nairobi Open", Game: "FIFA 25", MaxPlayers: 32}
	require.NoError(t, f.tournaments.Create(ctx, nil, tournament))
	for i := 0; i < playerCount; i++ {
		require.NoError(t, f.players.Create(ctx, nil, &models.Player{
			TournamentID: tournament.ID,
			UserID:       100 + i,
			Name:         fmt.Sprintf("player-%d", i),
		}))
	}
	return tournament
}

func TestGenerateBracketFourPlayers(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 4)

	matches, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Two semis, one final, linked.
	var semis, finals []*models.Match
	for _, m := range matches {
		switch m.Round {
		case 1:
			semis = append(semis, m)
		case 2:
			finals = append(finals, m)
		}
	}
	require.Len(t, semis, 2)
	require.Len(t, finals, 1)
	for _, semi := range semis {
		require.NotNil(t, semi.Player1ID)
		require.NotNil(t, semi.Player2ID)
		require.NotNil(t, semi.NextMatchID)
		assert.Equal(t, finals[0].ID, *semi.NextMatchID)
		assert.Equal(t, models.MatchStatusPending, semi.Status)
	}
	assert.Nil(t, finals[0].NextMatchID)

	// Every registered player is seated exactly once.
	seated := make(map[int]int)
	for _, semi := range semis {
		seated[*semi.Player1ID]++
		seated[*semi.Player2ID]++
	}
	require.Len(t, seated, 4)
	for userID, count := range seated {
		assert.Equal(t, 1, count, "user %d", userID)
	}

	updated, err := f.tournaments.GetByID(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusInProgress, updated.Status)
	require.NotNil(t, updated.BracketType)
	assert.Equal(t, models.BracketTypeSingleElimination, *updated.BracketType)
}

func TestGenerateBracketSettlesByesImmediately(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 5)

	matches, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 6)

	// The odd player out wins their round-1 match as a walkover.
	var byeMatch *models.Match
	for _, m := range matches {
		if m.Round == 1 && m.Player2ID == nil {
			byeMatch = m
		}
	}
	require.NotNil(t, byeMatch)
	assert.Equal(t, models.MatchStatusCompleted, byeMatch.Status)
	require.NotNil(t, byeMatch.WinnerID)
	require.NotNil(t, byeMatch.WinnerMethod)
	assert.Equal(t, models.WinnerMethodBye, *byeMatch.WinnerMethod)

	// With five players the second semi has a single feeder, so the bye
	// winner walks straight through it into the final.
	require.NotNil(t, byeMatch.NextMatchID)
	semi, err := f.matches.GetByID(context.Background(), *byeMatch.NextMatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, semi.Status)
	require.NotNil(t, semi.WinnerID)
	assert.Equal(t, *byeMatch.WinnerID, *semi.WinnerID)
	require.NotNil(t, semi.WinnerMethod)
	assert.Equal(t, models.WinnerMethodBye, *semi.WinnerMethod)

	require.NotNil(t, semi.NextMatchID)
	final, err := f.matches.GetByID(context.Background(), *semi.NextMatchID)
	require.NoError(t, err)
	require.NotNil(t, final.Player1ID)
	assert.Equal(t, *byeMatch.WinnerID, *final.Player1ID)
	// The final has two feeders and waits for the other semi's winner.
	assert.Equal(t, models.MatchStatusPending, final.Status)
}

func TestGenerateBracketSixPlayersHasNoByes(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 6)

	matches, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 6)

	// Six players fill all three round-1 matches, so no byes exist and
	// both semis wait for their two feeders.
	for _, m := range matches {
		switch m.Round {
		case 1:
			require.NotNil(t, m.Player1ID)
			require.NotNil(t, m.Player2ID)
			assert.Equal(t, models.MatchStatusPending, m.Status)
		case 2, 3:
			assert.Nil(t, m.Player1ID)
			assert.Equal(t, models.MatchStatusPending, m.Status)
		}
	}
}

func TestGenerateBracketThreePlayersWalksByeToFinal(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 3)

	matches, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	var byeMatch, final *models.Match
	for _, m := range matches {
		if m.Round == 1 && m.Player2ID == nil {
			byeMatch = m
		}
		if m.Round == 2 {
			final = m
		}
	}
	require.NotNil(t, byeMatch)
	require.NotNil(t, final)
	assert.Equal(t, models.MatchStatusCompleted, byeMatch.Status)
	require.NotNil(t, final.Player1ID)
	assert.Equal(t, *byeMatch.WinnerID, *final.Player1ID)
	assert.Equal(t, models.MatchStatusPending, final.Status)
}

func TestGenerateBracketRejectsInsufficientPlayers(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 1)

	_, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}

func TestGenerateBracketRejectsSecondGeneration(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 4)

	_, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	require.NoError(t, err)

	_, err = f.service.GenerateBracket(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrBracketAlreadyGenerated)
}

func TestGenerateBracketRejectsUnknownTournament(t *testing.T) {
	f := newBracketFixture()

	_, err := f.service.GenerateBracket(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGenerateBracketRejectsCompletedTournament(t *testing.T) {
	f := newBracketFixture()
	tournament := f.seedTournament(t, 4)
	f.tournaments.tournaments[tournament.ID].Status = models.TournamentStatusCompleted

	_, err := f.service.GenerateBracket(context.Background(), tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentCompleted)
}
