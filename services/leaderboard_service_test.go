package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kiptoo96/esports-arena/models"
)

func TestLeaderboardWithoutCache(t *testing.T) {
	winners := newFakeWinnerRepo()
	service := NewLeaderboardService(winners, nil, testLogger())
	ctx := context.Background()

	rows := []*models.Winner{
		{TournamentName: "Nairobi Open", Game: "FIFA 25", WinnerName: "a", Prize: 400, Date: time.Now()},
		{TournamentName: "Kisumu Cup", Game: "CODM", WinnerName: "b", Prize: 900, Date: time.Now()},
		{TournamentName: "Mombasa Masters", Game: "FIFA 25", WinnerName: "c", Prize: 200, Date: time.Now()},
	}
	for _, row := range rows {
		require.NoError(t, winners.Create(ctx, nil, row))
	}

	recent, err := service.RecentWinners(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	game := "FIFA 25"
	filtered, err := service.RecentWinners(ctx, &game, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, w := range filtered {
		assert.Equal(t, "FIFA 25", w.Game)
	}

	top, err := service.TopEarners(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, 900, top[0].Prize)
	assert.Equal(t, 400, top[1].Prize)

	// Invalidate is a no-op without a cache.
	service.Invalidate(ctx)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 20, clampLimit(-3))
	assert.Equal(t, 20, clampLimit(101))
	assert.Equal(t, 1, clampLimit(1))
	assert.Equal(t, 100, clampLimit(100))
}
