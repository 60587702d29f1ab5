package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kiptoo96/esports-arena/models"
	"github.com/Kiptoo96/esports-arena/repositories"
)

const (
	leaderboardKeyPrefix = "leaderboard:"
	leaderboardCacheTTL  = 5 * time.Minute
)

// LeaderboardService serves the public winners board, read-through cached in
// Redis. A nil client disables caching and every call hits Postgres.
type LeaderboardService interface {
	RecentWinners(ctx context.Context, game *string, limit int) ([]*models.Winner, error)
	TopEarners(ctx context.Context, limit int) ([]*models.Winner, error)
	// Invalidate drops all cached leaderboard entries. Called after a
	// tournament completes. Best effort: a stale board self-heals when the
	// TTL expires.
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	winnerRepo repositories.WinnerRepository
	cache      *redis.Client
	logger     *slog.Logger
}

func NewLeaderboardService(winnerRepo repositories.WinnerRepository, cache *redis.Client, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{
		winnerRepo: winnerRepo,
		cache:      cache,
		logger:     logger,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func (s *leaderboardService) RecentWinners(ctx context.Context, game *string, limit int) ([]*models.Winner, error) {
	limit = clampLimit(limit)
	gameKey := "all"
	if game != nil && *game != "" {
		gameKey = *game
	}
	key := fmt.Sprintf("%srecent:%s:%d", leaderboardKeyPrefix, gameKey, limit)

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}
	winners, err := s.winnerRepo.List(ctx, game, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent winners: %w", err)
	}
	s.toCache(ctx, key, winners)
	return winners, nil
}

func (s *leaderboardService) TopEarners(ctx context.Context, limit int) ([]*models.Winner, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("%stop:%d", leaderboardKeyPrefix, limit)

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}
	winners, err := s.winnerRepo.TopByPrize(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top earners: %w", err)
	}
	s.toCache(ctx, key, winners)
	return winners, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, key string) ([]*models.Winner, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "leaderboard cache read failed",
				slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	var winners []*models.Winner
	if err := json.Unmarshal(raw, &winners); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache entry corrupt, dropping",
			slog.String("key", key), slog.Any("error", err))
		s.cache.Del(ctx, key)
		return nil, false
	}
	return winners, true
}

func (s *leaderboardService) toCache(ctx context.Context, key string, winners []*models.Winner) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(winners)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, leaderboardCacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, leaderboardKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.WarnContext(ctx, "leaderboard cache invalidation failed",
				slog.String("key", iter.Val()), slog.Any("error", err))
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.WarnContext(ctx, "leaderboard cache scan failed", slog.Any("error", err))
	}
}
