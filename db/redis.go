package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the leaderboard cache connection. Redis is optional:
// callers pass an empty addr to run without caching.
func ConnectRedis(addr, password string, database int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
