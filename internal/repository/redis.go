package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each map in a Redis hash.
// Scores: HSET {prefix}:scores {userID} {total}
// Names:  HSET {prefix}:usernames {userID} {name}
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "idiomquiz"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// LoadScores reads the score hash.
func (s *RedisStore) LoadScores(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.scoresKey()).Result()
	if err != nil {
		return make(map[string]int64), fmt.Errorf("failed to load scores: %w", err)
	}

	scores := make(map[string]int64, len(raw))
	for userID, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return make(map[string]int64), fmt.Errorf("failed to parse score for %s: %w", userID, err)
		}
		scores[userID] = n
	}
	return scores, nil
}

// SaveScores replaces the score hash inside MULTI/EXEC.
func (s *RedisStore) SaveScores(ctx context.Context, scores map[string]int64) error {
	values := make(map[string]any, len(scores))
	for userID, n := range scores {
		values[userID] = n
	}
	if err := s.replace(ctx, s.scoresKey(), values); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// LoadNames reads the display-name hash.
func (s *RedisStore) LoadNames(ctx context.Context) (map[string]string, error) {
	names, err := s.client.HGetAll(ctx, s.namesKey()).Result()
	if err != nil {
		return make(map[string]string), fmt.Errorf("failed to load names: %w", err)
	}
	return names, nil
}

// SaveNames replaces the display-name hash inside MULTI/EXEC.
func (s *RedisStore) SaveNames(ctx context.Context, names map[string]string) error {
	values := make(map[string]any, len(names))
	for userID, name := range names {
		values[userID] = name
	}
	if err := s.replace(ctx, s.namesKey(), values); err != nil {
		return fmt.Errorf("failed to save names: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) replace(ctx context.Context, key string, values map[string]any) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	return err
}

func (s *RedisStore) scoresKey() string {
	return s.prefix + ":scores"
}

func (s *RedisStore) namesKey() string {
	return s.prefix + ":usernames"
}
