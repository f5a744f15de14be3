package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisEditingKey = "todo:editing"

// clearIfScript deletes the key only when it still holds the expected id.
var clearIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisEditingStore struct {
	client *redis.Client
}

// NewRedisEditingStore keeps the editing todo id in a single redis key.
func NewRedisEditingStore(client *redis.Client) EditingStore {
	return &redisEditingStore{client: client}
}

func (s *redisEditingStore) Get(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, redisEditingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("reading editing state: %w", err)
	}
	return id, nil
}

func (s *redisEditingStore) Set(ctx context.Context, todoID string) error {
	if err := s.client.Set(ctx, redisEditingKey, todoID, 0).Err(); err != nil {
		return fmt.Errorf("writing editing state: %w", err)
	}
	return nil
}

func (s *redisEditingStore) ClearIf(ctx context.Context, todoID string) error {
	if err := clearIfScript.Run(ctx, s.client, []string{redisEditingKey}, todoID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clearing editing state: %w", err)
	}
	return nil
}
