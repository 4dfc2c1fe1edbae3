package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "knowledge:session:"

//RedisSessionStore represents a SessionStore that uses redis keys with a TTL
type RedisSessionStore struct {
	client   *redis.Client
	duration time.Duration
}

//NewRedisSessionStore returns a new RedisSessionStore connected to addr with the given expiration duration
func NewRedisSessionStore(ctx context.Context, addr string, duration time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Could not connect to redis at %s: %w", addr, err)
	}
	return &RedisSessionStore{client: client, duration: duration}, nil
}

//Create returns a new sessionID with the given User id
func (s *RedisSessionStore) Create(ctx context.Context, userID int64) (sessionID string, err error) {
	id := randString(sessionKeyLength)
	if err = s.client.Set(ctx, redisKeyPrefix+id, userID, s.duration).Err(); err != nil {
		return "", fmt.Errorf("Could not store session: %w", err)
	}
	return id, nil
}

//Check returns whether or not sessionID is a valid session. If sessionID is not valid, session will be nil.
func (s *RedisSessionStore) Check(ctx context.Context, sessionID string) (session *Session, err error) {
	key := redisKeyPrefix + sessionID

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Could not read session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("Could not parse session user id %q: %w", val, err)
	}

	if err = s.client.Expire(ctx, key, s.duration).Err(); err != nil {
		return nil, fmt.Errorf("Could not extend session: %w", err)
	}

	return &Session{UserID: userID, Expires: time.Now().Add(s.duration)}, nil
}

//Close closes the redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
