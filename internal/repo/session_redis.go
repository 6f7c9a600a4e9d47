package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/shop_api/internal/models"
)

const sessionKeyPrefix = "session:"

// RedisSessions keeps sessions as JSON values whose TTL matches the token expiry.
type RedisSessions struct {
	Client *redis.Client
}

func NewRedisSessions(ctx context.Context, url string) (*RedisSessions, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSessions{Client: client}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessions) CreateSession(ctx context.Context, s *models.Session) error {
	ttl := time.Until(time.Unix(s.ExpiresAt, 0))
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, sessionKey(s.ID), data, ttl).Err()
}

func (r *RedisSessions) FindSession(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.Client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Revoked || s.ExpiresAt <= time.Now().Unix() {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisSessions) RevokeSession(ctx context.Context, id string) error {
	return r.Client.Del(ctx, sessionKey(id)).Err()
}

func (r *RedisSessions) Close() error {
	return r.Client.Close()
}
