package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetXX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPersister guarda sessões do portal no Redis com TTL deslizante.
// O TTL só recolhe registros abandonados; quem invalida a sessão é o backend.
type RedisPersister struct {
	redis redisCommander
	ttl   time.Duration
}

// NewRedisPersister usa o cliente informado.
func NewRedisPersister(client redisCommander, ttl time.Duration) *RedisPersister {
	return &RedisPersister{redis: client, ttl: ttl}
}

// RedisKey monta a chave de uma sessão.
func RedisKey(id string) string {
	return fmt.Sprintf("svca:session:%s", id)
}

func (p *RedisPersister) Load(ctx context.Context, key string) (*Session, error) {
	raw, err := p.redis.Get(ctx, RedisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("sessão inválida no redis: %w", err)
	}
	return &s, nil
}

func (p *RedisPersister) Save(ctx context.Context, key string, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.redis.Set(ctx, RedisKey(key), string(raw), p.ttl).Err()
}

// Update usa SET XX para não recriar uma sessão removida por outra requisição.
func (p *RedisPersister) Update(ctx context.Context, key string, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := p.redis.SetXX(ctx, RedisKey(key), string(raw), p.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := p.redis.Del(ctx, RedisKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
