package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the redis secret backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore resolves secrets stored as redis hashes under
// "dkim:secret:<ref>", one hash field per key name.
type RedisStore struct {
	config    RedisConfig
	client    *redis.Client
	connected bool
}

// NewRedisStore creates a redis-backed resolver.
func NewRedisStore(config RedisConfig) *RedisStore {
	if config.Addr == "" {
		config.Addr = "127.0.0.1:6379"
	}
	return &RedisStore{config: config}
}

// Connect establishes and verifies the redis connection.
func (s *RedisStore) Connect() error {
	if s.connected {
		return nil
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:     s.config.Addr,
		Password: s.config.Password,
		DB:       s.config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.connected = true
	return nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	if !s.connected {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return err
	}
	s.connected = false
	return nil
}

// Resolve implements Resolver. Every call hits redis so rotated hashes are
// seen immediately.
func (s *RedisStore) Resolve(ctx context.Context, ref string) (map[string]string, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	content, err := s.client.HGetAll(ctx, "dkim:secret:"+ref).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching secret %q: %w", ref, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("secret %q: %w", ref, ErrNotFound)
	}
	return content, nil
}
