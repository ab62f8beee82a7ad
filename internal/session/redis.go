package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

// RedisStore persists setup sessions in redis so dialogs survive a bot
// restart. Keys carry no TTL; lifecycle matches the memory backend.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStore(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, logger: logger}, nil
}

func redisSessionKey(adminID int64) string {
	return fmt.Sprintf("setup_session:%d", adminID)
}

func (s *RedisStore) Get(ctx context.Context, adminID int64) (*models.SetupSession, error) {
	data, err := s.client.Get(ctx, redisSessionKey(adminID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess models.SetupSession
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupted session is unrecoverable; drop it.
		s.logger.WithError(err).WithField("admin_id", adminID).Warn("Dropping corrupted session")
		s.client.Del(ctx, redisSessionKey(adminID))
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *models.SetupSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, redisSessionKey(sess.AdminID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, adminID int64) error {
	if err := s.client.Del(ctx, redisSessionKey(adminID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
