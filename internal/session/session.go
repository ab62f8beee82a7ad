package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

// Store holds in-flight setup dialogs. Sessions are keyed by the admin's
// user id: starting a second dialog replaces the first. Implementations
// return (nil, nil) when no session exists.
type Store interface {
	Get(ctx context.Context, adminID int64) (*models.SetupSession, error)
	Save(ctx context.Context, sess *models.SetupSession) error
	Delete(ctx context.Context, adminID int64) error
}

// Manager fronts the configured session backend and owns the
// pending-thoughts cache. Thoughts are always cached in-process with a
// TTL: they are cosmetic, so losing them on restart only disables a
// button.
type Manager struct {
	store    Store
	thoughts *gocache.Cache
	logger   *logrus.Logger
}

// NewManager builds the backend named by cfg.Type.
func NewManager(cfg *config.SessionConfig, logger *logrus.Logger) (*Manager, error) {
	var store Store
	switch cfg.Type {
	case "redis":
		redisStore, err := NewRedisStore(&cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis session store: %w", err)
		}
		store = redisStore
		logger.WithField("addr", cfg.Redis.Addr).Info("Using redis session store")
	case "memory":
		store = NewMemoryStore()
		logger.Info("Using in-memory session store")
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", cfg.Type)
	}

	return &Manager{
		store:    store,
		thoughts: gocache.New(cfg.Memory.ThoughtsTTL, cfg.Memory.CleanupInterval),
		logger:   logger,
	}, nil
}

func (m *Manager) Get(ctx context.Context, adminID int64) (*models.SetupSession, error) {
	return m.store.Get(ctx, adminID)
}

func (m *Manager) Save(ctx context.Context, sess *models.SetupSession) error {
	return m.store.Save(ctx, sess)
}

func (m *Manager) Delete(ctx context.Context, adminID int64) error {
	return m.store.Delete(ctx, adminID)
}

// StashThoughts stores a reasoning blob and returns the token to put in
// the callback button.
func (m *Manager) StashThoughts(thoughts string) string {
	token := uuid.NewString()
	m.thoughts.SetDefault(token, thoughts)
	return token
}

// PopThoughts retrieves and removes a stashed blob. A second pop of the
// same token misses, as does any token past its TTL.
func (m *Manager) PopThoughts(token string) (string, bool) {
	value, found := m.thoughts.Get(token)
	if !found {
		return "", false
	}
	m.thoughts.Delete(token)
	thoughts, ok := value.(string)
	return thoughts, ok
}
