package session

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ulya2402/Wisedebot/internal/models"
)

// MemoryStore keeps setup sessions in-process. Sessions never expire on
// their own; they are deleted on save, cancel, or data-integrity abort.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

func sessionKey(adminID int64) string {
	return fmt.Sprintf("setup:%d", adminID)
}

func (s *MemoryStore) Get(_ context.Context, adminID int64) (*models.SetupSession, error) {
	value, found := s.cache.Get(sessionKey(adminID))
	if !found {
		return nil, nil
	}
	sess, ok := value.(*models.SetupSession)
	if !ok {
		return nil, nil
	}
	// Hand out a copy so handler mutations only land via Save.
	out := *sess
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *models.SetupSession) error {
	stored := *sess
	s.cache.Set(sessionKey(sess.AdminID), &stored, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, adminID int64) error {
	s.cache.Delete(sessionKey(adminID))
	return nil
}
