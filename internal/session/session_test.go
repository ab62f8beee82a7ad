package session

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	m, err := NewManager(&config.SessionConfig{
		Type: "memory",
		Memory: config.MemoryConfig{
			ThoughtsTTL:     50 * time.Millisecond,
			CleanupInterval: 10 * time.Millisecond,
		},
	}, logger)
	require.NoError(t, err)
	return m
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, m.Save(ctx, &models.SetupSession{
		AdminID:   1,
		GroupID:   -100,
		GroupName: "Test Group",
		Language:  "en",
		State:     models.StateAwaitingAPIKey,
	}))

	sess, err = m.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, models.StateAwaitingAPIKey, sess.State)
	assert.Equal(t, int64(-100), sess.GroupID)

	require.NoError(t, m.Delete(ctx, 1))
	sess, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionLastWriteWinsPerAdmin(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, &models.SetupSession{AdminID: 1, GroupID: -1, State: models.StateAwaitingAPIKey}))
	require.NoError(t, m.Save(ctx, &models.SetupSession{AdminID: 1, GroupID: -2, State: models.StateAwaitingPrompt}))

	sess, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, int64(-2), sess.GroupID, "second dialog replaces the first")
}

func TestSessionGetReturnsCopy(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, &models.SetupSession{AdminID: 1, State: models.StateAwaitingAPIKey}))

	sess, err := m.Get(ctx, 1)
	require.NoError(t, err)
	sess.State = models.StateConfirm // mutate without saving

	again, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingAPIKey, again.State)
}

func TestPopThoughtsOnce(t *testing.T) {
	m := newTestManager(t)

	token := m.StashThoughts("chain of reasoning")
	require.NotEmpty(t, token)

	thoughts, ok := m.PopThoughts(token)
	assert.True(t, ok)
	assert.Equal(t, "chain of reasoning", thoughts)

	_, ok = m.PopThoughts(token)
	assert.False(t, ok, "a token pops at most once")
}

func TestPopThoughtsUnknownToken(t *testing.T) {
	m := newTestManager(t)

	_, ok := m.PopThoughts("no-such-token")
	assert.False(t, ok)
}

func TestThoughtsExpire(t *testing.T) {
	m := newTestManager(t)

	token := m.StashThoughts("short-lived")
	time.Sleep(80 * time.Millisecond)

	_, ok := m.PopThoughts(token)
	assert.False(t, ok)
}
