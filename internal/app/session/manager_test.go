package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/domain/preview"
	"liveness-playground/internal/testutil"
)

func newManager(previews *preview.Store, ttl time.Duration) *Manager {
	return NewManager(func(id string) *liveness.Evaluator {
		return liveness.NewEvaluator(liveness.Deps{Previews: previews, Session: id})
	}, ttl, nil)
}

func TestManager_Acquire(t *testing.T) {
	m := newManager(nil, time.Minute)

	id, first := m.Acquire("")
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	again, same := m.Acquire(id)
	assert.Equal(t, id, again)
	assert.Same(t, first, same)

	// a well-formed id chosen by the client is kept
	chosen := uuid.New().String()
	got, _ := m.Acquire(chosen)
	assert.Equal(t, chosen, got)

	replaced, _ := m.Acquire("../etc/passwd")
	assert.NotEqual(t, "../etc/passwd", replaced)
	assert.Equal(t, 3, m.Count())

	_, ok := m.Lookup("missing")
	assert.False(t, ok)
}

func TestManager_SweepReleasesResults(t *testing.T) {
	previews := preview.NewStore(nil)
	m := newManager(previews, time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	id, evaluator := m.Acquire("")
	data := testutil.PNG(t, 2, 2)
	_, err := evaluator.EvaluateFromFiles(context.Background(), []liveness.File{{
		Name: "a.png",
		Open: testutil.Opener(data),
	}}, liveness.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, previews.Len())

	assert.Zero(t, m.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, previews.Len())
	_, ok := m.Lookup(id)
	assert.False(t, ok)
}

func TestManager_RunClosesOnCancel(t *testing.T) {
	m := newManager(nil, time.Minute)
	m.Acquire("")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
	assert.Zero(t, m.Count())
}
