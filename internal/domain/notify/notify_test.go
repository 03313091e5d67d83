package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	rec := &recorder{}
	require.NoError(t, bus.Subscribe(rec.add))

	bus.Publish(Notification{Title: "first"})
	bus.Publish(Notification{Title: "second", Level: LevelError})
	bus.Close()

	got := rec.all()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, LevelInfo, got[0].Level)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, "second", got[1].Title)
	assert.Equal(t, LevelError, got[1].Level)
}

func TestBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(nil)
	rec := &recorder{}
	require.NoError(t, bus.Subscribe(rec.add))

	bus.Close()
	bus.Publish(Notification{Title: "late"})
	bus.Close()

	assert.Empty(t, rec.all())
}

func TestBus_SubscribeNil(t *testing.T) {
	assert.Error(t, NewBus(nil).Subscribe(nil))
}
