// Package notify carries the short status notifications shown to playground
// users when a batch starts, finishes or fails.
package notify

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// Topic is the bus topic every notification is published on.
const Topic = "playground:notification"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one toast. Session is empty for broadcasts.
type Notification struct {
	Session string    `json:"session,omitempty"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher is what producers of notifications depend on.
type Publisher interface {
	Publish(n Notification)
}

// Bus delivers notifications to subscribers in publish order.
type Bus struct {
	bus    evbus.Bus
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewBus creates a bus whose first subscriber writes every notification to
// logger.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	b := &Bus{
		bus:    evbus.New(),
		logger: logger,
	}
	_ = b.Subscribe(b.log)
	return b
}

// Publish stamps n and hands it to the subscribers asynchronously. Publishing
// after Close is dropped.
func (b *Bus) Publish(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.bus.Publish(Topic, n)
}

// Subscribe registers fn. Each subscriber sees notifications one at a time
// and in order.
func (b *Bus) Subscribe(fn func(Notification)) error {
	if fn == nil {
		return errors.New(errors.KindValidation, "notify.subscribe", "handler is required")
	}
	if err := b.bus.SubscribeAsync(Topic, fn, true); err != nil {
		return errors.Wrap(errors.KindTransport, "notify.subscribe", "subscribe to notifications", err)
	}
	return nil
}

// Close stops accepting notifications and waits for pending deliveries.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.bus.WaitAsync()
}

func (b *Bus) log(n Notification) {
	switch n.Level {
	case LevelError:
		b.logger.ErrorTag("NOTIFY", "%s: %s", n.Title, n.Message)
	case LevelWarning:
		b.logger.WarnTag("NOTIFY", "%s: %s", n.Title, n.Message)
	default:
		b.logger.InfoTag("NOTIFY", "%s: %s", n.Title, n.Message)
	}
}
