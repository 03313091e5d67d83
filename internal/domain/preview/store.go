// Package preview keeps locally-owned image bytes behind blob:<uuid>
// locators so results can be rendered after evaluation.
package preview

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// Scheme prefixes every locator this store hands out.
const Scheme = "blob:"

// Item is one stored preview.
type Item struct {
	Data      []byte
	MimeType  string
	Name      string
	CreatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*Item
	logger *logging.Logger
}

func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		items:  make(map[string]*Item),
		logger: logger,
	}
}

// IsLocator reports whether locator has the shape of a store locator. It
// does not check that the locator is still held.
func IsLocator(locator string) bool {
	if !strings.HasPrefix(locator, Scheme) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(locator, Scheme))
	return err == nil
}

// ID returns the uuid part of a locator.
func ID(locator string) string {
	return strings.TrimPrefix(locator, Scheme)
}

// Locator turns an id back into a locator.
func Locator(id string) string {
	if strings.HasPrefix(id, Scheme) {
		return id
	}
	return Scheme + id
}

// Create stores data and returns its new locator.
func (s *Store) Create(data []byte, mimeType, name string) string {
	id := uuid.New().String()
	item := &Item{
		Data:      data,
		MimeType:  mimeType,
		Name:      name,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.items[id] = item
	s.mu.Unlock()

	s.logger.DebugTag("PREVIEW", "created %s%s for %s (%d bytes)", Scheme, id, name, len(data))
	return Scheme + id
}

// Open returns the item behind locator.
func (s *Store) Open(locator string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[ID(locator)]
	return item, ok
}

// Owns reports whether locator was created here and is not yet revoked.
func (s *Store) Owns(locator string) bool {
	if !IsLocator(locator) {
		return false
	}
	_, ok := s.Open(locator)
	return ok
}

// Revoke releases locator. It reports false when the locator was unknown,
// so a second revoke of the same locator is a no-op.
func (s *Store) Revoke(locator string) bool {
	if !IsLocator(locator) {
		return false
	}
	id := ID(locator)

	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if ok {
		s.logger.DebugTag("PREVIEW", "revoked %s", locator)
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Thumbnail scales the preview so its longest edge is at most maxEdge.
// Images already within bounds are returned as stored.
func (s *Store) Thumbnail(locator string, maxEdge int) ([]byte, string, error) {
	item, ok := s.Open(locator)
	if !ok {
		return nil, "", errors.Newf(errors.KindStorage, "preview.thumbnail", "preview %s not found", locator)
	}
	if maxEdge <= 0 {
		return item.Data, item.MimeType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(item.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", errors.Wrap(errors.KindIngest, "preview.thumbnail", "decode preview", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxEdge && bounds.Dy() <= maxEdge {
		return item.Data, item.MimeType, nil
	}

	thumb := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	format, mimeType := imaging.PNG, "image/png"
	if item.MimeType == "image/jpeg" {
		format, mimeType = imaging.JPEG, "image/jpeg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", errors.Wrap(errors.KindIngest, "preview.thumbnail", fmt.Sprintf("encode thumbnail %s", locator), err)
	}
	return buf.Bytes(), mimeType, nil
}
