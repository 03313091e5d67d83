// Package endpoints maintains the list of self-hosted SDK endpoints the
// playground can evaluate against.
package endpoints

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"sync"

	"liveness-playground/internal/domain/endpoints/store"
	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// MaxEndpoints caps how many SDK endpoints can be registered.
const MaxEndpoints = 3

var (
	ErrNotFound = errors.New(errors.KindRegistry, "endpoints", "endpoint not found")
	ErrFull     = errors.Newf(errors.KindRegistry, "endpoints.save", "at most %d endpoints can be registered", MaxEndpoints)
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]{0,63}$`)

// Endpoint is the registry view of one SDK endpoint.
type Endpoint struct {
	Tag     string            `json:"tag"`
	URL     string            `json:"url"`
	Active  bool              `json:"active"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Target converts e for the evaluator.
func (e Endpoint) Target() liveness.SDKTarget {
	return liveness.SDKTarget{
		Tag:     e.Tag,
		BaseURL: e.URL,
		Active:  e.Active,
		Headers: e.Headers,
	}
}

// Registry serialises writes so the cap and positions stay consistent.
type Registry struct {
	store  store.Store
	logger *logging.Logger
	mu     sync.Mutex
}

func NewRegistry(s store.Store, logger *logging.Logger) *Registry {
	if s == nil {
		s = store.NewMemory()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{store: s, logger: logger}
}

// List returns the endpoints in registry order with their active flag
// recomputed.
func (r *Registry) List(ctx context.Context) ([]Endpoint, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.KindRegistry, "endpoints.list", "list endpoints", err)
	}
	out := make([]Endpoint, 0, len(records))
	for _, rec := range records {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, tag string) (Endpoint, error) {
	rec, err := r.store.Get(ctx, strings.TrimSpace(tag))
	if stderrors.Is(err, store.ErrNotFound) {
		return Endpoint{}, ErrNotFound
	}
	if err != nil {
		return Endpoint{}, errors.Wrap(errors.KindRegistry, "endpoints.get", "load endpoint", err)
	}
	return fromRecord(rec), nil
}

// Save creates or updates the endpoint with ep.Tag. New endpoints are
// appended to the end of the registry. The stored Active flag is ignored and
// recomputed from the URL.
func (r *Registry) Save(ctx context.Context, ep Endpoint) (Endpoint, error) {
	const op = "endpoints.save"

	ep.Tag = strings.TrimSpace(ep.Tag)
	ep.URL = strings.TrimSpace(ep.URL)
	if !tagPattern.MatchString(ep.Tag) {
		return Endpoint{}, errors.New(errors.KindValidation, op, "tag must be 1-64 letters, digits, spaces, '.', '_' or '-'")
	}
	if !liveness.CheckEndpointStatus(ep.URL) {
		return Endpoint{}, errors.Newf(errors.KindValidation, op, "invalid endpoint url %q: expected http or https", ep.URL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.store.List(ctx)
	if err != nil {
		return Endpoint{}, errors.Wrap(errors.KindRegistry, op, "list endpoints", err)
	}

	position := 1
	exists := false
	for _, rec := range records {
		if rec.Tag == ep.Tag {
			position = rec.Position
			exists = true
			break
		}
		if rec.Position >= position {
			position = rec.Position + 1
		}
	}
	if !exists && len(records) >= MaxEndpoints {
		return Endpoint{}, ErrFull
	}

	rec := store.Record{Tag: ep.Tag, URL: ep.URL, Headers: ep.Headers, Position: position}
	if err := r.store.Put(ctx, rec); err != nil {
		return Endpoint{}, errors.Wrap(errors.KindRegistry, op, "store endpoint", err)
	}

	saved := fromRecord(rec)
	r.logger.InfoTag("ENDPOINTS", "saved endpoint %s -> %s (active=%t)", saved.Tag, saved.URL, saved.Active)
	return saved, nil
}

// Remove deletes the endpoint with tag. Unknown tags report ErrNotFound.
func (r *Registry) Remove(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Get(ctx, tag); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(errors.KindRegistry, "endpoints.remove", "load endpoint", err)
	}
	if err := r.store.Remove(ctx, tag); err != nil {
		return errors.Wrap(errors.KindRegistry, "endpoints.remove", "remove endpoint", err)
	}
	r.logger.InfoTag("ENDPOINTS", "removed endpoint %s", tag)
	return nil
}

// Select returns the endpoints named in tags that are active, in registry
// order. The result is a snapshot the caller may keep.
func (r *Registry) Select(ctx context.Context, tags []string) ([]liveness.SDKTarget, error) {
	wanted := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			wanted[tag] = true
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]liveness.SDKTarget, 0, len(wanted))
	for _, ep := range all {
		if wanted[ep.Tag] && ep.Active {
			out = append(out, ep.Target())
		}
	}
	return out, nil
}

// Seed saves every endpoint not already registered. Failures are logged and
// skipped.
func (r *Registry) Seed(ctx context.Context, seeds []Endpoint) error {
	for _, seed := range seeds {
		if _, err := r.Get(ctx, seed.Tag); err == nil {
			continue
		} else if !stderrors.Is(err, ErrNotFound) {
			return err
		}
		if _, err := r.Save(ctx, seed); err != nil {
			r.logger.WarnTag("ENDPOINTS", "skipping seed endpoint %s: %v", seed.Tag, err)
		}
	}
	return nil
}

func (r *Registry) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

func fromRecord(rec store.Record) Endpoint {
	return Endpoint{
		Tag:     rec.Tag,
		URL:     rec.URL,
		Active:  liveness.CheckEndpointStatus(rec.URL),
		Headers: rec.Headers,
	}
}
