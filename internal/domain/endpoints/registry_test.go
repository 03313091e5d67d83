package endpoints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/domain/endpoints/store"
	"liveness-playground/internal/platform/errors"
)

func TestRegistry_SaveListOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, nil)

	_, err := r.Save(ctx, Endpoint{Tag: "gpu", URL: "http://10.0.0.5:8080"})
	require.NoError(t, err)
	_, err = r.Save(ctx, Endpoint{Tag: "cpu", URL: "https://sdk.local", Headers: map[string]string{"X-Tenant": "a"}})
	require.NoError(t, err)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gpu", list[0].Tag)
	assert.Equal(t, "cpu", list[1].Tag)
	assert.True(t, list[0].Active)
	assert.Equal(t, "a", list[1].Headers["X-Tenant"])

	// updating keeps the position
	saved, err := r.Save(ctx, Endpoint{Tag: "gpu", URL: "http://10.0.0.6:8080", Active: false})
	require.NoError(t, err)
	assert.True(t, saved.Active)

	list, err = r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpu", list[0].Tag)
	assert.Equal(t, "http://10.0.0.6:8080", list[0].URL)
}

func TestRegistry_Validation(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, nil)

	for _, ep := range []Endpoint{
		{Tag: "", URL: "http://a"},
		{Tag: "bad/tag", URL: "http://a"},
		{Tag: "ok", URL: "ftp://a"},
		{Tag: "ok", URL: "not a url"},
	} {
		_, err := r.Save(ctx, ep)
		require.Error(t, err, "%+v", ep)
		assert.True(t, errors.IsKind(err, errors.KindValidation))
	}
}

func TestRegistry_Cap(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, nil)

	for _, tag := range []string{"a", "b", "c"} {
		_, err := r.Save(ctx, Endpoint{Tag: tag, URL: "http://" + tag})
		require.NoError(t, err)
	}
	_, err := r.Save(ctx, Endpoint{Tag: "d", URL: "http://d"})
	assert.ErrorIs(t, err, ErrFull)

	_, err = r.Save(ctx, Endpoint{Tag: "c", URL: "http://c2"})
	assert.NoError(t, err)

	require.NoError(t, r.Remove(ctx, "a"))
	_, err = r.Save(ctx, Endpoint{Tag: "d", URL: "http://d"})
	require.NoError(t, err)

	list, err := r.List(ctx)
	require.NoError(t, err)
	tags := []string{list[0].Tag, list[1].Tag, list[2].Tag}
	assert.Equal(t, []string{"b", "c", "d"}, tags)
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, nil)

	assert.ErrorIs(t, r.Remove(ctx, "missing"), ErrNotFound)
	_, err := r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_SelectSkipsInactiveAndUnselected(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	// a record written by an older version with a URL that no longer passes
	require.NoError(t, s.Put(ctx, store.Record{Tag: "legacy", URL: "localhost:9000", Position: 1}))
	r := NewRegistry(s, nil)

	_, err := r.Save(ctx, Endpoint{Tag: "one", URL: "http://one"})
	require.NoError(t, err)
	_, err = r.Save(ctx, Endpoint{Tag: "two", URL: "http://two"})
	require.NoError(t, err)

	targets, err := r.Select(ctx, []string{"two", "legacy", "one", "unknown"})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "one", targets[0].Tag)
	assert.Equal(t, "two", targets[1].Tag)
	assert.Equal(t, "http://one", targets[0].BaseURL)
	assert.True(t, targets[0].Active)

	targets, err = r.Select(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestRegistry_Seed(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil, nil)

	_, err := r.Save(ctx, Endpoint{Tag: "kept", URL: "http://original"})
	require.NoError(t, err)

	require.NoError(t, r.Seed(ctx, []Endpoint{
		{Tag: "kept", URL: "http://overwritten"},
		{Tag: "new", URL: "http://new"},
		{Tag: "broken", URL: "nope"},
	}))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "http://original", list[0].URL)
	assert.Equal(t, "new", list[1].Tag)
}
