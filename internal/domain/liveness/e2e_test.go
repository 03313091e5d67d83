package liveness_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/domain/liveness/saas"
	"liveness-playground/internal/domain/liveness/sdk"
	"liveness-playground/internal/testutil"
)

func newSaaSServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get(saas.APIKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serviceResultLog":"Liveness: LIVE (score 0.98)","score":0.98}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newEvaluator(t *testing.T, saasURL string, sdkTimeout time.Duration) *liveness.Evaluator {
	t.Helper()
	saasClient, err := saas.New(saas.Config{URL: saasURL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return liveness.NewEvaluator(liveness.Deps{
		SaaS:       saasClient,
		SDK:        sdk.New(nil),
		SDKTimeout: sdkTimeout,
	})
}

func TestEndToEnd_PNGFileWithoutSDK(t *testing.T) {
	var hits int32
	srv := newSaaSServer(t, &hits)
	evaluator := newEvaluator(t, srv.URL, time.Second)
	data := testutil.PNG(t, 100, 50)

	results, err := evaluator.EvaluateFromFiles(context.Background(), []liveness.File{{
		Name:     "face.png",
		MimeType: "image/png",
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}}, liveness.Options{APIKey: "secret"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "100 x 50", r.Resolution)
	assert.Equal(t, "Liveness: LIVE (score 0.98)", r.DiagnosticSaaS)
	assert.Nil(t, r.SDKDiagnostics)
	assert.Empty(t, r.Error)
	require.NotNil(t, r.ImageInfo)
	assert.Equal(t, int64(len(data)), r.ImageInfo.Size)
	assert.Equal(t, "image/png", r.ImageInfo.MimeType)
	assert.JSONEq(t, `{"serviceResultLog":"Liveness: LIVE (score 0.98)","score":0.98}`, string(r.RawSaaSResponse))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEndToEnd_Base64WithoutAPIKey(t *testing.T) {
	var hits int32
	srv := newSaaSServer(t, &hits)
	evaluator := newEvaluator(t, srv.URL, time.Second)

	results, err := evaluator.EvaluateFromBase64(context.Background(),
		[]string{testutil.PNGBase64(t, 10, 10)}, liveness.Options{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "API key not configured", results[0].DiagnosticSaaS)
	assert.Nil(t, results[0].RawSaaSResponse)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestEndToEnd_WrongAPIKey(t *testing.T) {
	var hits int32
	srv := newSaaSServer(t, &hits)
	evaluator := newEvaluator(t, srv.URL, time.Second)

	results, err := evaluator.EvaluateFromBase64(context.Background(),
		[]string{testutil.PNGBase64(t, 10, 10)}, liveness.Options{APIKey: "wrong"})

	require.NoError(t, err)
	assert.Equal(t, "API error (401): invalid api key", results[0].DiagnosticSaaS)
}

func TestEndToEnd_SDKTimeoutAndLive(t *testing.T) {
	var hits int32
	saasSrv := newSaaSServer(t, &hits)

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	var gotBody map[string]string
	var gotPath string
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"diagnostic":"LIVE"}`))
	}))
	t.Cleanup(live.Close)

	evaluator := newEvaluator(t, saasSrv.URL, 150*time.Millisecond)
	payload := testutil.PNGBase64(t, 20, 20)

	results, err := evaluator.EvaluateFromBase64(context.Background(), []string{"data:image/png;base64," + payload},
		liveness.Options{APIKey: "secret", SDKEnabled: true, Targets: []liveness.SDKTarget{
			{Tag: "slow", BaseURL: slow.URL, Active: true},
			{Tag: "live", BaseURL: live.URL + "/", Active: true},
		}})

	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Empty(t, r.Error)
	assert.Equal(t, "Liveness: LIVE (score 0.98)", r.DiagnosticSaaS)
	require.Len(t, r.SDKDiagnostics, 2)
	assert.Contains(t, r.SDKDiagnostics["slow"], "Timeout")
	assert.Equal(t, "LIVE", r.SDKDiagnostics["live"])
	assert.JSONEq(t, `{"diagnostic":"LIVE"}`, string(r.SDKRawResponses["live"]))
	assert.Equal(t, sdk.EvaluatePath, gotPath)
	assert.Equal(t, payload, gotBody["image"])
}
