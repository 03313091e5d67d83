package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveness-playground/internal/domain/toolbox"
	"liveness-playground/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newEngine(t *testing.T, maxFileSize int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	require.NoError(t, NewService(maxFileSize, nil).Register(context.Background(), engine.Group("/api")))
	return engine
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tools/base64/encode", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestEncode(t *testing.T) {
	engine := newEngine(t, 0)
	png := testutil.PNG(t, 4, 2)

	rec := serve(engine, uploadRequest(t, "dot.png", png))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	var encoded toolbox.Encoded
	require.NoError(t, sonic.Unmarshal(env.Data, &encoded))
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), encoded.Base64)
	assert.Equal(t, "image/png", encoded.MimeType)
	assert.Equal(t, 4, encoded.Width)
}

func TestEncode_Rejections(t *testing.T) {
	engine := newEngine(t, 16)

	rec := serve(engine, uploadRequest(t, "big.png", testutil.PNG(t, 8, 8)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/tools/base64/encode", nil)
	rec = serve(engine, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecode(t *testing.T) {
	engine := newEngine(t, 0)
	png := testutil.PNG(t, 2, 2)
	body, err := sonic.Marshal(decodeRequest{Payload: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tools/base64/decode", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(engine, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	var decoded toolbox.Decoded
	require.NoError(t, sonic.Unmarshal(env.Data, &decoded))
	assert.Equal(t, "png", decoded.Extension)

	req = httptest.NewRequest(http.MethodPost, "/api/tools/base64/decode?download=1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(engine, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "decoded.png")
}

func TestMAC(t *testing.T) {
	engine := newEngine(t, 0)

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/tools/mac?count=5&sep=-&case=lower", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	var out struct {
		Addresses []string `json:"addresses"`
	}
	require.NoError(t, sonic.Unmarshal(env.Data, &out))
	require.Len(t, out.Addresses, 5)
	pattern := regexp.MustCompile(`^([0-9a-f]{2}-){5}[0-9a-f]{2}$`)
	for _, mac := range out.Addresses {
		assert.Regexp(t, pattern, mac)
	}

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/api/tools/mac?sep=none", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, sonic.Unmarshal(env.Data, &out))
	require.Len(t, out.Addresses, 1)
	assert.Regexp(t, `^[0-9A-F]{12}$`, out.Addresses[0])

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/api/tools/mac?count=101", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(engine, httptest.NewRequest(http.MethodGet, "/api/tools/mac?count=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
