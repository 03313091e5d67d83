// Package liveness exposes batch evaluation over HTTP.
package liveness

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"liveness-playground/internal/domain/endpoints"
	domainliveness "liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/domain/preview"
	"liveness-playground/internal/platform/config"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
	httptransport "liveness-playground/internal/transport/http"
)

// PreviewPath is where blob locators are served.
const PreviewPath = "/api/previews/"

type Service struct {
	config   *config.Config
	registry *endpoints.Registry
	logger   *logging.Logger
}

func NewService(cfg *config.Config, registry *endpoints.Registry, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "liveness_http.new", "config is required")
	}
	if registry == nil {
		return nil, errors.New(errors.KindConfig, "liveness_http.new", "endpoint registry is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{config: cfg, registry: registry, logger: logger}, nil
}

// Register mounts the routes on a group that runs SessionMiddleware.
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.POST("/liveness/files", s.handleFiles)
	router.POST("/liveness/base64", s.handleBase64)
	router.GET("/liveness/results", s.handleResults)
	router.DELETE("/liveness/results", s.handleClear)
	s.logger.InfoTag("HTTP", "liveness routes registered")
	return nil
}

type base64Request struct {
	Payloads   []string `json:"payloads"`
	SDKEnabled bool     `json:"sdkEnabled"`
	SDKTags    []string `json:"sdkTags"`
	APIKey     string   `json:"apiKey"`
}

// ResultView adds the URL a browser can load the preview from.
type ResultView struct {
	domainliveness.Result
	PreviewURL string `json:"previewUrl,omitempty"`
}

type SnapshotView struct {
	Session string       `json:"session"`
	Results []ResultView `json:"results"`
	Error   *string      `json:"error"`
	Loading bool         `json:"loading"`
	State   string       `json:"state"`
}

func (s *Service) handleFiles(c *gin.Context) {
	evaluator, ok := httptransport.EvaluatorFrom(c)
	if !ok {
		httptransport.RespondError(c, http.StatusInternalServerError, "session not initialised", nil)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "expected multipart form with files: "+err.Error(), nil)
		return
	}

	headers := form.File["files"]
	files := make([]domainliveness.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, domainliveness.File{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}

	sdkEnabled, _ := strconv.ParseBool(c.PostForm("sdk_enabled"))
	opts, err := s.options(c.Request.Context(), c.GetHeader(httptransport.APIKeyHeader), sdkEnabled, splitTags(form.Value["sdk_tags"]))
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}

	results, err := evaluator.EvaluateFromFiles(c.Request.Context(), files, opts)
	if err != nil {
		httptransport.RespondErr(c, err, s.snapshot(c, evaluator))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, views(results), "evaluation finished")
}

func (s *Service) handleBase64(c *gin.Context) {
	evaluator, ok := httptransport.EvaluatorFrom(c)
	if !ok {
		httptransport.RespondError(c, http.StatusInternalServerError, "session not initialised", nil)
		return
	}

	var req base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.GetHeader(httptransport.APIKeyHeader)
	}
	opts, err := s.options(c.Request.Context(), apiKey, req.SDKEnabled, splitTags(req.SDKTags))
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}

	results, err := evaluator.EvaluateFromBase64(c.Request.Context(), req.Payloads, opts)
	if err != nil {
		httptransport.RespondErr(c, err, s.snapshot(c, evaluator))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, views(results), "evaluation finished")
}

func (s *Service) handleResults(c *gin.Context) {
	evaluator, ok := httptransport.EvaluatorFrom(c)
	if !ok {
		httptransport.RespondError(c, http.StatusInternalServerError, "session not initialised", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, s.snapshot(c, evaluator), "")
}

func (s *Service) handleClear(c *gin.Context) {
	evaluator, ok := httptransport.EvaluatorFrom(c)
	if !ok {
		httptransport.RespondError(c, http.StatusInternalServerError, "session not initialised", nil)
		return
	}
	evaluator.ClearResults()
	httptransport.RespondSuccess(c, http.StatusOK, s.snapshot(c, evaluator), "results cleared")
}

// options resolves the API key fallback and the selected SDK targets.
func (s *Service) options(ctx context.Context, apiKey string, sdkEnabled bool, tags []string) (domainliveness.Options, error) {
	if strings.TrimSpace(apiKey) == "" {
		apiKey = s.config.SaaS.APIKey
	}
	opts := domainliveness.Options{APIKey: apiKey, SDKEnabled: sdkEnabled}
	if !sdkEnabled {
		return opts, nil
	}
	targets, err := s.registry.Select(ctx, tags)
	if err != nil {
		return opts, err
	}
	opts.Targets = targets
	return opts, nil
}

func (s *Service) snapshot(c *gin.Context, evaluator *domainliveness.Evaluator) SnapshotView {
	snap := evaluator.Snapshot()
	return SnapshotView{
		Session: httptransport.SessionFrom(c),
		Results: views(snap.Results),
		Error:   snap.Error,
		Loading: snap.Loading,
		State:   string(snap.State),
	}
}

func views(results []domainliveness.Result) []ResultView {
	out := make([]ResultView, 0, len(results))
	for _, r := range results {
		v := ResultView{Result: r}
		if r.LocallyOwned() && preview.IsLocator(r.ImageURL) {
			v.PreviewURL = PreviewPath + preview.ID(r.ImageURL)
		}
		out = append(out, v)
	}
	return out
}

// splitTags accepts repeated values and comma separated lists.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
