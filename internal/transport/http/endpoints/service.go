// Package endpoints exposes the SDK endpoint registry over HTTP.
package endpoints

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainendpoints "liveness-playground/internal/domain/endpoints"
	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
	httptransport "liveness-playground/internal/transport/http"
)

type Service struct {
	registry *domainendpoints.Registry
	logger   *logging.Logger
}

func NewService(registry *domainendpoints.Registry, logger *logging.Logger) (*Service, error) {
	if registry == nil {
		return nil, errors.New(errors.KindConfig, "endpoints_http.new", "endpoint registry is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{registry: registry, logger: logger}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/endpoints", s.handleList)
	router.POST("/endpoints", s.handleSave)
	router.GET("/endpoints/status", s.handleStatus)
	router.DELETE("/endpoints/:tag", s.handleRemove)
	s.logger.InfoTag("HTTP", "endpoint routes registered")
	return nil
}

type saveRequest struct {
	Tag     string            `json:"tag"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

type statusResponse struct {
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

func (s *Service) handleList(c *gin.Context) {
	list, err := s.registry.List(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, httptransport.Message(err), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"endpoints": list,
		"max":       domainendpoints.MaxEndpoints,
	}, "")
}

func (s *Service) handleSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	saved, err := s.registry.Save(c.Request.Context(), domainendpoints.Endpoint{
		Tag:     req.Tag,
		URL:     req.URL,
		Headers: req.Headers,
	})
	switch {
	case stderrors.Is(err, domainendpoints.ErrFull):
		httptransport.RespondError(c, http.StatusConflict, httptransport.Message(err), nil)
		return
	case err != nil:
		httptransport.RespondErr(c, err, nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, saved, "endpoint saved")
}

func (s *Service) handleRemove(c *gin.Context) {
	if err := s.registry.Remove(c.Request.Context(), c.Param("tag")); err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "endpoint removed")
}

func (s *Service) handleStatus(c *gin.Context) {
	raw := c.Query("url")
	httptransport.RespondSuccess(c, http.StatusOK, statusResponse{
		URL:    raw,
		Active: liveness.CheckEndpointStatus(raw),
	}, "")
}
