// Package previews serves locally held result previews.
package previews

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"liveness-playground/internal/domain/preview"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
	httptransport "liveness-playground/internal/transport/http"
)

type Service struct {
	store   *preview.Store
	maxEdge int
	logger  *logging.Logger
}

// NewService serves previews from store. Requested thumbnail sizes are
// capped at maxEdge when it is positive.
func NewService(store *preview.Store, maxEdge int, logger *logging.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New(errors.KindConfig, "previews_http.new", "preview store is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{store: store, maxEdge: maxEdge, logger: logger}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/previews/:id", s.handleGet)
	s.logger.InfoTag("HTTP", "preview routes registered")
	return nil
}

func (s *Service) handleGet(c *gin.Context) {
	locator := preview.Locator(c.Param("id"))
	if !s.store.Owns(locator) {
		httptransport.RespondError(c, http.StatusNotFound, "preview not found", nil)
		return
	}

	edge := 0
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "max must be a positive integer", nil)
			return
		}
		edge = n
		if s.maxEdge > 0 && edge > s.maxEdge {
			edge = s.maxEdge
		}
	}

	data, mimeType, err := s.store.Thumbnail(locator, edge)
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, mimeType, data)
}
