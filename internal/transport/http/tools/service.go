// Package tools exposes the playground toolbox over HTTP.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"liveness-playground/internal/domain/toolbox"
	"liveness-playground/internal/platform/logging"
	httptransport "liveness-playground/internal/transport/http"
)

type Service struct {
	maxFileSize int64
	logger      *logging.Logger
}

func NewService(maxFileSize int64, logger *logging.Logger) *Service {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{maxFileSize: maxFileSize, logger: logger}
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.POST("/tools/base64/encode", s.handleEncode)
	router.POST("/tools/base64/decode", s.handleDecode)
	router.GET("/tools/mac", s.handleMAC)
	s.logger.InfoTag("HTTP", "toolbox routes registered")
	return nil
}

type decodeRequest struct {
	Payload string `json:"payload"`
}

func (s *Service) handleEncode(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fh.Size > s.maxFileSize {
		httptransport.RespondError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxFileSize), nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "read file: "+err.Error(), nil)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxFileSize+1))
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "read file: "+err.Error(), nil)
		return
	}

	encoded, err := toolbox.Encode(fh.Filename, data)
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, encoded, "")
}

// handleDecode returns metadata as JSON, or the raw bytes with ?download=1.
func (s *Service) handleDecode(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	decoded, err := toolbox.Decode(req.Payload)
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}

	if download, _ := strconv.ParseBool(c.Query("download")); download {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="decoded.%s"`, decoded.Extension))
		c.Data(http.StatusOK, decoded.MimeType, decoded.Data)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, decoded, "")
}

func (s *Service) handleMAC(c *gin.Context) {
	count := 1
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "count must be an integer", nil)
			return
		}
		count = n
	}

	sep, ok := c.GetQuery("sep")
	if !ok {
		sep = toolbox.SeparatorColon
	}
	if sep == "none" {
		sep = toolbox.SeparatorNone
	}
	local, _ := strconv.ParseBool(c.Query("local"))

	macs, err := toolbox.GenerateMACs(toolbox.MACOptions{
		Count:     count,
		Separator: sep,
		Upper:     !strings.EqualFold(c.Query("case"), "lower"),
		Local:     local,
	})
	if err != nil {
		httptransport.RespondErr(c, err, nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"addresses": macs}, "")
}
