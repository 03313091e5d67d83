// Package toolbox holds the small playground utilities that sit next to the
// liveness evaluator.
package toolbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	domainimage "liveness-playground/internal/domain/image"
	"liveness-playground/internal/platform/errors"
)

const mimePDF = "application/pdf"

// Encoded is the result of encoding an image or PDF.
type Encoded struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Base64   string `json:"base64"`
	DataURI  string `json:"dataUri"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Decoded is the result of decoding a Base64 string.
type Decoded struct {
	Data      []byte `json:"-"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Size      int    `json:"size"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// Encode base64-encodes an image or a PDF. Other content is rejected.
func Encode(name string, data []byte) (*Encoded, error) {
	const op = "toolbox.encode"
	if len(data) == 0 {
		return nil, errors.New(errors.KindValidation, op, "file is empty")
	}

	mimeType := sniff(data)
	if mimeType != mimePDF && !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.Newf(errors.KindValidation, op, "unsupported content type %s: only images and PDF documents can be encoded", mimeType)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	out := &Encoded{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Base64:   encoded,
		DataURI:  fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out.Width, out.Height = cfg.Width, cfg.Height
	}
	return out, nil
}

// Decode reverses Encode. A data URI prefix of any type is accepted.
func Decode(payload string) (*Decoded, error) {
	const op = "toolbox.decode"

	cleaned := strings.TrimSpace(payload)
	if strings.HasPrefix(cleaned, "data:") {
		if idx := strings.Index(cleaned, ";base64,"); idx >= 0 {
			cleaned = cleaned[idx+len(";base64,"):]
		}
	}
	if cleaned == "" {
		return nil, errors.New(errors.KindValidation, op, "payload is empty")
	}

	data, err := domainimage.DecodeBase64(cleaned)
	if err != nil {
		return nil, errors.Wrap(errors.KindValidation, op, "invalid base64", err)
	}

	mimeType := sniff(data)
	out := &Decoded{
		Data:      data,
		MimeType:  mimeType,
		Extension: extensionFor(mimeType),
		Size:      len(data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out.Width, out.Height = cfg.Width, cfg.Height
	}
	return out, nil
}

func sniff(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mimePDF
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return domainimage.MimeTypeForFormat(format)
	}
	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return mimeType
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case mimePDF:
		return "pdf"
	case "image/jpeg":
		return "jpg"
	case "image/png", "image/gif", "image/webp", "image/bmp":
		return strings.TrimPrefix(mimeType, "image/")
	default:
		return "bin"
	}
}
