package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"regexp"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// base64SizeRatio approximates decoded bytes from encoded length.
const base64SizeRatio = 0.75

var dataURIPrefix = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,`)

var signatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// Ingester turns uploaded files and Base64 strings into Decoded images.
type Ingester struct {
	limits Limits
	logger *logging.Logger
}

func NewIngester(limits Limits, logger *logging.Logger) *Ingester {
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ingester{limits: limits, logger: logger}
}

// StripDataURIPrefix removes a leading data:image/...;base64, prefix and
// surrounding whitespace. The MIME type from the prefix is returned when
// present.
func StripDataURIPrefix(payload string) (cleaned, mimeType string) {
	payload = strings.TrimSpace(payload)
	if m := dataURIPrefix.FindStringSubmatch(payload); m != nil {
		return payload[len(m[0]):], strings.ToLower(m[1])
	}
	return payload, ""
}

// FromFile reads r fully, base64-encodes it in the same pass and decodes the
// image header for its dimensions.
func (in *Ingester) FromFile(ctx context.Context, name, declaredMime string, r io.Reader) (*Decoded, error) {
	if r == nil {
		return nil, errors.New(errors.KindIngest, "image.from_file", "file reader is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limited := &io.LimitedReader{R: r, N: in.limits.MaxFileSize + 1}
	raw := bytes.NewBuffer(make([]byte, 0, 32*1024))
	encoded := bytes.NewBuffer(make([]byte, 0, 64*1024))
	encoder := base64.NewEncoder(base64.StdEncoding, encoded)

	if _, err := io.Copy(io.MultiWriter(raw, encoder), limited); err != nil {
		return nil, errors.Wrap(errors.KindIngest, "image.from_file", "read file "+name, err)
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.KindIngest, "image.from_file", "encode file "+name, err)
	}
	if limited.N <= 0 {
		return nil, errors.Newf(errors.KindIngest, "image.from_file", "%s exceeds maximum size of %d bytes", name, in.limits.MaxFileSize)
	}

	data := raw.Bytes()
	width, height, format, err := in.decodeHeader(data, Extension(name))
	if err != nil {
		return nil, errors.Wrap(errors.KindIngest, "image.from_file", "decode "+name, err)
	}

	mimeType := declaredMime
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = MimeTypeForName(name)
	}

	return &Decoded{
		Info: ImageInfo{
			Width:    width,
			Height:   height,
			Size:     int64(len(data)),
			Name:     name,
			MimeType: mimeType,
		},
		Base64: encoded.String(),
		Bytes:  data,
		Format: format,
	}, nil
}

// FromBase64 decodes payload to read its dimensions. The returned Base64 is
// the payload without prefix or whitespace, and the size is estimated from
// its length.
func (in *Ingester) FromBase64(ctx context.Context, name, payload string) (*Decoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, prefixMime := StripDataURIPrefix(payload)
	cleaned = stripWhitespace(cleaned)
	if cleaned == "" {
		return nil, errors.New(errors.KindIngest, "image.from_base64", "empty payload")
	}

	data, err := DecodeBase64(cleaned)
	if err != nil {
		return nil, errors.Wrap(errors.KindIngest, "image.from_base64", "invalid base64", err)
	}
	if int64(len(data)) > in.limits.MaxFileSize {
		return nil, errors.Newf(errors.KindIngest, "image.from_base64", "payload exceeds maximum size of %d bytes", in.limits.MaxFileSize)
	}

	width, height, format, err := in.decodeHeader(data, "")
	if err != nil {
		return nil, errors.Wrap(errors.KindIngest, "image.from_base64", "decode image", err)
	}

	mimeType := MimeTypeForFormat(format)
	if prefixMime != "" && mimeType == "application/octet-stream" {
		mimeType = prefixMime
	}

	return &Decoded{
		Info: ImageInfo{
			Width:    width,
			Height:   height,
			Size:     int64(float64(len(cleaned)) * base64SizeRatio),
			Name:     name,
			MimeType: mimeType,
		},
		Base64: cleaned,
		Format: format,
	}, nil
}

// DecodeBase64 accepts padded or unpadded standard Base64 and ignores line
// breaks.
func DecodeBase64(payload string) ([]byte, error) {
	payload = stripWhitespace(payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// stripWhitespace drops the line breaks and spaces of wrapped Base64.
func stripWhitespace(payload string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
}

func (in *Ingester) decodeHeader(data []byte, declared string) (int, int, string, error) {
	if len(data) == 0 {
		return 0, 0, "", fmt.Errorf("empty image payload")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if declared != "" && !matchesSignature(data, declared) {
			in.logger.WarnTag("INGEST", "file signature mismatch: declared=%s header=%x", declared, data[:min(len(data), 16)])
		}
		return 0, 0, "", err
	}

	if !in.formatAllowed(format) {
		return 0, 0, "", fmt.Errorf("unsupported format: %s", format)
	}
	if in.limits.MaxWidth > 0 && cfg.Width > in.limits.MaxWidth ||
		in.limits.MaxHeight > 0 && cfg.Height > in.limits.MaxHeight {
		return 0, 0, "", fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, in.limits.MaxWidth, in.limits.MaxHeight)
	}
	if in.limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > in.limits.MaxPixels {
		return 0, 0, "", fmt.Errorf("pixel count exceeds limit: %d", int64(cfg.Width)*int64(cfg.Height))
	}

	in.logger.DebugTag("INGEST", "decoded header: format=%s width=%d height=%d bytes=%d", format, cfg.Width, cfg.Height, len(data))
	return cfg.Width, cfg.Height, format, nil
}

func (in *Ingester) formatAllowed(format string) bool {
	if len(in.limits.AllowedFormats) == 0 {
		return true
	}
	format = strings.ToLower(format)
	for _, allowed := range in.limits.AllowedFormats {
		allowed = strings.ToLower(allowed)
		if allowed == format || allowed == "jpg" && format == "jpeg" {
			return true
		}
	}
	return false
}

func matchesSignature(data []byte, ext string) bool {
	if ext == "jpg" {
		ext = "jpeg"
	}
	sig, ok := signatures[ext]
	if !ok {
		return true
	}
	return bytes.HasPrefix(data, sig)
}
