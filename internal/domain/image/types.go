package image

import (
	"path/filepath"
	"strings"
)

// ImageInfo is the metadata derived once when an image is ingested.
type ImageInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Decoded is an ingested image ready for evaluation.
type Decoded struct {
	Info ImageInfo
	// Base64 is the payload without any data URI prefix.
	Base64 string
	// Bytes is nil when the image came from a Base64 payload and was only
	// decoded for its header.
	Bytes  []byte
	Format string
}

// Limits bounds what the ingester accepts.
type Limits struct {
	MaxFileSize    int64
	MaxWidth       int
	MaxHeight      int
	MaxPixels      int64
	AllowedFormats []string
}

// SupportedExtensions are the upload extensions accepted for evaluation.
var SupportedExtensions = []string{"jpg", "jpeg", "png", "bmp", "gif", "webp"}

var mimeByExtension = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var mimeByFormat = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// IsSupportedFile reports whether name carries one of SupportedExtensions.
func IsSupportedFile(name string) bool {
	_, ok := mimeByExtension[Extension(name)]
	return ok
}

// MimeTypeForName guesses a MIME type from the file extension.
func MimeTypeForName(name string) string {
	if m, ok := mimeByExtension[Extension(name)]; ok {
		return m
	}
	return "application/octet-stream"
}

// MimeTypeForFormat maps an image.DecodeConfig format name to a MIME type.
func MimeTypeForFormat(format string) string {
	if m, ok := mimeByFormat[strings.ToLower(format)]; ok {
		return m
	}
	return "application/octet-stream"
}
