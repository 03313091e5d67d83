// Package liveness evaluates batches of face images against the hosted
// liveness service and any number of self-hosted SDK endpoints.
package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"liveness-playground/internal/domain/image"
)

const notAvailable = "N/A"

// Result is the aggregated outcome for one image.
type Result struct {
	Title      string           `json:"title"`
	ImagePath  string           `json:"imagePath"`
	ImageURL   string           `json:"imageUrl,omitempty"`
	Resolution string           `json:"resolution"`
	Size       string           `json:"size"`
	ImageInfo  *image.ImageInfo `json:"imageInfo,omitempty"`

	DiagnosticSaaS  string                     `json:"diagnosticSaaS,omitempty"`
	SDKDiagnostics  map[string]string          `json:"sdkDiagnostics,omitempty"`
	RawSaaSResponse json.RawMessage            `json:"rawSaaSResponse,omitempty"`
	SDKRawResponses map[string]json.RawMessage `json:"sdkRawResponses,omitempty"`

	Error string `json:"error,omitempty"`

	locallyOwned bool
}

// LocallyOwned reports whether ImageURL must be released by its holder.
func (r Result) LocallyOwned() bool {
	return r.locallyOwned
}

// SDKTarget is one self-hosted evaluation endpoint.
type SDKTarget struct {
	Tag     string            `json:"tag"`
	BaseURL string            `json:"url"`
	Active  bool              `json:"active"`
	Headers map[string]string `json:"headers,omitempty"`
}

// File is one uploaded image. Open is only called for files with a
// supported extension.
type File struct {
	Name     string
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// Options carries the per-run inputs chosen by the caller.
type Options struct {
	APIKey     string
	SDKEnabled bool
	// Targets is the caller's selection, in registry order. Inactive
	// targets are skipped.
	Targets []SDKTarget
}

// SaaSResponse is a successful reply from the hosted service.
type SaaSResponse struct {
	Log string
	Raw json.RawMessage
}

// SDKResponse is a successful reply from an SDK endpoint.
type SDKResponse struct {
	Diagnostic string
	Raw        json.RawMessage
}

// SaaSClient submits one image to the hosted liveness service.
type SaaSClient interface {
	EvaluatePassiveLiveness(ctx context.Context, imageBase64, apiKey string) (*SaaSResponse, error)
}

// SDKClient submits one image to an SDK endpoint. Implementations must
// honour ctx cancellation.
type SDKClient interface {
	Evaluate(ctx context.Context, target SDKTarget, imageBase64 string) (*SDKResponse, error)
}

// State of an Evaluator.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// Snapshot is what callers render.
type Snapshot struct {
	Results []Result `json:"results"`
	Error   *string  `json:"error"`
	Loading bool     `json:"loading"`
	State   State    `json:"state"`
}

// FormatResolution renders "W x H".
func FormatResolution(width, height int) string {
	return fmt.Sprintf("%d x %d", width, height)
}

// FormatSize renders a byte count for display.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(size)/float64(div), "KMG"[exp])
}
