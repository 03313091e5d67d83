package liveness

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	DiagnosticNoAPIKey     = "API key not configured"
	DiagnosticNoDiagnostic = "No diagnostic in response"
)

// APIError is returned by SaaS clients when the service answers with an
// error status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusError is returned by SDK clients on a non-2xx response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// ErrTimeout marks an SDK call aborted by its deadline.
var ErrTimeout = stderrors.New("sdk request timed out")

func saasDiagnostic(err error) string {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return fmt.Sprintf("API error (%d): %s", apiErr.Status, apiErr.Message)
	}
	return "Error: " + messageOf(err)
}

func sdkDiagnostic(err error, timeout time.Duration) string {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP error: %d", statusErr.Status)
	}
	if isTimeout(err) {
		return "Timeout: no response within " + timeout.String()
	}
	return "Connection error: " + messageOf(err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, ErrTimeout) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// CheckEndpointStatus reports whether raw is a well-formed http or https URL.
// No request is made.
func CheckEndpointStatus(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
