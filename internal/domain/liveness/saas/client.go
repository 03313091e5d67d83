// Package saas calls the hosted passive-liveness service.
package saas

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// APIKeyHeader carries the caller's key on every request.
const APIKeyHeader = "x-api-key"

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	url    string
	logger *logging.Logger
}

type request struct {
	Image string `json:"image"`
}

// response covers the fields the playground reads. The whole body is kept
// as the raw response.
type response struct {
	ServiceResultLog string `json:"serviceResultLog"`
	Log              string `json:"log"`
	Diagnostic       string `json:"diagnostic"`
	Message          string `json:"message"`
	Error            string `json:"error"`
}

func New(cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New(errors.KindConfig, "saas.new", "liveness service url is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{http: client, url: cfg.URL, logger: logger}, nil
}

// EvaluatePassiveLiveness posts one image. Error statuses come back as
// *liveness.APIError.
func (c *Client) EvaluatePassiveLiveness(ctx context.Context, imageBase64, apiKey string) (*liveness.SaaSResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(APIKeyHeader, apiKey).
		SetBody(request{Image: imageBase64}).
		Post(c.url)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransport, "saas.evaluate", "request liveness service", err)
	}

	body := resp.Body()
	var parsed response
	decodeErr := sonic.Unmarshal(body, &parsed)

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		message := parsed.Message
		if message == "" {
			message = parsed.Error
		}
		if message == "" || decodeErr != nil {
			message = http.StatusText(resp.StatusCode())
		}
		c.logger.WarnTag("SAAS", "service answered %d: %s", resp.StatusCode(), message)
		return nil, &liveness.APIError{Status: resp.StatusCode(), Message: message}
	}
	if decodeErr != nil {
		return nil, errors.Wrap(errors.KindTransport, "saas.evaluate", "decode response", decodeErr)
	}

	log := parsed.ServiceResultLog
	if log == "" {
		log = parsed.Log
	}
	if log == "" {
		log = parsed.Diagnostic
	}

	c.logger.DebugTag("SAAS", "service answered %d in %s", resp.StatusCode(), resp.Time())
	return &liveness.SaaSResponse{Log: log, Raw: append([]byte(nil), body...)}, nil
}
