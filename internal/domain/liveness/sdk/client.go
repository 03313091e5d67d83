// Package sdk calls self-hosted liveness SDK endpoints.
package sdk

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/logging"
)

// EvaluatePath is appended to every endpoint base URL.
const EvaluatePath = "/api/v1/selphid/passive-liveness/evaluate"

type Client struct {
	http   *resty.Client
	logger *logging.Logger
}

type request struct {
	Image string `json:"image"`
}

type response struct {
	Diagnostic string `json:"diagnostic"`
}

// New builds a client without its own timeout: every call is bounded by the
// context the evaluator passes in.
func New(logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	return &Client{http: client, logger: logger}
}

// EvaluateURL joins base with EvaluatePath.
func EvaluateURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + EvaluatePath
}

// Evaluate posts {"image": imageBase64} to the target. Non-2xx answers come
// back as *liveness.StatusError and deadline expiry as liveness.ErrTimeout.
func (c *Client) Evaluate(ctx context.Context, target liveness.SDKTarget, imageBase64 string) (*liveness.SDKResponse, error) {
	req := c.http.R().
		SetContext(ctx).
		SetBody(request{Image: imageBase64})
	for k, v := range target.Headers {
		req.SetHeader(k, v)
	}

	resp, err := req.Post(EvaluateURL(target.BaseURL))
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, liveness.ErrTimeout
		}
		return nil, errors.Wrap(errors.KindTransport, "sdk.evaluate", "request "+target.Tag, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &liveness.StatusError{Status: resp.StatusCode()}
	}

	body := resp.Body()
	var parsed response
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(errors.KindTransport, "sdk.evaluate", "decode response from "+target.Tag, err)
	}

	c.logger.DebugTag("SDK", "%s answered %d in %s: %s", target.Tag, resp.StatusCode(), resp.Time(), parsed.Diagnostic)
	return &liveness.SDKResponse{Diagnostic: parsed.Diagnostic, Raw: append([]byte(nil), body...)}, nil
}
