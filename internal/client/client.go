// Package client calls a running classifier server.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

type Prediction struct {
	Prediction     float64 `json:"prediction"`
	Classification string  `json:"classification"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status    int      `json:"-"`
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Timestamp int64    `json:"timestamp"`
	Errors    []string `json:"errors"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "classifier: %d %s", e.Status, e.ErrorCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Errors) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Errors, "; "))
		b.WriteString("]")
	}
	return b.String()
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

type predictReq struct {
	Features []float64 `json:"features"`
}

// Predict posts one feature vector.
func (c *Client) Predict(ctx context.Context, features []float64) (Prediction, error) {
	var out Prediction
	apiErr := &APIError{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(predictReq{Features: features}).
		SetResult(&out).
		SetError(apiErr).
		Post(c.base + "/api/ml/classifier")
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier request failed: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.ErrorCode == "" {
			apiErr.ErrorCode = resp.Status()
		}
		return Prediction{}, apiErr
	}
	return out, nil
}

// Ready returns nil when the server reports it can serve.
func (c *Client) Ready(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&status).
		SetError(&status).
		Get(c.base + "/ready")
	if err != nil {
		return fmt.Errorf("classifier readiness check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("classifier not ready: %d %s", resp.StatusCode(), status.Status)
	}
	return nil
}
