// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/interceptor"
	"dbrevel/cli/internal/logging"
	"dbrevel/cli/internal/metrics"
	"dbrevel/cli/internal/retry"
	"dbrevel/cli/internal/validate"
)

// call describes one client operation.
type call struct {
	op      string
	method  string
	path    string
	payload any
	shape   validate.Shape
	bearer  bool
	// decode narrows the validated body. Its errors go through the error
	// chain like any other failure.
	decode func(body any) error
}

// execute runs the full pipeline for cl and returns the validated body.
func (c *Client) execute(ctx context.Context, cl call) (*interceptor.Response, error) {
	start := time.Now()
	resp, err := c.run(ctx, cl)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = "error"
		if kind, ok := apperrors.KindOf(err); ok {
			outcome = string(kind)
		}
	}
	c.metrics.ObserveCall(cl.op, outcome, time.Since(start))
	return resp, err
}

func (c *Client) run(ctx context.Context, cl call) (*interceptor.Response, error) {
	req, err := c.newRequest(cl)
	if err != nil {
		return nil, err
	}
	log := c.log.WithOperation(cl.op).WithTrace(req.Header.Get(HeaderRequestID), "")

	built, err := c.pipeline.ApplyRequest(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, req, typed(err, "request interceptor failed"))
	}
	req = built

	attempts := 0
	policy := c.policy
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		kind, _ := apperrors.KindOf(err)
		log.Warnw("retrying request",
			"attempt", attempt,
			"delay", delay,
			"kind", kind,
			"error", logging.Mask(err.Error()),
		)
		c.metrics.ObserveRetry(cl.op)
		if userOnRetry != nil {
			userOnRetry(attempt, err, delay)
		}
	}

	resp, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*interceptor.Response, error) {
		attempts = attempt
		log.Debugw("sending request", "method", req.Method, "url", logging.Mask(req.URL), "attempt", attempt)
		return c.transport.Do(ctx, req)
	})
	if err != nil {
		log.Debugw("request failed", "attempts", attempts, "error", logging.Mask(err.Error()))
		return nil, c.fail(ctx, req, err)
	}
	resp.Attempts = attempts

	out, err := c.pipeline.ApplyResponse(ctx, resp)
	if err != nil {
		return nil, c.fail(ctx, req, typed(err, "response interceptor failed"))
	}

	if err := validate.Validate(cl.shape, out.Body); err != nil {
		log.Warnw("response failed validation", "error", err.Error())
		return nil, c.fail(ctx, req, err)
	}

	if cl.decode != nil {
		if err := cl.decode(out.Body); err != nil {
			log.Warnw("response failed decoding", "error", err.Error())
			return nil, c.fail(ctx, req, typed(err, "cannot decode response"))
		}
	}

	log.Debugw("request succeeded", "status", out.StatusCode, "duration", out.Duration, "attempts", attempts)
	return out, nil
}

// fail runs the error chain. A replacement that is not a taxonomy error keeps
// the original kind and details, with the replacement as its cause.
func (c *Client) fail(ctx context.Context, req *interceptor.Request, err error) error {
	out := c.pipeline.ApplyError(ctx, req, err)
	if _, ok := apperrors.As(out); ok {
		return out
	}
	orig, ok := apperrors.As(err)
	if !ok {
		return typed(out, "error interceptor failed")
	}
	replaced := *orig
	replaced.Err = out
	return &replaced
}

func (c *Client) newRequest(cl call) (*interceptor.Request, error) {
	var body []byte
	if cl.payload != nil {
		b, err := json.Marshal(cl.payload)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Validation, "cannot encode request body", err)
		}
		body = b
	}

	h := http.Header{}
	h.Set(HeaderProjectKey, c.apiKey)
	h.Set(HeaderRequestID, newRequestID())
	h.Set("User-Agent", c.userAgent)
	if cl.bearer && c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}

	return &interceptor.Request{
		Operation: cl.op,
		Method:    cl.method,
		URL:       c.baseURL + cl.path,
		Header:    h,
		Body:      body,
		Timeout:   c.timeout,
	}, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// typed keeps taxonomy errors as they are and files anything else raised by
// an interceptor under Validation.
func typed(err error, msg string) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.Validation, msg, err)
}
