// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package transport performs single, timeout-bounded HTTP attempts and maps
// every failure onto the client's error taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/httperrors"
	"dbrevel/cli/internal/interceptor"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// HTTP executes requests over an *http.Client.
type HTTP struct {
	// client performs the actual round trip. Its own Timeout is left unset;
	// deadlines come from the per-attempt context.
	client *http.Client
}

// New returns a transport over client, or over a fresh client when nil.
func New(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{client: client}
}

// Do performs one attempt of req.
//
// Cancellation of ctx wins over the attempt timeout: a cancelled parent yields
// a Cancelled error even when the attempt deadline fired at the same moment.
// A 2xx body is decoded as generic JSON; a non-JSON 2xx body is a Validation
// error. Non-2xx statuses become API errors carrying the parsed body.
func (h *HTTP) Do(ctx context.Context, req *interceptor.Request) (*interceptor.Response, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCancelled(err)
	}

	attemptCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, apperrors.NewValidation("url", err.Error())
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, attemptCtx, req.Timeout, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, attemptCtx, req.Timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp, raw)
	}

	var decoded any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, apperrors.NewValidation("body", "response is not valid JSON")
		}
	}

	return &interceptor.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decoded,
		Request:    req,
		Duration:   time.Since(start),
	}, nil
}

// classify maps a round-trip failure to Cancelled, Timeout or Network.
func classify(parent, attempt context.Context, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return apperrors.NewCancelled(parent.Err())
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) || httperrors.IsTimeout(err) {
		return apperrors.NewTimeout(timeout, err)
	}
	return apperrors.NewNetwork(err)
}

func apiError(resp *http.Response, raw []byte) error {
	msg := http.StatusText(resp.StatusCode)
	if msg == "" {
		msg = resp.Status
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Non-JSON bodies fall back to the status text; the raw text stays
		// reachable as the cause.
		e := apperrors.NewAPI(resp.StatusCode, msg, msg)
		if text := strings.TrimSpace(string(raw)); text != "" {
			e.Err = errors.New(text)
		}
		return e
	}
	if detail := FlattenDetail(parsed); detail != "" {
		msg = detail
	}
	return apperrors.NewAPI(resp.StatusCode, parsed, msg)
}

// checkRequest rejects descriptors an interceptor left structurally broken.
func checkRequest(req *interceptor.Request) error {
	if req == nil {
		return apperrors.NewValidation("request", "request is nil")
	}
	if req.Method == "" || !isToken(req.Method) {
		return apperrors.NewValidation("method", fmt.Sprintf("invalid HTTP method %q", req.Method))
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return apperrors.NewValidation("url", err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewValidation("url", fmt.Sprintf("url must be absolute http(s), got %q", req.URL))
	}
	for name, values := range req.Header {
		if !isToken(name) {
			return apperrors.NewValidation("header", fmt.Sprintf("invalid header name %q", name))
		}
		for _, v := range values {
			if strings.ContainsAny(v, "\r\n\x00") {
				return apperrors.NewValidation("header", fmt.Sprintf("invalid value for header %q", name))
			}
		}
	}
	return nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`"(),/:;<=>?@[\]{}`, r) {
			return false
		}
	}
	return true
}
