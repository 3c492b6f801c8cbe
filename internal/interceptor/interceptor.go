// Package interceptor implements the ordered request, response and error chains
// that wrap every client call.
//
// Each chain runs its interceptors in registration order, feeding one's output
// into the next. An empty chain passes values through untouched.
package interceptor

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Request describes an outgoing call before it reaches the transport.
type Request struct {
	// Operation names the client call (query, schemas, schema, health, ...).
	Operation string
	Method    string
	URL       string
	Header    http.Header
	// Body is the encoded JSON payload, nil for bodiless requests.
	Body []byte
	// Timeout bounds a single transport attempt.
	Timeout time.Duration
}

// Clone returns a deep copy so interceptors can mutate freely.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Header = r.Header.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}

// Response is a received 2xx response with its body decoded as generic JSON.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
	Request    *Request
	// Attempts is the number of transport attempts it took.
	Attempts int
	Duration time.Duration
}

// RequestInterceptor transforms an outgoing request.
type RequestInterceptor func(ctx context.Context, req *Request) (*Request, error)

// ResponseInterceptor transforms a received response before validation.
type ResponseInterceptor func(ctx context.Context, resp *Response) (*Response, error)

// ErrorInterceptor observes or replaces an error raised by a call.
type ErrorInterceptor func(ctx context.Context, req *Request, err error) error

// Pipeline holds the three chains.
type Pipeline struct {
	mu       sync.RWMutex
	request  []RequestInterceptor
	response []ResponseInterceptor
	errs     []ErrorInterceptor
}

// New returns an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// UseRequest appends fn to the request chain.
func (p *Pipeline) UseRequest(fn RequestInterceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.request = append(p.request, fn)
}

// UseResponse appends fn to the response chain.
func (p *Pipeline) UseResponse(fn ResponseInterceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = append(p.response, fn)
}

// UseError appends fn to the error chain.
func (p *Pipeline) UseError(fn ErrorInterceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, fn)
}

// Clear empties all three chains at once.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.request = nil
	p.response = nil
	p.errs = nil
}

// Len reports the chain sizes (request, response, error).
func (p *Pipeline) Len() (int, int, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.request), len(p.response), len(p.errs)
}

// ApplyRequest runs the request chain. A nil return from an interceptor keeps
// the current request.
func (p *Pipeline) ApplyRequest(ctx context.Context, req *Request) (*Request, error) {
	p.mu.RLock()
	chain := p.request
	p.mu.RUnlock()

	cur := req
	for _, fn := range chain {
		next, err := fn(ctx, cur)
		if err != nil {
			return nil, err
		}
		if next != nil {
			cur = next
		}
	}
	return cur, nil
}

// ApplyResponse runs the response chain. A nil return keeps the current response.
func (p *Pipeline) ApplyResponse(ctx context.Context, resp *Response) (*Response, error) {
	p.mu.RLock()
	chain := p.response
	p.mu.RUnlock()

	cur := resp
	for _, fn := range chain {
		next, err := fn(ctx, cur)
		if err != nil {
			return nil, err
		}
		if next != nil {
			cur = next
		}
	}
	return cur, nil
}

// ApplyError runs the error chain. Errors cannot be swallowed: a nil return
// keeps the current error.
func (p *Pipeline) ApplyError(ctx context.Context, req *Request, err error) error {
	if err == nil {
		return nil
	}
	p.mu.RLock()
	chain := p.errs
	p.mu.RUnlock()

	cur := err
	for _, fn := range chain {
		if next := fn(ctx, req, cur); next != nil {
			cur = next
		}
	}
	return cur
}
