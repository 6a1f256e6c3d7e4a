package middleware

import (
	"context"
	"net/http"
	"sync"
)

// Request is the mutable description of an outgoing request.
type Request struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte
}

// Clone returns a copy that can be modified without affecting r.
func (r *Request) Clone() *Request {
	clone := &Request{
		URL:    r.URL,
		Method: r.Method,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	return clone
}

// RequestInterceptor may rewrite a request before it is sent.
// Returning an error aborts the attempt.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseObserver is notified once response headers are available.
type ResponseObserver func(ctx context.Context, resp *http.Response, req *Request)

// Chain holds the registered interceptors and observers.
type Chain struct {
	mu           sync.RWMutex
	interceptors []RequestInterceptor
	observers    []ResponseObserver
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Clone returns a new chain holding the same interceptors and observers.
// Registering on the clone does not affect c.
func (c *Chain) Clone() *Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Chain{
		interceptors: append([]RequestInterceptor(nil), c.interceptors...),
		observers:    append([]ResponseObserver(nil), c.observers...),
	}
}

// UseRequest registers a request interceptor.
func (c *Chain) UseRequest(interceptor RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, interceptor)
}

// UseResponse registers a response observer.
func (c *Chain) UseResponse(observer ResponseObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// ApplyRequest runs the interceptors in registration order.
func (c *Chain) ApplyRequest(ctx context.Context, req *Request) error {
	c.mu.RLock()
	interceptors := append([]RequestInterceptor(nil), c.interceptors...)
	c.mu.RUnlock()

	for _, interceptor := range interceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// NotifyResponse runs the observers in registration order.
func (c *Chain) NotifyResponse(ctx context.Context, resp *http.Response, req *Request) {
	c.mu.RLock()
	observers := append([]ResponseObserver(nil), c.observers...)
	c.mu.RUnlock()

	for _, observer := range observers {
		observer(ctx, resp, req)
	}
}
