// Package transport provides the request and streaming layer of the Data Ada client.
//
// A Transport performs one logical request with bounded retries, a per-attempt
// timeout and pluggable middleware, and reports the outcome as a
// core.Response: either Success with data, or a classified *core.APIError.
// Request failures are never returned as Go errors.
//
// Retry policy: after a failed attempt the transport retries while
// attempt < MaxRetries and the retry condition holds (by default: the error is
// retryable). Before retry n it waits RetryDelay*n, a linear backoff.
//
// Chat turns are streamed: StreamChat opens POST {base}/chat/stream and decodes
// the "data: " line protocol into an EventStream, a finite, non-restartable
// sequence of typed events that ends either cleanly or with exactly one error.
// A WebSocket variant delivers the same events over text frames.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/transport"
//
//	t, err := transport.New(transport.Config{BaseURL: "http://localhost:8080/api"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp := transport.Request[[]core.Project](ctx, t, "/projects")
//	if !resp.Success {
//		log.Println(resp.Error)
//	}
//
//	stream := t.StreamChat(ctx, &core.ChatRequest{ProjectID: "p1", Message: "hi"})
//	for event := range stream.Events() {
//		handle(event)
//	}
//	if err := stream.Err(); err != nil {
//		log.Println(err)
//	}
package transport
