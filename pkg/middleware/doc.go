// Package middleware provides the interceptor system of the Data Ada transport.
//
// There are two independent extension points:
//   - request interceptors run before every attempt, in registration order,
//     and may rewrite the URL, method, headers or body of the request
//   - response observers run after the response headers arrive, in
//     registration order, and may react with side effects (such as refreshing
//     a session token) but cannot change the response or cause a retry
//
// The transport's retry loop does not consult observers: a 401 that triggers
// a token refresh is still returned to the caller as UNAUTHORIZED.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/middleware"
//
//	chain := middleware.NewChain()
//	chain.UseRequest(middleware.BearerAuth(tokenFunc, logger))
//	chain.UseResponse(middleware.RefreshOnUnauthorized(refreshFunc, logger))
package middleware
