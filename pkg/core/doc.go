// Package core provides the foundational types shared by the Data Ada client.
//
// It defines the API error taxonomy returned by the transport layer, the
// discriminated Response type, and the value types that travel over the chat
// protocol: thinking steps, chart configurations, data previews, chat
// requests, projects and user profiles.
//
// Errors follow two shapes:
//   - APIError: a classified request failure with a Retryable flag set by the
//     layer that produced it
//   - ConfigError: an invalid configuration field
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/core"
//
//	resp := core.Fail[string](core.NewAPIError(core.CodeTimeout, "request timeout", true))
//	if !resp.Success && resp.Error.Retryable {
//		// schedule another attempt
//	}
package core
