package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dataada/go-sdk/pkg/core"
)

// Request performs a request and decodes a successful JSON body into T.
// An empty body yields the zero value of T.
func Request[T any](ctx context.Context, t *Transport, endpoint string, opts ...CallOption) *core.Response[T] {
	raw := t.Do(ctx, endpoint, opts...)
	if !raw.Success {
		return core.Fail[T](raw.Error)
	}

	var out T
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, &out); err != nil {
			return core.Fail[T](&core.APIError{
				Code:    core.CodeInternalError,
				Message: fmt.Sprintf("failed to decode response: %v", err),
			})
		}
	}
	return core.OK(out)
}
