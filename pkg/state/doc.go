// Package state applies user edits to chart configurations.
//
// A ChartConfig received from the server is treated as immutable. Edits made
// in a configuration panel are expressed as JSON Patch (RFC 6902) operations
// or as a JSON Merge Patch (RFC 7386) and applied to a copy, so the original
// chart and any message that holds it stay unchanged.
//
// Example usage:
//
//	import "github.com/dataada/go-sdk/pkg/state"
//
//	updated, err := state.PatchChartOptions(chart, []state.PatchOperation{
//		{Op: "add", Path: "/title/text", Value: "成绩雷达图"},
//	})
//
//	merged, err := state.MergeChartOptions(chart, map[string]any{
//		"legend": map[string]any{"show": false},
//	})
package state
