package state

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/dataada/go-sdk/pkg/core"
)

// ErrInvalidPatch is returned when a patch is malformed or cannot be applied.
var ErrInvalidPatch = errors.New("invalid patch")

// chartOptionsPointer is the JSON Pointer of ChartConfig.ChartOptions.
const chartOptionsPointer = "/chart_options"

// PatchOperation represents a JSON Patch operation (RFC 6902). A nil Value
// is the JSON null, a legal value for add, replace and test.
type PatchOperation struct {
	Op    string `json:"op"`              // "add", "remove", "replace", "move", "copy", "test"
	Path  string `json:"path"`            // JSON Pointer path
	Value any    `json:"value,omitempty"` // Value for add, replace, test operations
	From  string `json:"from,omitempty"`  // Source path for move, copy operations
}

// patchOperationJSON is the wire form; Value is always written.
type patchOperationJSON struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
	From  string `json:"from,omitempty"`
}

// MarshalJSON writes value for add, replace and test even when it is null,
// and omits it for the other operations.
func (op PatchOperation) MarshalJSON() ([]byte, error) {
	if takesValue(op.Op) {
		return json.Marshal(patchOperationJSON(op))
	}
	type plain PatchOperation
	p := plain(op)
	p.Value = nil
	return json.Marshal(p)
}

// UnmarshalJSON rejects add, replace and test operations without a value
// member; an explicit null is accepted.
func (op *PatchOperation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Op    string          `json:"op"`
		Path  string          `json:"path"`
		Value json.RawMessage `json:"value"`
		From  string          `json:"from"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if takesValue(raw.Op) && raw.Value == nil {
		return fmt.Errorf("value field is required for %s operation", raw.Op)
	}

	*op = PatchOperation{Op: raw.Op, Path: raw.Path, From: raw.From}
	if raw.Value != nil {
		if err := json.Unmarshal(raw.Value, &op.Value); err != nil {
			return err
		}
	}
	return nil
}

func takesValue(op string) bool {
	return op == "add" || op == "replace" || op == "test"
}

// validPatchOps is a map for O(1) lookup of valid operations
var validPatchOps = map[string]bool{
	"add":     true,
	"remove":  true,
	"replace": true,
	"move":    true,
	"copy":    true,
	"test":    true,
}

// Validate validates a single patch operation
func (op PatchOperation) Validate() error {
	if !validPatchOps[op.Op] {
		return fmt.Errorf("op field must be one of: add, remove, replace, move, copy, test, got: %s", op.Op)
	}

	if op.Path == "" || op.Path[0] != '/' {
		return fmt.Errorf("path must be a JSON pointer, got: %q", op.Path)
	}

	if (op.Op == "move" || op.Op == "copy") && op.From == "" {
		return fmt.Errorf("from field is required for %s operation", op.Op)
	}

	return nil
}

// PatchChart applies ops to the whole chart document and returns the result.
// Paths are relative to the chart, e.g. /recommended_type.
func PatchChart(chart core.ChartConfig, ops []PatchOperation) (core.ChartConfig, error) {
	return applyPatch(chart, ops)
}

// PatchChartOptions applies ops to the chart's options and returns the
// updated chart. Paths are relative to chart_options; missing parents are
// created on add.
func PatchChartOptions(chart core.ChartConfig, ops []PatchOperation) (core.ChartConfig, error) {
	scoped := make([]PatchOperation, len(ops))
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return core.ChartConfig{}, fmt.Errorf("%w: operation %d: %v", ErrInvalidPatch, i, err)
		}
		scoped[i] = op
		scoped[i].Path = chartOptionsPointer + op.Path
		if op.From != "" {
			scoped[i].From = chartOptionsPointer + op.From
		}
	}
	return applyPatch(chart, scoped)
}

// MergeChartOptions merges patch into the chart's options following JSON
// Merge Patch rules: a null value deletes a key, objects merge recursively
// and everything else replaces.
func MergeChartOptions(chart core.ChartConfig, patch map[string]any) (core.ChartConfig, error) {
	doc, err := json.Marshal(optionsOrEmpty(chart.ChartOptions))
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("encode chart options: %w", err)
	}
	mergeDoc, err := json.Marshal(patch)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	merged, err := jsonpatch.MergePatch(doc, mergeDoc)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var options map[string]any
	if err := json.Unmarshal(merged, &options); err != nil {
		return core.ChartConfig{}, fmt.Errorf("decode chart options: %w", err)
	}

	out, err := cloneChart(chart)
	if err != nil {
		return core.ChartConfig{}, err
	}
	out.ChartOptions = options
	return out, nil
}

func applyPatch(chart core.ChartConfig, ops []PatchOperation) (core.ChartConfig, error) {
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return core.ChartConfig{}, fmt.Errorf("%w: operation %d: %v", ErrInvalidPatch, i, err)
		}
	}

	chart.ChartOptions = optionsOrEmpty(chart.ChartOptions)
	doc, err := json.Marshal(chart)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("encode chart: %w", err)
	}

	rawOps, err := json.Marshal(ops)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	patch, err := jsonpatch.DecodePatch(rawOps)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	opts := jsonpatch.NewApplyOptions()
	opts.EnsurePathExistsOnAdd = true
	patched, err := patch.ApplyWithOptions(doc, opts)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var out core.ChartConfig
	if err := json.Unmarshal(patched, &out); err != nil {
		return core.ChartConfig{}, fmt.Errorf("%w: patched chart does not decode: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

// cloneChart returns a deep copy of chart. Numbers in the copy decode as
// float64.
func cloneChart(chart core.ChartConfig) (core.ChartConfig, error) {
	data, err := json.Marshal(chart)
	if err != nil {
		return core.ChartConfig{}, fmt.Errorf("encode chart: %w", err)
	}
	var out core.ChartConfig
	if err := json.Unmarshal(data, &out); err != nil {
		return core.ChartConfig{}, fmt.Errorf("decode chart: %w", err)
	}
	return out, nil
}

func optionsOrEmpty(options map[string]any) map[string]any {
	if options == nil {
		return map[string]any{}
	}
	return options
}
