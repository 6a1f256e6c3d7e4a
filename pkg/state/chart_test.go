package state

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataada/go-sdk/pkg/core"
)

func radarChart() core.ChartConfig {
	return core.ChartConfig{
		ChartID:         "chart_1",
		RecommendedType: "radar",
		Dataset: core.Dataset{
			Dimensions: []string{"subject", "score"},
			Source: []map[string]any{
				{"subject": "语文", "score": 92.0},
				{"subject": "数学", "score": 88.0},
			},
		},
		ChartOptions: map[string]any{
			"title":  map[string]any{"text": "成绩"},
			"legend": map[string]any{"show": true},
		},
	}
}

func TestPatchChartOptions(t *testing.T) {
	tests := []struct {
		name string
		ops  []PatchOperation
		want map[string]any
	}{
		{
			name: "replace title",
			ops:  []PatchOperation{{Op: "replace", Path: "/title/text", Value: "成绩雷达图"}},
			want: map[string]any{
				"title":  map[string]any{"text": "成绩雷达图"},
				"legend": map[string]any{"show": true},
			},
		},
		{
			name: "add creates missing parents",
			ops:  []PatchOperation{{Op: "add", Path: "/tooltip/trigger", Value: "item"}},
			want: map[string]any{
				"title":   map[string]any{"text": "成绩"},
				"legend":  map[string]any{"show": true},
				"tooltip": map[string]any{"trigger": "item"},
			},
		},
		{
			name: "remove and move",
			ops: []PatchOperation{
				{Op: "remove", Path: "/legend"},
				{Op: "move", From: "/title", Path: "/heading"},
			},
			want: map[string]any{
				"heading": map[string]any{"text": "成绩"},
			},
		},
		{
			name: "test passes",
			ops: []PatchOperation{
				{Op: "test", Path: "/legend/show", Value: true},
				{Op: "replace", Path: "/legend/show", Value: false},
			},
			want: map[string]any{
				"title":  map[string]any{"text": "成绩"},
				"legend": map[string]any{"show": false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := radarChart()

			got, err := PatchChartOptions(original, tt.ops)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got.ChartOptions); diff != "" {
				t.Errorf("chart options mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, "radar", got.RecommendedType)
			assert.Equal(t, original.Dataset, got.Dataset)

			if diff := cmp.Diff(radarChart(), original); diff != "" {
				t.Errorf("original chart was modified (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatchChartOptions_NilOptions(t *testing.T) {
	chart := core.ChartConfig{ChartID: "c", RecommendedType: "bar"}

	got, err := PatchChartOptions(chart, []PatchOperation{{Op: "add", Path: "/title", Value: "Scores"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Scores"}, got.ChartOptions)
	assert.Nil(t, chart.ChartOptions)
}

func TestPatchChartOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		ops  []PatchOperation
	}{
		{name: "unknown op", ops: []PatchOperation{{Op: "merge", Path: "/title"}}},
		{name: "relative path", ops: []PatchOperation{{Op: "remove", Path: "title"}}},
		{name: "replace missing key", ops: []PatchOperation{{Op: "replace", Path: "/series", Value: 1}}},
		{name: "missing from", ops: []PatchOperation{{Op: "copy", Path: "/title"}}},
		{name: "remove missing key", ops: []PatchOperation{{Op: "remove", Path: "/series"}}},
		{name: "failed test", ops: []PatchOperation{{Op: "test", Path: "/legend/show", Value: false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PatchChartOptions(radarChart(), tt.ops)
			assert.ErrorIs(t, err, ErrInvalidPatch)
		})
	}
}

func TestPatchChartOptions_NullValues(t *testing.T) {
	got, err := PatchChartOptions(radarChart(), []PatchOperation{
		{Op: "add", Path: "/legend", Value: nil},
		{Op: "test", Path: "/legend", Value: nil},
		{Op: "replace", Path: "/title", Value: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": nil, "legend": nil}, got.ChartOptions)
}

func TestPatchOperationJSON(t *testing.T) {
	data, err := json.Marshal([]PatchOperation{
		{Op: "add", Path: "/legend", Value: nil},
		{Op: "remove", Path: "/title"},
		{Op: "move", Path: "/a", From: "/b"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"op":"add","path":"/legend","value":null},
		{"op":"remove","path":"/title"},
		{"op":"move","path":"/a","from":"/b"}
	]`, string(data))

	var op PatchOperation
	require.NoError(t, json.Unmarshal([]byte(`{"op":"replace","path":"/x","value":null}`), &op))
	assert.Equal(t, PatchOperation{Op: "replace", Path: "/x"}, op)

	require.NoError(t, json.Unmarshal([]byte(`{"op":"add","path":"/x","value":{"show":true}}`), &op))
	assert.Equal(t, map[string]any{"show": true}, op.Value)

	err = json.Unmarshal([]byte(`{"op":"test","path":"/x"}`), &op)
	assert.ErrorContains(t, err, "value field is required for test operation")
}

func TestPatchChart(t *testing.T) {
	original := radarChart()

	got, err := PatchChart(original, []PatchOperation{
		{Op: "replace", Path: "/recommended_type", Value: "bar"},
		{Op: "add", Path: "/dataset/dimensions/-", Value: "rank"},
	})
	require.NoError(t, err)

	assert.Equal(t, "bar", got.RecommendedType)
	assert.Equal(t, []string{"subject", "score", "rank"}, got.Dataset.Dimensions)
	assert.Equal(t, "radar", original.RecommendedType)
	assert.Len(t, original.Dataset.Dimensions, 2)

	_, err = PatchChart(original, []PatchOperation{{Op: "replace", Path: "/dataset", Value: "flat"}})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestMergeChartOptions(t *testing.T) {
	original := radarChart()

	got, err := MergeChartOptions(original, map[string]any{
		"legend": nil,
		"title":  map[string]any{"subtext": "2024"},
		"radar":  map[string]any{"shape": "circle"},
	})
	require.NoError(t, err)

	want := map[string]any{
		"title": map[string]any{"text": "成绩", "subtext": "2024"},
		"radar": map[string]any{"shape": "circle"},
	}
	if diff := cmp.Diff(want, got.ChartOptions); diff != "" {
		t.Errorf("chart options mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "chart_1", got.ChartID)

	if diff := cmp.Diff(radarChart(), original); diff != "" {
		t.Errorf("original chart was modified (-want +got):\n%s", diff)
	}

	got.Dataset.Source[0]["score"] = 0.0
	assert.Equal(t, 92.0, original.Dataset.Source[0]["score"])
}
