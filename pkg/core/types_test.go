package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThinkingStatusRank(t *testing.T) {
	assert.Less(t, StatusPending.Rank(), StatusLoading.Rank())
	assert.Less(t, StatusLoading.Rank(), StatusCompleted.Rank())
	assert.Equal(t, 0, ThinkingStatus("done").Rank())

	assert.NoError(t, StatusLoading.Validate())
	assert.Error(t, ThinkingStatus("").Validate())
}

func TestTaskModeValidate(t *testing.T) {
	for _, m := range []TaskMode{"", ModeChart, ModeDashboard, ModeExtract, ModeReport} {
		assert.NoError(t, m.Validate(), "mode %q", m)
	}
	assert.Error(t, TaskMode("slides").Validate())
}

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{name: "message only", req: ChatRequest{ProjectID: "p", Message: "hi"}},
		{name: "files only", req: ChatRequest{ProjectID: "p", Files: []FileUpload{{ID: "f", Name: "a.csv"}}}},
		{name: "empty", req: ChatRequest{ProjectID: "p"}, wantErr: true},
		{name: "bad mode", req: ChatRequest{Message: "hi", Mode: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatRequestWireFormat(t *testing.T) {
	req := ChatRequest{ProjectID: "p1", Message: "分析成绩", Mode: ModeChart}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"projectId":"p1","message":"分析成绩","mode":"chart"}`, string(data))
}

func TestResponseHelpers(t *testing.T) {
	ok := OK("value")
	assert.True(t, ok.Success)
	assert.Equal(t, "value", ok.Data)
	assert.Nil(t, ok.Error)

	failed := Fail[int](NewAPIError(CodeNotFound, "gone", false))
	assert.False(t, failed.Success)
	assert.Equal(t, CodeNotFound, failed.Error.Code)
}
