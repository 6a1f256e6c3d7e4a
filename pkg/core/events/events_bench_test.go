package events

import (
	"testing"

	"github.com/dataada/go-sdk/pkg/core"
)

// BenchmarkEventFromJSON benchmarks decoding of the most frequent event types
func BenchmarkEventFromJSON(b *testing.B) {
	b.Run("ThinkingStepEvent", func(b *testing.B) {
		data := []byte(`{"type":"thinking_step","data":{"id":"1","status":"loading","text":"正在读取文件表头..."}}`)
		for i := 0; i < b.N; i++ {
			if _, err := EventFromJSON(data); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ConclusionEvent", func(b *testing.B) {
		data := []byte(`{"type":"conclusion","data":{"content":"根据数据分析，得出以下结论","isComplete":true}}`)
		for i := 0; i < b.N; i++ {
			if _, err := EventFromJSON(data); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkEventToJSON benchmarks envelope encoding
func BenchmarkEventToJSON(b *testing.B) {
	event := NewThinkingStepEvent("1", core.StatusCompleted, "提取数据中...")
	for i := 0; i < b.N; i++ {
		if _, err := event.ToJSON(); err != nil {
			b.Fatal(err)
		}
	}
}
