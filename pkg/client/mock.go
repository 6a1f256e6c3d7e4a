package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/transport"
)

// Default mock timings.
const (
	DefaultMockStepDelay  = 800 * time.Millisecond
	DefaultMockChartDelay = 500 * time.Millisecond
	DefaultMockAPIDelay   = 300 * time.Millisecond
)

// MockConfig controls the simulated timings of mock mode.
type MockConfig struct {
	StepDelay  time.Duration
	ChartDelay time.Duration
	APIDelay   time.Duration
}

// DefaultMockConfig returns the default mock timings.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		StepDelay:  DefaultMockStepDelay,
		ChartDelay: DefaultMockChartDelay,
		APIDelay:   DefaultMockAPIDelay,
	}
}

// MockStreamer produces a scripted chat turn without a server.
type MockStreamer struct {
	config MockConfig
}

var _ transport.ChatStreamer = (*MockStreamer)(nil)

// NewMockStreamer creates a mock streamer.
func NewMockStreamer(config MockConfig) *MockStreamer {
	return &MockStreamer{config: config}
}

// StreamChat emits two completed thinking steps, a conclusion chosen by the
// message content and, in chart mode or when no mode is set, a radar chart.
// The stream then ends cleanly without a done event.
func (m *MockStreamer) StreamChat(ctx context.Context, req *core.ChatRequest) *transport.EventStream {
	return transport.NewEventStream(ctx, func(ctx context.Context, emit func(events.Event) bool) error {
		if !emit(events.NewThinkingStepEvent("1", core.StatusCompleted, "正在读取文件表头...")) {
			return ctx.Err()
		}
		if err := wait(ctx, m.config.StepDelay); err != nil {
			return err
		}

		if !emit(events.NewThinkingStepEvent("2", core.StatusCompleted, "提取数据中...")) {
			return ctx.Err()
		}
		if err := wait(ctx, m.config.StepDelay); err != nil {
			return err
		}

		if !emit(events.NewConclusionEvent(MockConclusion(req.Message), true)) {
			return ctx.Err()
		}

		if req.Mode == core.ModeChart || req.Mode == "" {
			if err := wait(ctx, m.config.ChartDelay); err != nil {
				return err
			}
			if !emit(events.NewChartEvent(MockChart())) {
				return ctx.Err()
			}
		}

		return nil
	})
}

// MockConclusion returns the scripted answer for a message.
func MockConclusion(message string) string {
	if strings.Contains(message, "成绩") || strings.Contains(message, "分析") {
		return `根据数据分析，得出以下结论：

**优势科目**：
- 美术：95分，表现最为突出
- 数学：92分，逻辑思维能力较强
- 音乐：92分，艺术素养优秀

**需要关注的科目**：
- 生物：75分，相对较弱，建议加强基础知识复习
- 物理：78分，需要多做练习题

**总体评价**：
该同学文理科发展较为均衡，艺术类科目表现优异。理科中的物理和生物需要重点关注，建议通过增加练习时间和针对性辅导来提升。整体而言，该同学具有良好的学习潜力，保持当前的学习态度和方法，成绩会有进一步提升。`
	}

	return fmt.Sprintf("已收到您的请求：\"%s\"。\n\n这是一个模拟响应。当后端 API 集成后，这里将显示 AI 的真实分析结果。", message)
}

var mockScores = []struct {
	subject string
	score   int
}{
	{"语文", 85}, {"数学", 92}, {"英语", 88}, {"物理", 78},
	{"化学", 82}, {"生物", 75}, {"历史", 90}, {"地理", 86},
	{"政治", 88}, {"音乐", 92}, {"美术", 95}, {"体育", 88},
}

// MockChart returns the scripted radar chart of subject scores.
func MockChart() core.ChartConfig {
	source := make([]map[string]any, 0, len(mockScores))
	preview := make([]map[string]any, 0, len(mockScores))
	for _, s := range mockScores {
		source = append(source, map[string]any{"科目": s.subject, "成绩": s.score})
		preview = append(preview, map[string]any{"科目": s.subject, "成绩": s.score})
	}

	return core.ChartConfig{
		ChartID:         "chart_1",
		RecommendedType: "radar",
		Dataset: core.Dataset{
			Dimensions: []string{"科目", "成绩"},
			Source:     source,
		},
		ChartOptions: map[string]any{},
		PreviewData:  preview,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
