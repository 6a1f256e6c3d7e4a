package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dataada/go-sdk/pkg/chat"
	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/messages"
)

var (
	chatMode   string
	chatExport bool
)

// chatCmd sends one message and prints the streamed answer
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message and print the streamed answer",
	Long: `Sends one message to the assistant and prints thinking steps as they
arrive, then the full transcript.

Example:
  dataada chat "分析成绩" --mode chart --mock`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatMode, "mode", "", "Task mode: chart, dashboard, extract or report")
	chatCmd.Flags().BoolVar(&chatExport, "export", false, "Write the transcript to the files directory")
}

func runChat(cmd *cobra.Command, args []string) error {
	c, err := newClient(nil)
	if err != nil {
		return err
	}
	defer c.Close()

	mode := core.TaskMode(cfg.Chat.Mode)
	if chatMode != "" {
		mode = core.TaskMode(chatMode)
	}

	out := cmd.OutOrStdout()
	printer := &stepPrinter{out: out, seen: map[string]core.ThinkingStatus{}}
	session, err := chat.NewSession(chat.Config{
		Streamer:  c,
		ProjectID: cfg.Chat.ProjectID,
		UserID:    cfg.Chat.UserID,
		Mode:      mode,
		OnChange:  printer.onChange,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	turn, err := session.SendMessage(ctx, args[0], chat.WithChartHandler(func(chart core.ChartConfig) {
		fmt.Fprintf(out, "chart: %s (%s, %d rows)\n", chart.ChartID, chart.RecommendedType, len(chart.Dataset.Source))
	}))
	if err != nil {
		return err
	}

	outcome, err := turn.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", session.ExportChat())

	if chatExport {
		path, err := session.ExportFile(cfg.Storage.FilesDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\ntranscript written to %s\n", path)
	}

	if outcome != chat.OutcomeCompleted {
		msgs := session.Messages()
		return fmt.Errorf("chat turn %s: %s", outcome, msgs[len(msgs)-1].Error)
	}
	return nil
}

// stepPrinter prints each thinking step once per status.
type stepPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	seen map[string]core.ThinkingStatus
}

func (p *stepPrinter) onChange(snap chat.Snapshot) {
	if len(snap.Messages) == 0 {
		return
	}
	last := snap.Messages[len(snap.Messages)-1]
	if last.Role != messages.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, step := range last.ThinkingSteps {
		if p.seen[step.ID] == step.Status {
			continue
		}
		p.seen[step.ID] = step.Status
		fmt.Fprintf(p.out, "[%s] %s\n", step.Status, step.Text)
	}
}
