package messages

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportTimeLayout formats message timestamps in exported transcripts.
const ExportTimeLayout = "2006-01-02 15:04:05"

// exportSeparator separates transcript entries.
const exportSeparator = "\n\n---\n\n"

// Export renders messages as a transcript. It does not modify them.
func Export(msgs []ChatMessage) string {
	entries := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, exportEntry(msg))
	}
	return strings.Join(entries, exportSeparator)
}

func exportEntry(msg ChatMessage) string {
	role := "AI"
	if msg.Role == RoleUser {
		role = "User"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s:\n%s", msg.Timestamp.Local().Format(ExportTimeLayout), role, msg.Content)

	if len(msg.ThinkingSteps) > 0 {
		b.WriteString("\n\nThinking Steps:")
		for i, step := range msg.ThinkingSteps {
			fmt.Fprintf(&b, "\n%d. %s [%s]", i+1, step.Text, step.Status)
		}
	}

	return b.String()
}

// ExportTo writes the transcript to w.
func ExportTo(w io.Writer, msgs []ChatMessage) error {
	_, err := io.WriteString(w, Export(msgs))
	return err
}

// ExportFile writes the transcript to dir/chat_export_<unix-ms>.md and
// returns the file path.
func ExportFile(dir string, msgs []ChatMessage, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("chat_export_%d.md", now.UnixMilli()))
	if err := os.WriteFile(path, []byte(Export(msgs)), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
