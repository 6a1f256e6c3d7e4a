/*
Package messages provides the chat transcript model of the Data Ada client.

# Overview

A ChatMessage is one entry of a conversation: a user prompt or an assistant
answer. Assistant messages are built up while a turn streams: thinking steps
are upserted by id, the conclusion sets the content and a chart may be
attached. IsLoading stays true until the turn ends, and Error holds a
human-readable failure.

# History

History keeps messages in insertion order with an id index, so a streaming
turn can update its placeholder by id no matter what was appended after it.
All accessors return copies; callers never share slices with the history.

	h := messages.NewHistory()
	user := messages.NewUserMessage("分析成绩", nil)
	_ = h.Append(user)

	placeholder := messages.NewAssistantPlaceholder()
	_ = h.Append(placeholder)

	h.Update(placeholder.ID, func(m *messages.ChatMessage) {
		m.UpsertThinkingStep(core.ThinkingStep{ID: "1", Status: core.StatusLoading, Text: "读取文件"})
	})

# Export

Export renders a transcript as Markdown-friendly text:

	[2024-05-01 10:00:00] User:
	hi

	---

	[2024-05-01 10:00:01] AI:
	hello

Thinking steps are listed after the content as "N. text [status]".
*/
package messages
