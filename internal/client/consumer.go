// Package client consumes the assistant's server-sent event stream and
// folds it into a conversation transcript. It is the in-process counterpart
// of the web UI's stream reader and backs the terminal chat command.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/teemow/dotion/internal/chat"
)

const dataPrefix = "data: "

// frame is the union of everything the server multiplexes onto one stream.
// Exactly one of the branches is populated per frame.
type frame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	ToolResultData  *chat.ToolData `json:"tool_result_data"`
	RefreshCalendar bool           `json:"refresh_calendar"`
}

// Consumer folds a server-sent event stream into a transcript.
type Consumer struct {
	// OnRefresh runs when the server signals that calendar state changed.
	// May be nil.
	OnRefresh func()

	// OnText runs for every text delta as it arrives, before it lands in
	// the transcript. May be nil; the terminal client uses it to echo
	// tokens live.
	OnText func(string)

	Logger *slog.Logger
}

// Consume reads one stream to its terminator and returns the transcript
// with the assistant's messages appended. A frame that fails to parse is
// logged and skipped; the stream goes on. The input transcript is not
// modified.
func (c *Consumer) Consume(ctx context.Context, r io.Reader, transcript []chat.Message) ([]chat.Message, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]chat.Message, len(transcript))
	copy(out, transcript)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == "[DONE]" {
			return out, nil
		}

		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			logger.Warn("skipping malformed stream frame", slog.String("error", err.Error()))
			continue
		}
		out = c.apply(out, f)
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	// Stream ended without a terminator; keep what arrived.
	return out, nil
}

func (c *Consumer) apply(transcript []chat.Message, f frame) []chat.Message {
	switch {
	case f.RefreshCalendar:
		if c.OnRefresh != nil {
			c.OnRefresh()
		}
		return transcript

	case f.ToolResultData != nil:
		return attachToolData(transcript, f.ToolResultData)

	case len(f.Choices) > 0:
		content := f.Choices[0].Delta.Content
		if content == "" {
			return transcript
		}
		if c.OnText != nil {
			c.OnText(content)
		}
		return appendText(transcript, content)
	}
	return transcript
}

// appendText concatenates a delta onto the trailing assistant message,
// starting a new one if the transcript ends with anything else.
func appendText(transcript []chat.Message, content string) []chat.Message {
	if n := len(transcript); n > 0 && transcript[n-1].Role == chat.RoleAssistant {
		transcript[n-1].Content += content
		return transcript
	}
	return append(transcript, chat.Message{Role: chat.RoleAssistant, Content: content})
}

// attachToolData puts a result card on the trailing assistant message. Each
// message carries at most one card, so a second result in the same turn
// starts a fresh assistant message instead of overwriting the first.
func attachToolData(transcript []chat.Message, data *chat.ToolData) []chat.Message {
	if n := len(transcript); n > 0 {
		last := &transcript[n-1]
		if last.Role == chat.RoleAssistant && last.ToolData == nil {
			last.ToolData = data
			return transcript
		}
	}
	return append(transcript, chat.Message{Role: chat.RoleAssistant, ToolData: data})
}
