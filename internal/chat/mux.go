package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teemow/dotion/internal/instrumentation"
)

// Multiplexer writes the turn's server-sent event stream. Text deltas, tool
// result cards and the refresh signal all travel over the same response
// body, one `data:` frame per event, terminated by a single [DONE] frame.
type Multiplexer struct {
	w       io.Writer
	flusher http.Flusher
	metrics *instrumentation.Metrics
}

// NewMultiplexer wraps a response writer. If w implements http.Flusher each
// frame is flushed immediately so the client sees tokens as they arrive.
func NewMultiplexer(w io.Writer, metrics *instrumentation.Metrics) *Multiplexer {
	m := &Multiplexer{w: w, metrics: metrics}
	if f, ok := w.(http.Flusher); ok {
		m.flusher = f
	}
	return m
}

type deltaFrame struct {
	Choices []deltaChoice `json:"choices"`
}

type deltaChoice struct {
	Delta deltaContent `json:"delta"`
}

type deltaContent struct {
	Content string `json:"content"`
}

// Text emits one assistant text delta in the upstream completion-chunk
// shape, so the client parses model tokens and locally generated notices the
// same way.
func (m *Multiplexer) Text(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	m.metrics.RecordStreamEvent(ctx, "text")
	return m.frame(deltaFrame{Choices: []deltaChoice{{Delta: deltaContent{Content: content}}}})
}

// ToolResult emits one tool result card.
func (m *Multiplexer) ToolResult(ctx context.Context, data *ToolData) error {
	if data == nil {
		return nil
	}
	m.metrics.RecordStreamEvent(ctx, "tool_result")
	return m.frame(struct {
		ToolResultData *ToolData `json:"tool_result_data"`
	}{ToolResultData: data})
}

// RefreshCalendar signals the client to refetch calendar state. Emitted at
// most once per turn, after all tool results.
func (m *Multiplexer) RefreshCalendar(ctx context.Context) error {
	m.metrics.RecordStreamEvent(ctx, "refresh")
	return m.frame(struct {
		RefreshCalendar bool `json:"refresh_calendar"`
	}{RefreshCalendar: true})
}

// Done writes the stream terminator.
func (m *Multiplexer) Done(ctx context.Context) error {
	m.metrics.RecordStreamEvent(ctx, "done")
	if _, err := fmt.Fprint(m.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	m.flush()
	return nil
}

func (m *Multiplexer) frame(payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding stream frame: %w", err)
	}
	if _, err := fmt.Fprintf(m.w, "data: %s\n\n", encoded); err != nil {
		return err
	}
	m.flush()
	return nil
}

func (m *Multiplexer) flush() {
	if m.flusher != nil {
		m.flusher.Flush()
	}
}
