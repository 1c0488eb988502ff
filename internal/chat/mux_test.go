package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	raw := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		require.True(t, strings.HasPrefix(f, "data: "), "frame %q lacks data prefix", f)
		out = append(out, strings.TrimPrefix(f, "data: "))
	}
	return out
}

func TestMultiplexerTextFrame(t *testing.T) {
	var buf bytes.Buffer
	mux := NewMultiplexer(&buf, nil)

	require.NoError(t, mux.Text(context.Background(), "Hello"))

	fs := frames(t, &buf)
	require.Len(t, fs, 1)

	var frame struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	require.NoError(t, json.Unmarshal([]byte(fs[0]), &frame))
	require.Len(t, frame.Choices, 1)
	assert.Equal(t, "Hello", frame.Choices[0].Delta.Content)
}

func TestMultiplexerSkipsEmptyText(t *testing.T) {
	var buf bytes.Buffer
	mux := NewMultiplexer(&buf, nil)

	require.NoError(t, mux.Text(context.Background(), ""))
	assert.Zero(t, buf.Len())
}

func TestMultiplexerToolResultFrame(t *testing.T) {
	var buf bytes.Buffer
	mux := NewMultiplexer(&buf, nil)

	require.NoError(t, mux.ToolResult(context.Background(), &ToolData{
		Type: ToolDataCreate, EventID: "ev1", Summary: "Lunch",
	}))

	fs := frames(t, &buf)
	require.Len(t, fs, 1)

	var frame struct {
		ToolResultData *ToolData `json:"tool_result_data"`
	}
	require.NoError(t, json.Unmarshal([]byte(fs[0]), &frame))
	require.NotNil(t, frame.ToolResultData)
	assert.Equal(t, ToolDataCreate, frame.ToolResultData.Type)
	assert.Equal(t, "ev1", frame.ToolResultData.EventID)
}

func TestMultiplexerRefreshAndDone(t *testing.T) {
	var buf bytes.Buffer
	mux := NewMultiplexer(&buf, nil)

	ctx := context.Background()
	require.NoError(t, mux.RefreshCalendar(ctx))
	require.NoError(t, mux.Done(ctx))

	fs := frames(t, &buf)
	require.Len(t, fs, 2)
	assert.JSONEq(t, `{"refresh_calendar":true}`, fs[0])
	assert.Equal(t, "[DONE]", fs[1])
}
