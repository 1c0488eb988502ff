package chat

import (
	"encoding/json"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// ToolArgumentError marks one tool call whose accumulated argument JSON did
// not parse. It is scoped to a single call index; sibling calls in the same
// turn are unaffected.
type ToolArgumentError struct {
	Tool string
	Err  error
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("tool %q: bad arguments: %v", e.Tool, e.Err)
}

func (e *ToolArgumentError) Unwrap() error {
	return e.Err
}

// CompletedCall is one fully assembled tool call, ready for execution. Args
// is nil and Err is set when the accumulated argument string was not valid
// JSON.
type CompletedCall struct {
	Index int
	ID    string
	Name  string
	Args  map[string]any
	Err   *ToolArgumentError
}

type partialCall struct {
	id   string
	name string
	args string
}

// Accumulator assembles tool calls out of streamed deltas. The model splits
// one call across many chunks and interleaves parallel calls, so fragments
// are keyed by the call index and concatenated as raw strings; nothing is
// parsed until the stream ends.
type Accumulator struct {
	calls map[int]*partialCall
}

func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*partialCall)}
}

// Add folds one streamed tool-call delta into the accumulator. Deltas
// without an index are dropped; the index is the only reliable correlation
// key since the ID appears on the first fragment only.
func (a *Accumulator) Add(tc openai.ToolCall) {
	if tc.Index == nil {
		return
	}
	call, ok := a.calls[*tc.Index]
	if !ok {
		call = &partialCall{}
		a.calls[*tc.Index] = call
	}
	if tc.ID != "" {
		call.id = tc.ID
	}
	if tc.Function.Name != "" {
		call.name += tc.Function.Name
	}
	call.args += tc.Function.Arguments
}

// Pending reports whether any fragments have been accumulated this turn.
func (a *Accumulator) Pending() bool {
	return len(a.calls) > 0
}

// Complete finalizes the turn, parsing each call's arguments and returning
// the calls in ascending index order. A call whose arguments fail to parse
// is returned with Err set rather than omitted, so the executor can surface
// the failure in order with its siblings.
func (a *Accumulator) Complete() []CompletedCall {
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]CompletedCall, 0, len(indexes))
	for _, i := range indexes {
		call := a.calls[i]
		done := CompletedCall{Index: i, ID: call.id, Name: call.name}

		raw := call.args
		if raw == "" {
			raw = "{}"
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			done.Err = &ToolArgumentError{Tool: call.name, Err: err}
		} else {
			done.Args = args
		}
		out = append(out, done)
	}

	a.calls = make(map[int]*partialCall)
	return out
}
