package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/instrumentation"
	"github.com/teemow/dotion/internal/logging"
)

// ChunkStream is the readable side of an upstream completion stream.
// *openai.ChatCompletionStream satisfies it.
type ChunkStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// StreamOpener opens an upstream completion stream.
type StreamOpener interface {
	OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (ChunkStream, error)
}

// OpenAIOpener adapts *openai.Client to StreamOpener.
type OpenAIOpener struct {
	Client *openai.Client
}

func (o OpenAIOpener) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (ChunkStream, error) {
	return o.Client.CreateChatCompletionStream(ctx, req)
}

// TurnRequest is one chat turn: the conversation so far, the current
// schedule projection, and whether the session may mutate the calendar.
type TurnRequest struct {
	History []Message
	Days    []calendar.Day
	Authed  bool
}

// Streamer runs chat turns: it opens the upstream stream, forwards text
// deltas, assembles tool calls, executes them after the stream closes, and
// multiplexes everything onto the client stream.
type Streamer struct {
	opener     StreamOpener
	model      string
	prompt     *PromptBuilder
	executor   *Executor
	appControl bool
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// StreamerConfig carries the dependencies of a Streamer.
type StreamerConfig struct {
	Opener     StreamOpener
	Model      string
	Prompt     *PromptBuilder
	Executor   *Executor
	AppControl bool
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

func NewStreamer(cfg StreamerConfig) *Streamer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		opener:     cfg.Opener,
		model:      cfg.Model,
		prompt:     cfg.Prompt,
		executor:   cfg.Executor,
		appControl: cfg.AppControl,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Run executes one turn and writes the full event stream to mux, including
// the terminating frame. Tool calls only run when the request is
// authenticated; the model is not offered tools otherwise.
//
// Tool-call deltas are consumed here and never forwarded; the client sees
// text while it streams, then finished result cards, then at most one
// refresh signal.
func (s *Streamer) Run(ctx context.Context, req TurnRequest, mux *Multiplexer) error {
	turnID := uuid.NewString()
	logger := s.logger.With(logging.TurnID(turnID))
	started := time.Now()

	err := s.run(ctx, req, mux, logger)
	result := logging.StatusSuccess
	if err != nil {
		result = logging.StatusError
		logger.Error("chat turn failed", logging.Err(err))
	}
	s.metrics.RecordChatTurn(ctx, result, time.Since(started))
	return err
}

func (s *Streamer) run(ctx context.Context, req TurnRequest, mux *Multiplexer, logger *slog.Logger) error {
	messages := s.prompt.Build(time.Now(), req.History, req.Days, req.Authed)

	upstream := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	}
	if req.Authed {
		upstream.Tools = Definitions(s.appControl)
	}

	stream, err := s.opener.OpenStream(ctx, upstream)
	if err != nil {
		return fmt.Errorf("opening completion stream: %w", err)
	}
	defer stream.Close()

	acc := NewAccumulator()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading completion stream: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		for _, tc := range delta.ToolCalls {
			acc.Add(tc)
		}
		if delta.Content != "" {
			if err := mux.Text(ctx, delta.Content); err != nil {
				return err
			}
		}
	}

	if acc.Pending() && req.Authed {
		if err := s.finishToolCalls(ctx, acc, mux, logger); err != nil {
			return err
		}
	}

	return mux.Done(ctx)
}

func (s *Streamer) finishToolCalls(ctx context.Context, acc *Accumulator, mux *Multiplexer, logger *slog.Logger) error {
	calls := acc.Complete()
	logger.Info("executing tool calls", slog.Int("count", len(calls)))

	mutated := false
	for _, res := range s.executor.Execute(ctx, calls) {
		if res.Notice != "" {
			if err := mux.Text(ctx, "\n\n"+res.Notice); err != nil {
				return err
			}
		}
		if res.Data != nil {
			if err := mux.ToolResult(ctx, res.Data); err != nil {
				return err
			}
		}
		mutated = mutated || res.Mutated
	}

	// One refresh covers any number of mutations; the client refetches the
	// whole window anyway.
	if mutated {
		return mux.RefreshCalendar(ctx)
	}
	return nil
}
