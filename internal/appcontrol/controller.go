package appcontrol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// Action identifies a desktop application operation.
type Action string

// Supported actions.
const (
	ActionLaunch   Action = "launch"
	ActionQuit     Action = "quit"
	ActionMinimize Action = "minimize"
	ActionFocus    Action = "focus"
)

// ErrUnsupported is returned when app control is unavailable on the current
// platform or disabled by configuration.
var ErrUnsupported = errors.New("app control is not supported on this platform")

// Controller abstracts desktop application control so the tool dispatch
// logic never depends on a specific OS automation mechanism.
type Controller interface {
	Launch(ctx context.Context, app string) error
	Quit(ctx context.Context, app string) error
	Minimize(ctx context.Context, app string) error
	Focus(ctx context.Context, app string) error
	ListRunning(ctx context.Context) ([]string, error)
}

// New returns the controller for the current platform. Only macOS has a real
// implementation; everywhere else (and when disabled) every call reports
// ErrUnsupported.
func New(enabled bool, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if enabled && runtime.GOOS == "darwin" {
		return &darwinController{logger: logger}
	}
	return noopController{}
}

// ParseAction validates a raw action string from tool arguments.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(raw)) {
	case ActionLaunch:
		return ActionLaunch, nil
	case ActionQuit:
		return ActionQuit, nil
	case ActionMinimize:
		return ActionMinimize, nil
	case ActionFocus:
		return ActionFocus, nil
	default:
		return "", fmt.Errorf("unknown app action: %q", raw)
	}
}

// Do dispatches an action on a controller.
func Do(ctx context.Context, c Controller, action Action, app string) error {
	switch action {
	case ActionLaunch:
		return c.Launch(ctx, app)
	case ActionQuit:
		return c.Quit(ctx, app)
	case ActionMinimize:
		return c.Minimize(ctx, app)
	case ActionFocus:
		return c.Focus(ctx, app)
	default:
		return fmt.Errorf("unknown app action: %q", action)
	}
}
