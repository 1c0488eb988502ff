package appcontrol

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/teemow/dotion/internal/logging"
)

// darwinController drives macOS applications through `open` and AppleScript.
// Minimize requires the user to have granted automation permission for
// System Events.
type darwinController struct {
	logger *slog.Logger
}

func (c *darwinController) Launch(ctx context.Context, app string) error {
	return c.open(ctx, app)
}

// Focus reuses `open -a`, which activates the app when it is already running.
func (c *darwinController) Focus(ctx context.Context, app string) error {
	return c.open(ctx, app)
}

func (c *darwinController) open(ctx context.Context, app string) error {
	name, err := sanitizeAppName(app)
	if err != nil {
		return err
	}
	return c.run(ctx, "launch", exec.CommandContext(ctx, "open", "-a", name))
}

func (c *darwinController) Quit(ctx context.Context, app string) error {
	name, err := sanitizeAppName(app)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`quit app "%s"`, escapeQuotes(name))
	return c.run(ctx, "quit", exec.CommandContext(ctx, "osascript", "-e", script))
}

func (c *darwinController) Minimize(ctx context.Context, app string) error {
	name, err := sanitizeAppName(app)
	if err != nil {
		return err
	}
	// Hide via System Events; fall back to a substring match when the
	// process name differs from the app name.
	script := fmt.Sprintf(`try
	tell application "System Events"
		set visible of process "%[1]s" to false
	end tell
on error
	tell application "System Events"
		set proc to first process whose name contains "%[1]s"
		set visible of proc to false
	end tell
end try`, escapeQuotes(name))
	return c.run(ctx, "minimize", exec.CommandContext(ctx, "osascript", "-e", script))
}

func (c *darwinController) ListRunning(ctx context.Context) ([]string, error) {
	script := `try
	tell application "System Events"
		get name of every application process whose background only is false
	end tell
on error
	return ""
end try`

	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		c.logger.Warn("failed to list running apps", logging.Err(err))
		return nil, fmt.Errorf("failed to list running apps: %w", err)
	}
	return parseAppList(string(out)), nil
}

func (c *darwinController) run(ctx context.Context, action string, cmd *exec.Cmd) error {
	if err := cmd.Run(); err != nil {
		c.logger.Warn("app control command failed",
			logging.Operation("appcontrol."+action), logging.Err(err))
		return fmt.Errorf("app %s failed: %w", action, err)
	}
	return nil
}

// sanitizeAppName rejects names that could break out of the AppleScript
// string they are interpolated into.
func sanitizeAppName(app string) (string, error) {
	name := strings.TrimSpace(app)
	if name == "" {
		return "", fmt.Errorf("app name cannot be empty")
	}
	if strings.ContainsAny(name, "\n\r\\'") {
		return "", fmt.Errorf("invalid app name: %q", app)
	}
	return name, nil
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// parseAppList splits AppleScript's comma-separated process list.
func parseAppList(out string) []string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return []string{}
	}
	parts := strings.Split(trimmed, ", ")
	apps := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			apps = append(apps, name)
		}
	}
	return apps
}
