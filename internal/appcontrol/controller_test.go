package appcontrol

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw     string
		want    Action
		wantErr bool
	}{
		{raw: "launch", want: ActionLaunch},
		{raw: "QUIT", want: ActionQuit},
		{raw: "Minimize", want: ActionMinimize},
		{raw: "focus", want: ActionFocus},
		{raw: "explode", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDisabled(t *testing.T) {
	ctrl := New(false, slog.Default())
	ctx := context.Background()

	assert.ErrorIs(t, ctrl.Launch(ctx, "Safari"), ErrUnsupported)
	assert.ErrorIs(t, Do(ctx, ctrl, ActionQuit, "Safari"), ErrUnsupported)

	_, err := ctrl.ListRunning(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSanitizeAppName(t *testing.T) {
	name, err := sanitizeAppName("  Safari ")
	require.NoError(t, err)
	assert.Equal(t, "Safari", name)

	_, err = sanitizeAppName("")
	assert.Error(t, err)

	_, err = sanitizeAppName("Bad\nApp")
	assert.Error(t, err)

	_, err = sanitizeAppName(`it's`)
	assert.Error(t, err)
}

func TestEscapeQuotes(t *testing.T) {
	assert.Equal(t, `My \"App\"`, escapeQuotes(`My "App"`))
}

func TestParseAppList(t *testing.T) {
	assert.Equal(t, []string{}, parseAppList(""))
	assert.Equal(t, []string{}, parseAppList("  \n"))
	assert.Equal(t,
		[]string{"Finder", "Safari", "Visual Studio Code"},
		parseAppList("Finder, Safari, Visual Studio Code\n"))
}

func TestDoUnknownAction(t *testing.T) {
	err := Do(context.Background(), noopController{}, Action("teleport"), "Safari")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}
