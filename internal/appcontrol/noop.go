package appcontrol

import "context"

// noopController reports ErrUnsupported for every operation. Used on
// platforms without automation support and when app control is disabled.
type noopController struct{}

func (noopController) Launch(context.Context, string) error   { return ErrUnsupported }
func (noopController) Quit(context.Context, string) error     { return ErrUnsupported }
func (noopController) Minimize(context.Context, string) error { return ErrUnsupported }
func (noopController) Focus(context.Context, string) error    { return ErrUnsupported }

func (noopController) ListRunning(context.Context) ([]string, error) {
	return nil, ErrUnsupported
}
