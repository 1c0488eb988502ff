// Package appcontrol abstracts desktop application control behind a single
// capability interface.
//
// The manage_app tool dispatches launch, quit, minimize and focus actions
// here; on macOS they shell out to `open` and AppleScript, elsewhere every
// call reports ErrUnsupported. The chat executor only ever sees the
// Controller interface.
package appcontrol
