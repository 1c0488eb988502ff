// Package chat runs a single assistant turn end to end: it builds the
// prompt, streams the model's reply, assembles tool calls out of interleaved
// deltas, executes them against the calendar and the desktop, and writes the
// resulting server-sent event stream.
//
// Tool calls execute strictly after the upstream stream closes, in index
// order. A failing call reports its failure inline and never blocks its
// siblings. Calendar mutations collapse into a single refresh signal per
// turn.
package chat
