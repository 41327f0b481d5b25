// Package viz renders a running ensemble in the terminal.
//
// [Model] is a Bubble Tea program that advances a solver on every tick and
// draws a sample of paths on a Braille [Canvas] next to a stats panel with
// the ensemble mean history.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart from t0 with the same Brownian paths
//	T     - Cycle color themes
//	+/-   - Steps per frame
//	?     - Show help overlay
//	Q     - Quit
package viz
