// Package viz renders layouts in the terminal.
//
// The package implements an autostep viewer using the Bubble Tea framework:
//
//   - [Model]: steps a layout.State on a timer and draws every snapshot
//   - [Picker]: chooses a description file before starting a [Model]
//   - [Canvas]: Braille-based pixel canvas with shape primitives
//   - Theme selection with 4 built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume autostep
//	S     - Single step while paused
//	R     - Resample varying values
//	Z     - Reset to the initial description
//	T     - Cycle color themes
//	?     - Show help overlay
//	[]/   - Scrub through step history
package viz
