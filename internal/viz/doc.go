// Package viz renders wavefunction frames in the terminal.
//
// Two Bubble Tea models share one renderer:
//
//   - [Player]: playback of recorded history frames
//   - [Live]: steps a simulator on every tick and draws the current state
//
// Frames are drawn either as an asciigraph line chart or on a Braille
// [Canvas]. The probability density is plotted together with the potential,
// rescaled to the density peak.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	[ ]   - Step one frame back/forward (pauses)
//	+ -   - Faster/slower
//	Home  - Jump to first frame
//	End   - Jump to last frame
//	M     - Toggle chart/Braille rendering
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	Q     - Quit
package viz
