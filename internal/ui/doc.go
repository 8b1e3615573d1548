// Package ui provides terminal UI components for shipr's CLI output.
//
// The package includes spinners, phase displays, tables and a Bubble Tea
// view of a running deployment, styled with Lip Gloss.
//
// # Components Overview
//
//	Spinner       - Animated status indicator for long-running operations
//	PhaseDisplay  - Renders finished steps with timing
//	StageView     - Bubble Tea model that follows a deployment's stages
//	StagePrinter  - Line-based fallback for StageView when not on a TTY
//	TargetPicker  - Interactive target selection
//
// # Color Scheme
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings and skipped items
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
