// Package ui renders lockbox's terminal output.
//
// Command output is built from status lines that start with a mark:
//
//	ui.Done("Uploaded 2 file(s)")               // ✓ Uploaded 2 file(s)
//	ui.Failed("Wrong password")                 // ✗ Wrong password
//	ui.Warned("Health checks completed ...")    // ⚠ ...
//	ui.Next("Run " + ui.Code.Sprint("lockbox account register") + " first")
//
// Values inside a line use a Style: Code for commands, Path for local
// paths, Highlight for users, file names and IDs, Muted for secondary
// details. With NO_COLOR set or on a terminal without color support, Code
// falls back to `backticks`, Highlight to 'quotes' and Muted to (parens).
//
// format.go holds the humanized renderings used by listings: sizes, ages,
// share expiry, remaining downloads and share status.
package ui
