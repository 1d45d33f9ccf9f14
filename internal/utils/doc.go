// Package utils provides shared helpers for lockbox commands.
//
// # File Resolution
//
//   - ResolveFiles: expands paths, directories and ** globs into files
//   - FormatPaths: formats file paths for human-readable output
//
// # User IDs
//
//   - GetUsername: returns the current OS username
//   - IsValidUserID / SanitizeUserID: user IDs name blob directories,
//     so they are kept to a safe character set
//
// # Password Input
//
//   - ReadPassphrase: reads a password from the terminal without echo
//   - ReadNewPassphrase: reads and confirms a new password
//   - ReadPassphraseFromTTY: reads from /dev/tty when stdin is busy
//   - ReadPasswordStdin: reads a piped password
package utils
