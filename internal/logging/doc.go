// Package logger provides leveled logging for lockbox commands.
//
// Output carries colored prefixes from fatih/color and respects NO_COLOR.
//
// # Verbosity Levels
//
//   - --verbose: info and warning messages
//   - --debug: everything, including debug details and errors
//
// Without flags, only WarnfAlways is printed. User-facing results are
// printed by the commands themselves through the ui package.
//
// # Log Methods
//
//	Logger.Infof()           // --verbose or --debug
//	Logger.Debugf()          // --debug only
//	Logger.Warnf()           // --verbose or --debug
//	Logger.WarnfAlways()     // always
//	Logger.Errorf()          // --debug only
//	Logger.ErrorfAndReturn() // Errorf, then returns the message as an error
//
// Commands create a logger in PersistentPreRun and pass it to workflows.
// Workflows never log passwords, keys or plaintext.
package logger
