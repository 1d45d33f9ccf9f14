package cmd

import (
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/configs"
	logger "github.com/PolarWolf314/lockbox/internal/logging"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose  bool
	debug    bool
	userFlag string
	Logger   logger.Logger

	// appConfig and actingUser are resolved before every command runs.
	appConfig  *configs.Config
	actingUser string

	// RootCmd is the top-level lockbox command.
	RootCmd = &cobra.Command{
		Use:   "lockbox",
		Short: "Lockbox - encrypted file custody with per-recipient sharing.",
		Long: `Lockbox stores files encrypted under a fresh key per file and shares them
by wrapping that key for each recipient's public key.

Your private key never leaves its password-wrapped form on disk. Shares can
expire and can be limited to a number of downloads.

Usage:
  lockbox <command> [flags]

Available Commands:
  account    Register an identity and manage your password
  files      Upload, list and download your files
  share      Grant, list and download shared files
  log        View the audit log
  config     Manage lockbox configuration
  doctor     Run health checks

Run 'lockbox help <command>' for more details on a specific command.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing lockbox with verbose=%t, debug=%t", verbose, debug)

			settings := configs.UserLockboxSettings
			Logger.Debugf("Loading config from %s", settings.ConfigPath)
			config, err := configs.LoadConfig(settings.ConfigPath)
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to load config: %v", err)
			}
			appConfig = config

			actingUser = config.ResolveUser(userFlag, settings)
			if userFlag == "" && config.User.Name == "" {
				actingUser = utils.SanitizeUserID(actingUser)
			}
			Logger.Debugf("Acting as user %q", actingUser)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			fmt.Println("Run 'lockbox --help' to see available commands.")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "act as this user (defaults to [user] name or your login)")

	RootCmd.AddCommand(AccountCmd)
	RootCmd.AddCommand(FilesCmd)
	RootCmd.AddCommand(ShareCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	userFlag = ""
	appConfig = nil
	actingUser = ""
	resetAccountCommandState()
	resetFilesCommandState()
	resetShareCommandState()
	resetLogCommandState()
	resetConfigCommandState()
	resetDoctorCommandState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed marker on every flag so one test
// cannot leak flag values into the next.
func resetCobraFlagState(c *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
