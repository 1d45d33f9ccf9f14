package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configInitName      string
	configInitDriver    string
	configInitDSN       string
	configInitBlobDir   string
	configInitDownloads int
	configInitExpiry    string
	configInitForce     bool
	configShowJSON      bool
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lockbox configuration",
	Long: `Provides commands for managing the lockbox configuration file.

The file lives at ~/.config/lockbox/config.toml unless LOCKBOX_CONFIG points
elsewhere. Data (the metadata database, blobs and the audit log) lives under
~/.local/share/lockbox unless LOCKBOX_DATA_DIR is set.

Examples:
  # Write a config file with defaults
  lockbox config init --name alice

  # Use a shared Postgres database
  lockbox config init --driver postgres --dsn "postgres://lockbox@db/lockbox?sslmode=disable"

  # Show the effective configuration
  lockbox config show`,
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitName, "name", "n", "", "default user to act as")
	configInitCmd.Flags().StringVar(&configInitDriver, "driver", "", "metadata store driver: sqlite or postgres")
	configInitCmd.Flags().StringVar(&configInitDSN, "dsn", "", "metadata store DSN (SQLite path or Postgres URL)")
	configInitCmd.Flags().StringVar(&configInitBlobDir, "blob-dir", "", "directory for encrypted blobs")
	configInitCmd.Flags().IntVar(&configInitDownloads, "default-downloads", 0, "default download limit for new shares, -1 for unlimited")
	configInitCmd.Flags().StringVar(&configInitExpiry, "default-expiry", "", "default expiry for new shares, e.g. 168h")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigCommandState resets the config commands' global state for testing.
func resetConfigCommandState() {
	configInitName = ""
	configInitDriver = ""
	configInitDSN = ""
	configInitBlobDir = ""
	configInitDownloads = 0
	configInitExpiry = ""
	configInitForce = false
	configShowJSON = false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configs.UserLockboxSettings.ConfigPath
		Logger.Infof("Starting config init command (path: %s)", path)

		if _, err := os.Stat(path); err == nil && !configInitForce {
			fmt.Println(ui.Warned("A config file already exists at " + ui.Path.Sprint(path)))
			fmt.Println(ui.Next("Use " + ui.Code.Sprint("--force") + " to overwrite it"))
			return nil
		}

		config := configs.DefaultConfig()
		if configInitName != "" {
			if !utils.IsValidUserID(configInitName) {
				fmt.Println(ui.Failed("Invalid user name " + ui.Highlight.Sprint(configInitName)))
				return nil
			}
			config.User.Name = configInitName
		}
		if configInitDriver != "" {
			config.Storage.Driver = configInitDriver
		}
		config.Storage.DSN = configInitDSN
		config.Storage.BlobDir = configInitBlobDir
		if configInitDownloads != 0 {
			config.Shares.DefaultDownloads = configInitDownloads
		}
		config.Shares.DefaultExpiry = configInitExpiry

		if err := config.Validate(); err != nil {
			fmt.Println(ui.Failed(err.Error()))
			return nil
		}

		Logger.Debugf("Saving config to %s", path)
		if err := configs.SaveConfig(path, config); err != nil {
			return Logger.ErrorfAndReturn("Failed to save config: %v", err)
		}

		fmt.Println(ui.Done("Configuration saved to " + ui.Path.Sprint(path)))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		config := appConfig
		if config == nil {
			config = configs.DefaultConfig()
		}
		settings := configs.UserLockboxSettings

		// Postgres DSNs may carry a password.
		shown := *config
		if shown.Storage.DSN != "" && shown.StorageDriver() != configs.DefaultConfig().StorageDriver() {
			shown.Storage.DSN = "<redacted>"
		}
		config = &shown

		if configShowJSON {
			output, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
			}
			fmt.Println(string(output))
			return nil
		}

		fmt.Println(color.CyanString("Configuration") + " (" + settings.ConfigPath + "):")
		fmt.Println()
		fmt.Printf("  %-18s %s\n", "Acting user:", color.GreenString(actingUser))
		fmt.Printf("  %-18s %s\n", "Storage driver:", color.GreenString(config.StorageDriver()))
		if config.StorageDriver() == configs.DefaultConfig().StorageDriver() {
			fmt.Printf("  %-18s %s\n", "Database:", color.YellowString(config.StorageDSN(settings)))
		}
		fmt.Printf("  %-18s %s\n", "Blob directory:", color.YellowString(config.BlobDir(settings)))
		fmt.Printf("  %-18s %s\n", "Audit log:", color.YellowString(settings.AuditLogPath()))
		fmt.Println()
		fmt.Println(color.CyanString("As TOML:"))
		return toml.NewEncoder(os.Stdout).Encode(config)
	},
}
