package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	registerPasswordStdin bool
	passwdPasswordStdin   bool
	accountShowJSON       bool
)

// AccountCmd groups identity management commands.
var AccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Register an identity and manage your password",
	Long: `Manages your lockbox identity: an RSA key pair whose private half is stored
encrypted under a key derived from your password.

Examples:
  lockbox account register
  lockbox account passwd
  lockbox account show`,
}

func init() {
	registerCmd.Flags().BoolVar(&registerPasswordStdin, "password-stdin", false, "read the password from stdin")
	passwdCmd.Flags().BoolVar(&passwdPasswordStdin, "password-stdin", false, "read the current and new password from stdin, one per line")
	accountShowCmd.Flags().BoolVar(&accountShowJSON, "json", false, "output as JSON")

	AccountCmd.AddCommand(registerCmd)
	AccountCmd.AddCommand(passwdCmd)
	AccountCmd.AddCommand(accountShowCmd)
}

// resetAccountCommandState resets the account commands' global state for testing.
func resetAccountCommandState() {
	registerPasswordStdin = false
	passwdPasswordStdin = false
	accountShowJSON = false
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create your identity",
	Long: `Generates a new key pair for the acting user and stores the private key
wrapped under your password. Each user can register once.

Examples:
  lockbox account register
  echo "$PASSWORD" | lockbox account register --password-stdin
  lockbox -u alice account register`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting register command for %s", actingUser)

		password, err := promptNewPassword(registerPasswordStdin)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}
		defer password.Destroy()

		spinner, cleanup := startSpinner("Generating your identity...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.Register(context.Background(), env, workflows.RegisterOptions{
			UserID:   actingUser,
			Password: password,
		})
		if err != nil {
			Logger.Errorf("Register failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		Logger.Infof("Identity created for %s with %s", result.UserID, result.KDF)
		spinner.FinalMSG = ui.Lines(
			ui.Done("Identity created for "+ui.Highlight.Sprint(result.UserID)),
			"  Fingerprint: "+ui.Path.Sprint(result.Fingerprint),
			"  Key derivation: "+result.KDF,
			ui.Next("Keep your password safe. A lost password cannot be recovered."),
		)
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your password",
	Long: `Re-wraps your private key under a new password. Your key pair, files and
shares are unchanged. A fresh salt is drawn for the new password.

Examples:
  lockbox account passwd
  printf '%s\n%s\n' "$OLD" "$NEW" | lockbox account passwd --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting passwd command for %s", actingUser)

		oldPassword, newPassword, err := readPasswordChange(passwdPasswordStdin)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}
		defer oldPassword.Destroy()
		defer newPassword.Destroy()

		spinner, cleanup := startSpinner("Re-wrapping your private key...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.ChangePassword(context.Background(), env, workflows.ChangePasswordOptions{
			UserID:      actingUser,
			OldPassword: oldPassword,
			NewPassword: newPassword,
		})
		if err != nil {
			Logger.Errorf("Password change failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		Logger.Infof("Password changed for %s", result.UserID)
		spinner.FinalMSG = ui.Done("Password changed for " + ui.Highlight.Sprint(result.UserID))
		return nil
	},
}

func readPasswordChange(fromStdin bool) (*secrets.Credential, *secrets.Credential, error) {
	if fromStdin {
		passwords, err := readPasswordsFromStdin(2)
		if err != nil {
			return nil, nil, err
		}
		oldPassword, err := credentialFrom(passwords[0], nil)
		if err != nil {
			clear(passwords[1])
			return nil, nil, err
		}
		newPassword, err := credentialFrom(passwords[1], nil)
		if err != nil {
			oldPassword.Destroy()
			return nil, nil, err
		}
		return oldPassword, newPassword, nil
	}

	oldPassword, err := credentialFrom(utils.ReadPassphrase("Current password: "))
	if err != nil {
		return nil, nil, err
	}
	newPassword, err := promptNewPassword(false)
	if err != nil {
		oldPassword.Destroy()
		return nil, nil, err
	}
	return oldPassword, newPassword, nil
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your identity and usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting account show command for %s", actingUser)

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.Account(context.Background(), env, actingUser)
		if err != nil {
			fmt.Println(formatError(err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if accountShowJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal account to JSON: %v", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Println(ui.Info.Sprint("Account") + " " + ui.Highlight.Sprint(result.UserID))
		fmt.Println()
		fmt.Printf("  %-16s %s\n", "Fingerprint:", ui.Path.Sprint(result.Fingerprint))
		if result.Iterations > 0 {
			fmt.Printf("  %-16s %s (%d iterations)\n", "Key derivation:", result.KDF, result.Iterations)
		} else {
			fmt.Printf("  %-16s %s\n", "Key derivation:", result.KDF)
		}
		fmt.Printf("  %-16s %s\n", "Registered:", ui.Age(result.CreatedAt))
		fmt.Printf("  %-16s %s\n", "Updated:", ui.Age(result.UpdatedAt))
		fmt.Printf("  %-16s %d\n", "Files:", result.Stats.FilesOwned)
		fmt.Printf("  %-16s %d\n", "Shares sent:", result.Stats.SharesSent)
		fmt.Printf("  %-16s %d\n", "Shares received:", result.Stats.SharesReceived)
		return nil
	},
}
