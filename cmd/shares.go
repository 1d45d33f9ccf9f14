package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	grantRecipient      string
	grantExpires        string
	grantDownloads      int
	grantPasswordStdin  bool
	shareListSent       bool
	shareListReceived   bool
	shareListActive     bool
	shareListJSON       bool
	sharedOutput        string
	sharedForce         bool
	sharedPasswordStdin bool
)

// ShareCmd groups commands for sharing files with other users.
var ShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Grant, list and download shared files",
	Long: `A share re-wraps a file's content key for one recipient's public key. The
file itself is never re-encrypted. Shares can expire and can be limited to a
number of downloads.

Examples:
  lockbox share grant 3f2a... --to bob --downloads 1 --expires 7d
  lockbox share list --received --active
  lockbox -u bob share download 9c1e... -o report.pdf
  lockbox share revoke 9c1e...`,
}

func init() {
	shareGrantCmd.Flags().StringVar(&grantRecipient, "to", "", "user to share with (required)")
	shareGrantCmd.Flags().StringVar(&grantExpires, "expires", "", "expire after this duration, e.g. 36h, 7d or never (defaults to [shares] default_expiry)")
	shareGrantCmd.Flags().IntVar(&grantDownloads, "downloads", 0, "number of downloads allowed, -1 for unlimited (defaults to [shares] default_downloads)")
	shareGrantCmd.Flags().BoolVar(&grantPasswordStdin, "password-stdin", false, "read the password from stdin")
	_ = shareGrantCmd.MarkFlagRequired("to")

	shareListCmd.Flags().BoolVar(&shareListSent, "sent", false, "show only shares you sent")
	shareListCmd.Flags().BoolVar(&shareListReceived, "received", false, "show only shares you received")
	shareListCmd.Flags().BoolVar(&shareListActive, "active", false, "hide expired and exhausted shares")
	shareListCmd.Flags().BoolVar(&shareListJSON, "json", false, "output as JSON")

	shareDownloadCmd.Flags().StringVarP(&sharedOutput, "output", "o", "", "write to this path ('-' for stdout, defaults to the original filename)")
	shareDownloadCmd.Flags().BoolVarP(&sharedForce, "force", "f", false, "overwrite an existing output file")
	shareDownloadCmd.Flags().BoolVar(&sharedPasswordStdin, "password-stdin", false, "read the password from stdin")

	ShareCmd.AddCommand(shareGrantCmd)
	ShareCmd.AddCommand(shareListCmd)
	ShareCmd.AddCommand(shareDownloadCmd)
	ShareCmd.AddCommand(shareRevokeCmd)
}

// resetShareCommandState resets the share commands' global state for testing.
func resetShareCommandState() {
	grantRecipient = ""
	grantExpires = ""
	grantDownloads = 0
	grantPasswordStdin = false
	shareListSent = false
	shareListReceived = false
	shareListActive = false
	shareListJSON = false
	sharedOutput = ""
	sharedForce = false
	sharedPasswordStdin = false
}

var shareGrantCmd = &cobra.Command{
	Use:   "grant FILE_ID --to USER",
	Short: "Share one of your files with another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting share grant command for %s", actingUser)
		Logger.Debugf("Flags: to=%s, expires=%q, downloads=%d", grantRecipient, grantExpires, grantDownloads)

		expiresIn, err := parseExpiry(grantExpires)
		if err != nil {
			fmt.Println(ui.Failed(err.Error()))
			return nil
		}

		password, err := promptPassword(grantPasswordStdin)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}
		defer password.Destroy()

		spinner, cleanup := startSpinner("Sharing file...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.Share(context.Background(), env, workflows.ShareOptions{
			UserID:    actingUser,
			FileID:    args[0],
			Recipient: grantRecipient,
			Password:  password,
			ExpiresIn: expiresIn,
			Downloads: grantDownloads,
		})
		if err != nil {
			Logger.Errorf("Share failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		grant := result.Grant
		Logger.Infof("Created share %s for %s", grant.ID, grant.ReceiverID)
		spinner.FinalMSG = ui.Lines(
			ui.Done("Shared "+ui.Highlight.Sprint(result.Filename)+" with "+ui.Highlight.Sprint(grant.ReceiverID)),
			"  Share ID:  "+grant.ID,
			"  Downloads: "+ui.Downloads(grant.DownloadsRemaining),
			"  Expires:   "+ui.Expiry(grant.ExpiresAt, time.Now()),
			ui.Next(grant.ReceiverID+" can run "+ui.Code.Sprint("lockbox share download "+grant.ID)),
		)
		return nil
	},
}

var shareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shares you sent and received",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting share list command for %s", actingUser)

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		// Neither flag means both directions.
		sent, received := shareListSent, shareListReceived
		if !sent && !received {
			sent, received = true, true
		}

		result, err := workflows.ListShares(context.Background(), env, workflows.ListSharesOptions{
			UserID:     actingUser,
			Sent:       sent,
			Received:   received,
			ActiveOnly: shareListActive,
		})
		if err != nil {
			fmt.Println(formatError(err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if shareListJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal shares to JSON: %v", err)
			}
			fmt.Println(string(data))
			return nil
		}

		now := time.Now()
		if sent {
			printShareViews("Sent", result.Sent, now, func(v workflows.ShareView) string { return "-> " + v.Grant.ReceiverID })
		}
		if received {
			if sent {
				fmt.Println()
			}
			printShareViews("Received", result.Received, now, func(v workflows.ShareView) string { return "<- " + v.Grant.SenderID })
		}
		return nil
	},
}

func printShareViews(title string, views []workflows.ShareView, now time.Time, peer func(workflows.ShareView) string) {
	fmt.Println(ui.Info.Sprint(title) + fmt.Sprintf(" (%d)", len(views)))
	if len(views) == 0 {
		fmt.Println("  " + ui.Muted.Sprint("none"))
		return
	}
	for _, v := range views {
		fmt.Printf("  %-36s  %-24s  %-14s  %-10s  %-12s  %s\n",
			v.Grant.ID,
			v.Filename,
			peer(v),
			ui.Status(string(v.Status)),
			ui.Downloads(v.Grant.DownloadsRemaining),
			ui.Expiry(v.Grant.ExpiresAt, now))
	}
}

var shareDownloadCmd = &cobra.Command{
	Use:   "download SHARE_ID",
	Short: "Download a file shared with you",
	Long: `Decrypts a shared file and records one download against the share. A
download that fails to decrypt does not use up the share.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting shared download command for %s", actingUser)

		password, err := promptPassword(sharedPasswordStdin)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}
		defer password.Destroy()

		spinner, cleanup := startSpinner("Decrypting shared file...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.SharedDownload(context.Background(), env, workflows.SharedDownloadOptions{
			UserID:   actingUser,
			ShareID:  args[0],
			Password: password,
		})
		if err != nil {
			Logger.Errorf("Shared download failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}
		defer clear(result.Plaintext)

		target, err := writePlaintext(result, sharedOutput, sharedForce)
		if err != nil {
			spinner.FinalMSG = ui.Failed(err.Error())
			return nil
		}
		if target == "-" {
			return nil
		}

		var remaining string
		if result.Share != nil && result.Share.DownloadsRemaining >= 0 {
			remaining = ui.Next(ui.Downloads(result.Share.DownloadsRemaining) + " download(s) remaining on this share")
		}
		spinner.FinalMSG = ui.Lines(
			ui.Done("Downloaded "+ui.Highlight.Sprint(result.File.Filename)+" to "+ui.Path.Sprint(target)),
			remaining,
		)
		return nil
	},
}

var shareRevokeCmd = &cobra.Command{
	Use:   "revoke SHARE_ID",
	Short: "Revoke a share you granted",
	Long: `Deletes a share so its receiver can no longer download the file. A copy
the receiver already downloaded is not affected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting share revoke command for %s", actingUser)

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.Revoke(context.Background(), env, workflows.RevokeOptions{
			UserID:  actingUser,
			ShareID: args[0],
		})
		if err != nil {
			Logger.Errorf("Revoke failed: %v", err)
			fmt.Println(formatError(err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		fmt.Println(ui.Done("Revoked " + ui.Highlight.Sprint(result.Grant.ReceiverID) + "'s access to " + ui.Highlight.Sprint(result.Filename)))
		return nil
	},
}
