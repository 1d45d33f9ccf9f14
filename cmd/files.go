package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/lockbox/internal/blobs"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	uploadMimeType        string
	filesListJSON         bool
	downloadOutput        string
	downloadForce         bool
	downloadPasswordStdin bool
)

// FilesCmd groups commands for the acting user's own files.
var FilesCmd = &cobra.Command{
	Use:   "files",
	Short: "Upload, list and download your files",
	Long: `Each uploaded file is encrypted under its own content key. The key is
stored wrapped for your public key, so uploading needs no password.

Examples:
  lockbox files upload report.pdf "notes/**/*.md"
  lockbox files list
  lockbox files download 3f2a... -o report.pdf`,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadMimeType, "mime", "", "MIME type to record (detected when empty)")
	filesListCmd.Flags().BoolVar(&filesListJSON, "json", false, "output as JSON")
	filesDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "write to this path ('-' for stdout, defaults to the original filename)")
	filesDownloadCmd.Flags().BoolVarP(&downloadForce, "force", "f", false, "overwrite an existing output file")
	filesDownloadCmd.Flags().BoolVar(&downloadPasswordStdin, "password-stdin", false, "read the password from stdin")

	FilesCmd.AddCommand(uploadCmd)
	FilesCmd.AddCommand(filesListCmd)
	FilesCmd.AddCommand(filesDownloadCmd)
}

// resetFilesCommandState resets the files commands' global state for testing.
func resetFilesCommandState() {
	uploadMimeType = ""
	filesListJSON = false
	downloadOutput = ""
	downloadForce = false
	downloadPasswordStdin = false
}

var uploadCmd = &cobra.Command{
	Use:   "upload PATTERN...",
	Short: "Encrypt and upload files",
	Long: `Encrypts each matching file under a fresh content key and stores it.
Patterns may be paths, directories or globs (including **).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting upload command for %s", actingUser)
		Logger.Debugf("Patterns: %v", args)

		spinner, cleanup := startSpinner("Encrypting files...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		workingDirectory, err := os.Getwd()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to get working directory: %v", err)
		}

		result, err := workflows.Upload(context.Background(), env, workflows.UploadOptions{
			UserID:       actingUser,
			FilePatterns: args,
			BaseDir:      workingDirectory,
			MimeType:     uploadMimeType,
		})
		if err != nil {
			Logger.Errorf("Upload failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		Logger.Infof("Uploaded %d files", len(result.Files))
		lines := []string{ui.Done(fmt.Sprintf("Uploaded %d file(s)", len(result.Files)))}
		for _, f := range result.Files {
			lines = append(lines, fmt.Sprintf("  %s  %s %s", ui.Highlight.Sprint(f.File.ID), ui.Path.Sprint(f.File.Filename), ui.Muted.Sprint(ui.Size(f.File.Size))))
		}
		lines = append(lines, ui.Next("Share with "+ui.Code.Sprint("lockbox share grant <file-id> --to <user>")))
		spinner.FinalMSG = ui.Lines(lines...)
		return nil
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting files list command for %s", actingUser)

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		files, err := workflows.ListFiles(context.Background(), env, actingUser)
		if err != nil {
			fmt.Println(formatError(err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if filesListJSON {
			data, err := json.MarshalIndent(files, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal files to JSON: %v", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(files) == 0 {
			fmt.Println("No files uploaded yet.")
			return nil
		}

		fmt.Printf("%-36s  %-28s  %-9s  %-24s  %s\n", "ID", "NAME", "SIZE", "TYPE", "UPLOADED")
		for _, f := range files {
			fmt.Printf("%-36s  %-28s  %-9s  %-24s  %s\n", f.ID, f.Filename, ui.Size(f.Size), f.MimeType, ui.Age(f.CreatedAt))
		}
		return nil
	},
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download FILE_ID",
	Short: "Download and decrypt one of your files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting download command for %s", actingUser)

		password, err := promptPassword(downloadPasswordStdin)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}
		defer password.Destroy()

		spinner, cleanup := startSpinner("Decrypting file...", verbose)
		defer cleanup()

		env, err := openEnv()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to open storage: %v", err)
		}
		defer env.Close()

		result, err := workflows.Download(context.Background(), env, workflows.DownloadOptions{
			UserID:   actingUser,
			FileID:   args[0],
			Password: password,
		})
		if err != nil {
			Logger.Errorf("Download failed: %v", err)
			spinner.FinalMSG = formatError(err)
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}
		defer clear(result.Plaintext)

		target, err := writePlaintext(result, downloadOutput, downloadForce)
		if err != nil {
			spinner.FinalMSG = ui.Failed(err.Error())
			return nil
		}
		if target == "-" {
			return nil
		}

		Logger.Infof("Wrote %s to %s", result.File.ID, target)
		spinner.FinalMSG = ui.Done("Downloaded " + ui.Highlight.Sprint(result.File.Filename) + " to " + ui.Path.Sprint(target))
		return nil
	},
}

// writePlaintext writes a download to output, to stdout for "-", or to the
// file's sanitized original name in the working directory.
func writePlaintext(result *workflows.DownloadResult, output string, force bool) (string, error) {
	if output == "-" {
		_, err := os.Stdout.Write(result.Plaintext)
		return output, err
	}

	target := output
	if target == "" {
		target = blobs.SanitizeFileName(filepath.Base(result.File.Filename))
	}

	if !force {
		if _, err := os.Stat(target); err == nil {
			return "", fmt.Errorf("%s already exists (use %s to overwrite)", target, ui.Code.Sprint("--force"))
		}
	}

	if err := os.WriteFile(target, result.Plaintext, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}
