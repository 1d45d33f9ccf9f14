package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PolarWolf314/lockbox/internal/configs"
	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
	"github.com/PolarWolf314/lockbox/internal/secrets"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/utils"
	"github.com/PolarWolf314/lockbox/internal/workflows"
	"github.com/briandowns/spinner"
	"github.com/common-nighthawk/go-figure"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

func printBanner() {
	banner := figure.NewColorFigure("lockbox", "alligator2", "green", true)
	banner.Print()
	fmt.Println()
}

// openEnv opens the stores named by the loaded config.
func openEnv() (*workflows.Env, error) {
	config := appConfig
	if config == nil {
		config = configs.DefaultConfig()
	}
	settings := configs.UserLockboxSettings
	Logger.Debugf("Opening %s store in %s", config.StorageDriver(), settings.DataDir)
	return workflows.OpenEnv(config, settings)
}

// readPasswordsFromStdin reads n newline-separated passwords from stdin.
func readPasswordsFromStdin(n int) ([][]byte, error) {
	data, err := utils.ReadStdin()
	if err != nil {
		return nil, err
	}
	defer clear(data)

	lines := bytes.Split(data, []byte("\n"))
	passwords := make([][]byte, 0, n)
	for _, line := range lines {
		if len(passwords) == n {
			break
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		passwords = append(passwords, bytes.Clone(line))
	}
	if len(passwords) < n {
		for _, pw := range passwords {
			clear(pw)
		}
		return nil, fmt.Errorf("expected %d passwords on stdin, one per line", n)
	}
	return passwords, nil
}

// credentialFrom wraps password in a credential handle and zeroes the input.
func credentialFrom(password []byte, err error) (*secrets.Credential, error) {
	if err != nil {
		return nil, err
	}
	defer clear(password)
	return secrets.NewCredential(password)
}

// promptPassword reads the acting user's password from stdin or the terminal.
func promptPassword(fromStdin bool) (*secrets.Credential, error) {
	if fromStdin {
		return credentialFrom(utils.ReadPasswordStdin())
	}
	return credentialFrom(utils.ReadPassphrase("Password: "))
}

// promptNewPassword reads a new password, asking twice on a terminal.
func promptNewPassword(fromStdin bool) (*secrets.Credential, error) {
	if fromStdin {
		return credentialFrom(utils.ReadPasswordStdin())
	}
	return credentialFrom(utils.ReadNewPassphrase("New password: ", "Confirm password: "))
}

// parseExpiry parses an --expires value. "never" disables expiry and an
// empty value defers to the configured default. Day suffixes such as "7d"
// are accepted alongside Go durations.
func parseExpiry(value string) (time.Duration, error) {
	switch value = strings.TrimSpace(value); {
	case value == "":
		return 0, nil
	case value == "never":
		return -1, nil
	case strings.HasSuffix(value, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", value)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q (use a duration like 36h, 7d or never)", value)
	}
	return d, nil
}

// formatError renders a workflow error for the spinner's final message.
func formatError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrUserNotFound):
		// A bare sentinel is about the acting user; recipients are wrapped.
		if err == kerrors.ErrUserNotFound {
			return ui.Lines(
				ui.Failed("No identity found for "+ui.Highlight.Sprint(actingUser)),
				ui.Next("Run "+ui.Code.Sprint("lockbox account register")+" first"),
			)
		}
		return ui.Failed(err.Error())

	case errors.Is(err, kerrors.ErrIdentityExists):
		return ui.Lines(
			ui.Failed(ui.Highlight.Sprint(actingUser)+" already has an identity"),
			ui.Next("Use "+ui.Code.Sprint("lockbox account passwd")+" to change its password"),
		)

	case errors.Is(err, kerrors.ErrWrongPassword):
		return ui.Failed("Wrong password")

	case errors.Is(err, kerrors.ErrIdentityConflict):
		return ui.Failed("Your identity was changed by another session. Try again.")

	case errors.Is(err, kerrors.ErrFileNotFound):
		return ui.Failed("File not found")

	case errors.Is(err, kerrors.ErrShareNotFound):
		return ui.Failed("Share not found")

	case errors.Is(err, kerrors.ErrNotOwner):
		return ui.Failed("You do not own this file")

	case errors.Is(err, kerrors.ErrSelfShare):
		return ui.Failed("You cannot share a file with yourself")

	case errors.Is(err, kerrors.ErrShareExpired):
		return ui.Failed("This share has expired")

	case errors.Is(err, kerrors.ErrShareExhausted):
		return ui.Failed("This share has no downloads remaining")

	case errors.Is(err, kerrors.ErrInvalidDownloadLimit),
		errors.Is(err, kerrors.ErrInvalidUserID),
		errors.Is(err, kerrors.ErrEmptyPassword),
		errors.Is(err, kerrors.ErrSameCredential),
		errors.Is(err, kerrors.ErrNoFilesFound),
		errors.Is(err, kerrors.ErrInvalidDateFormat):
		return ui.Failed(err.Error())

	case errors.Is(err, kerrors.ErrBlobNotFound),
		errors.Is(err, kerrors.ErrDecryptFailed),
		errors.Is(err, kerrors.ErrUnwrapFailed),
		errors.Is(err, kerrors.ErrInvalidEnvelope):
		return ui.Failed("Stored file could not be decrypted: " + err.Error())

	default:
		return ui.Failed("Error: " + err.Error())
	}
}

// isUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isUnexpectedError(err error) bool {
	expected := []error{
		kerrors.ErrUserNotFound,
		kerrors.ErrIdentityExists,
		kerrors.ErrWrongPassword,
		kerrors.ErrIdentityConflict,
		kerrors.ErrFileNotFound,
		kerrors.ErrShareNotFound,
		kerrors.ErrNotOwner,
		kerrors.ErrSelfShare,
		kerrors.ErrShareExpired,
		kerrors.ErrShareExhausted,
		kerrors.ErrInvalidDownloadLimit,
		kerrors.ErrInvalidUserID,
		kerrors.ErrEmptyPassword,
		kerrors.ErrSameCredential,
		kerrors.ErrNoFilesFound,
		kerrors.ErrInvalidDateFormat,
	}
	for _, target := range expected {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}
