package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/lockbox/internal/configs"
	"github.com/PolarWolf314/lockbox/internal/ui"
	"github.com/PolarWolf314/lockbox/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	doctorJSONOutput bool
	// doctorExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	doctorExitFunc = os.Exit
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
	RootCmd.AddCommand(doctorCmd)
}

func resetDoctorCommandState() {
	doctorJSONOutput = false
	doctorExitFunc = os.Exit
}

// SetDoctorExitFunc sets the exit function for testing purposes.
func SetDoctorExitFunc(f func(int)) {
	doctorExitFunc = f
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on your lockbox installation",
	Long: `Runs a series of health checks on the local lockbox installation and
reports issues.

The doctor command checks:
  - Data directory and audit log permissions
  - Metadata store reachability
  - Your identity and its key-derivation cost
  - That every file you own still has an intact blob

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner("Running health checks...", verbose)
	defer cleanup()

	env, err := openEnv()
	if err != nil {
		spinner.FinalMSG = ui.Lines(
			ui.Failed("Failed to open storage: "+err.Error()),
			ui.Next("Check the [storage] section with "+ui.Code.Sprint("lockbox config show")),
		)
		doctorExitFunc(2)
		return nil
	}
	defer env.Close()

	result, err := workflows.Doctor(context.Background(), env, workflows.DoctorOptions{
		UserID:   actingUser,
		Settings: configs.UserLockboxSettings,
	})
	if err != nil {
		spinner.FinalMSG = ui.Failed("Failed to run health checks: " + err.Error())
		return err
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	// Output results.
	if doctorJSONOutput {
		spinner.FinalMSG = ""
		if err := outputDoctorJSON(result); err != nil {
			return err
		}
	} else {
		spinner.FinalMSG = ""
		printDoctorResults(result)
		if result.Summary.Errors > 0 {
			spinner.FinalMSG = ui.Failed("Health checks completed with errors")
		} else if result.Summary.Warnings > 0 {
			spinner.FinalMSG = ui.Warned("Health checks completed with warnings")
		} else {
			spinner.FinalMSG = ui.Done("Health checks completed")
		}
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		doctorExitFunc(2)
	}
	if result.Summary.Warnings > 0 {
		doctorExitFunc(1)
	}
	return nil
}

// outputDoctorJSON outputs the result as JSON.
func outputDoctorJSON(result *workflows.DoctorResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// printDoctorResults prints the doctor results in a human-readable format.
func printDoctorResults(result *workflows.DoctorResult) {
	fmt.Println("Running health checks...")
	fmt.Println()

	// Print each check result.
	for _, check := range result.Checks {
		switch check.Status {
		case workflows.CheckPass:
			fmt.Println(ui.Done(check.Message))
		case workflows.CheckWarning:
			fmt.Println(ui.Warned(check.Message))
		case workflows.CheckError:
			fmt.Println(ui.Failed(check.Message))
		}
	}

	// Print summary.
	fmt.Println()
	fmt.Printf("Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Printf(", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Printf(", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Println()

	// Print suggestions if any.
	if len(result.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Println("  " + ui.Next(suggestion))
		}
	}
}
