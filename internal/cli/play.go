package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/harness"
)

// PlayResult is the play command's JSON payload.
type PlayResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
	Report string   `json:"report"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Run a conformance scenario",
		Long: `Run one YAML scenario against a fresh deterministic session and
report the settled layout.

Exit codes:
  0 - scenario passed
  1 - one or more assertions failed
  2 - command error (missing file, invalid scenario, stuck run)

Example:
  quire play scenarios/overflow_split.yaml
  quire play scenarios/overflow_split.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPlay(opts *RootOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run scenario %s", scenario.Name), err)
	}

	if opts.Format == "json" {
		return outputPlayJSON(cmd, scenario.Name, result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprint(w, result.Report)
	if !result.Pass {
		fmt.Fprintf(w, "\nFAIL %s (%d steps)\n", scenario.Name, result.Steps)
		for _, msg := range result.Errors {
			fmt.Fprintln(w, msg)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	fmt.Fprintf(w, "\nPASS %s (%d steps)\n", scenario.Name, result.Steps)
	return nil
}

// outputPlayJSON encodes the run as a CLIResponse. Assertion failures
// keep the payload but flip the status and exit code.
func outputPlayJSON(cmd *cobra.Command, name string, result *harness.Result) error {
	status := "ok"
	if !result.Pass {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data: PlayResult{
			Name:   name,
			Pass:   result.Pass,
			Steps:  result.Steps,
			Errors: result.Errors,
			Report: result.Report,
		},
	}
	if !result.Pass {
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("%d assertion(s) failed", len(result.Errors)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", name))
	}
	return nil
}
