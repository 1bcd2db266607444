package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chipflow/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Name     string                     `json:"name"`
	Values   int                        `json:"values"`
	Routes   int                        `json:"routes"`
	Problems []compiler.ValidationError `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <network-file>",
		Short: "Check a network file without running it",
		Long: `Parse or compile a network file and run the static checks.

Reports how many value and route instructions the network holds. Errors
(E101 invalid instruction, E102 both chips to one output) fail validation;
warnings (E103 duplicate chip value, E104 watched value never introduced)
are printed but do not.

Examples:
  chipflow validate input.txt
  chipflow validate network.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	net, err := LoadNetwork(path)
	if err != nil {
		return reportLoadError(f, err)
	}
	f.VerboseLog("loaded %s (%d instructions)", path, len(net.Instructions))

	problems := compiler.Validate(net)
	values, routes := net.Counts()
	result := ValidationResult{
		Valid:    !compiler.HasErrors(problems),
		Name:     net.Name,
		Values:   values,
		Routes:   routes,
		Problems: problems,
	}

	if f.JSON() {
		if result.Valid {
			return f.Success(result)
		}
		first := firstError(problems)
		if err := f.Respond("error", result, &CLIError{Code: first.Code, Message: first.Message}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", countErrors(problems)))
	}

	if result.Valid {
		f.Printf("✓ %s: %d instructions (%d values, %d routes)\n", net.Name, values+routes, values, routes)
	} else {
		f.Printf("✗ Validation failed\n")
	}
	for _, p := range problems {
		f.Printf("  %s %s: %s: %s\n", p.Code, p.Severity, p.Field, p.Message)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", countErrors(problems)))
	}
	return nil
}

func firstError(problems []compiler.ValidationError) compiler.ValidationError {
	for _, p := range problems {
		if p.Severity == compiler.SeverityError {
			return p
		}
	}
	return compiler.ValidationError{}
}

func countErrors(problems []compiler.ValidationError) int {
	n := 0
	for _, p := range problems {
		if p.Severity == compiler.SeverityError {
			n++
		}
	}
	return n
}
