package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Method string                   `json:"method"`
	Valid  bool                     `json:"valid"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <method> <params-file|->",
		Short: "Check request params against the method schema",
		Long: `Check request params against the method schema without contacting a
listener. The file holds the params object as JSON.

Example:
  tcf validate WorkOrderReceiptCreate receipt.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, methodName, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	method, err := jrpc.ParseMethod(methodName)
	if err != nil {
		return outputValidateError(formatter, ErrCodeInput, err.Error())
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return outputValidateError(formatter, ErrCodeInput, err.Error())
	}
	if !json.Valid(data) {
		return outputValidateError(formatter, ErrCodeInput, fmt.Sprintf("%s is not valid JSON", path))
	}

	validator, err := schema.New()
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Validating %s params from %s", method, path)

	if errs := validator.Check(method, json.RawMessage(data)); len(errs) > 0 {
		return outputValidationErrors(formatter, method, errs)
	}
	return outputValidateSuccess(formatter, method)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, method jrpc.Method) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Method: string(method), Valid: true})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s params valid\n", method)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, method jrpc.Method, errs []schema.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Method: string(method),
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s params invalid\n", method)
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
