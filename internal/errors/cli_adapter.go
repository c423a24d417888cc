package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if sbe, ok := As(err); ok {
		return exitCodeFromCategory(sbe.Category)
	}
	return 1
}

func exitCodeFromCategory(c ErrorCategory) int {
	switch c {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryAsset, CategoryRender, CategoryFilter, CategoryTemplate, CategoryBuild, CategoryFileSystem:
		return 11 // Build error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// HandleError logs the error and exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.report(err)
	os.Exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) report(err error) {
	sbe, ok := As(err)
	if !ok {
		a.logger.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	attrs := []any{"category", string(sbe.Category), "severity", string(sbe.Severity)}
	if a.verbose {
		for k, v := range sbe.Context {
			attrs = append(attrs, k, v)
		}
	}
	if sbe.Cause != nil {
		attrs = append(attrs, "cause", sbe.Cause.Error())
	}
	a.logger.Error(sbe.Message, attrs...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", sbe.Message)
}
