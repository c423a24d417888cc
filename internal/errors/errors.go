// Package errors provides a lightweight structured error type (SiteBuilderError)
// for category-based classification in the build engine and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a sitebuilder error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryAsset      ErrorCategory = "asset"
	CategoryRender     ErrorCategory = "render"
	CategoryFilter     ErrorCategory = "filter"
	CategoryTemplate   ErrorCategory = "template"
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// SiteBuilderError is a structured error with category, severity, and context
type SiteBuilderError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SiteBuilderError
type ContextFields map[string]any

// Error implements the error interface
func (e *SiteBuilderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping
func (e *SiteBuilderError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SiteBuilderError) WithContext(key string, value any) *SiteBuilderError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the severity assigned by a constructor.
func (e *SiteBuilderError) WithSeverity(s ErrorSeverity) *SiteBuilderError {
	e.Severity = s
	return e
}

// New creates a new SiteBuilderError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SiteBuilderError {
	return &SiteBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new SiteBuilderError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SiteBuilderError {
	return &SiteBuilderError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first SiteBuilderError in err's chain.
func As(err error) (*SiteBuilderError, bool) {
	var sbe *SiteBuilderError
	if stdErrors.As(err, &sbe) {
		return sbe, true
	}
	return nil, false
}

// IsCategory reports whether any SiteBuilderError in err's chain has the
// given category. A template error caused by a filter error matches both.
func IsCategory(err error, category ErrorCategory) bool {
	for err != nil {
		sbe, ok := As(err)
		if !ok {
			return false
		}
		if sbe.Category == category {
			return true
		}
		err = sbe.Cause
	}
	return false
}

// GetCategory extracts the outermost category from an error, or returns CategoryInternal if not a SiteBuilderError
func GetCategory(err error) ErrorCategory {
	if sbe, ok := As(err); ok {
		return sbe.Category
	}
	return CategoryInternal
}
