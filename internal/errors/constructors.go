package errors

import "fmt"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *SiteBuilderError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration file invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *SiteBuilderError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Registration validation errors

func DestinationConflict(destination, first, second string) *SiteBuilderError {
	return New(CategoryValidation, SeverityFatal, "two outputs resolve to the same destination").
		WithContext("destination", destination).
		WithContext("first", first).
		WithContext("second", second)
}

func OutputEscape(source, destination string) *SiteBuilderError {
	return New(CategoryValidation, SeverityFatal, "destination resolves outside the output directory").
		WithContext("source", source).
		WithContext("destination", destination)
}

// Build pipeline errors

func MissingAsset(source string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryAsset, SeverityFatal, "passthrough source not found").
		WithContext("source", source)
}

func RenderFailed(path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryRender, SeverityFatal, "markdown rendering failed").
		WithContext("path", path)
}

// RenderPanic converts a recovered panic value from a renderer extension into an error.
func RenderPanic(recovered any) *SiteBuilderError {
	return New(CategoryRender, SeverityFatal, fmt.Sprintf("markdown extension panicked: %v", recovered))
}

func FilterInput(filter string, value any) *SiteBuilderError {
	return New(CategoryFilter, SeverityError, "filter input cannot be interpreted").
		WithContext("filter", filter).
		WithContext("value", fmt.Sprintf("%#v", value))
}

func TemplateFailed(layout string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryTemplate, SeverityFatal, "template execution failed").
		WithContext("layout", layout)
}

func BuildFailed(stage string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("stage", stage)
}

func FileSystemError(operation, path string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *SiteBuilderError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
