package source

import (
	"fmt"
	"strings"
)

// LoadError is returned when a stack document cannot be read.
type LoadError struct {
	// File is the document path.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load stack document %q: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load stack document %q: %s", e.File, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError is a problem with the content of a stack document.
type ParseError struct {
	// File is the document path.
	File string

	// Field is the path of the offending value, e.g. "layers[1].rules.semi".
	// Empty for errors that concern the whole document.
	Field string

	// Message describes the error.
	Message string

	// Cause is the underlying decoder error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IncludeError is returned for include chains that cannot be followed:
// missing files, cycles and chains deeper than the configured limit.
type IncludeError struct {
	// File is the document containing the include.
	File string

	// Include is the path that was being included.
	Include string

	// Cycle lists the documents of a circular include, first document
	// repeated at the end.
	Cycle []string

	// Message describes the error.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *IncludeError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("circular include detected in %q: %s", e.File, strings.Join(e.Cycle, " -> "))
	}
	if e.Include != "" {
		return fmt.Sprintf("include error in %q: failed to include %q: %s", e.File, e.Include, e.Message)
	}
	return fmt.Sprintf("include error in %q: %s", e.File, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *IncludeError) Unwrap() error {
	return e.Cause
}

// ErrorList collects every ParseError found in a set of documents.
type ErrorList struct {
	Errors []error
}

// Add appends an error to the list.
func (e *ErrorList) Add(err error) {
	e.Errors = append(e.Errors, err)
}

// HasErrors reports whether any error was collected.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil for an empty list and the list itself otherwise.
func (e *ErrorList) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %v\n", i+1, err)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Unwrap returns the collected errors for errors.Is and errors.As.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}
