package errors

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryRegistry  Category = "registry"
	CategoryLifecycle Category = "lifecycle"
	CategoryBorrow    Category = "borrow"
	CategoryTemplate  Category = "template"
	CategoryProtocol  Category = "protocol"
	CategoryHost      Category = "host"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Location represents a position in a user-supplied file, such as a scenario
// script or a configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// SillError is a structured error with a stable code, category, and optional
// file location, suggestion, and documentation link.
type SillError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (registry, lifecycle, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred, when the
	// error comes from parsing user input.
	Location *Location

	// Context contains surrounding lines from the located file.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is code or markup showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SillError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SillError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location to the error.
func (e *SillError) WithLocation(file string, line, column int) *SillError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithLocationFromYAML extracts a line number from a yaml decode error.
// The yaml package embeds positions as "yaml: line N:" or, for unmarshal
// errors, as indented "line N:" entries.
func (e *SillError) WithLocationFromYAML(file string, err error) *SillError {
	if err == nil {
		return e
	}
	for _, part := range strings.Split(err.Error(), "\n") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "yaml: ")
		if !strings.HasPrefix(part, "line ") {
			continue
		}
		rest := strings.TrimPrefix(part, "line ")
		end := strings.IndexByte(rest, ':')
		if end < 0 {
			continue
		}
		line, convErr := strconv.Atoi(rest[:end])
		if convErr != nil || line <= 0 {
			continue
		}
		e.Location = &Location{File: file, Line: line}
		e.Context = readContextLines(file, line, 5)
		break
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SillError) WithSuggestion(s string) *SillError {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *SillError) WithExample(ex string) *SillError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *SillError) WithDetail(d string) *SillError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines to the error.
func (e *SillError) WithContext(lines []string) *SillError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *SillError) Wrap(err error) *SillError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a SillError from a registered error code.
func New(code string) *SillError {
	template, ok := registry[code]
	if !ok {
		return &SillError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SillError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new SillError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SillError {
	return &SillError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SillError.
func FromError(err error, code string) *SillError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SillError); ok {
		return se
	}
	return New(code).Wrap(err)
}
