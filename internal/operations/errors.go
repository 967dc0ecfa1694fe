package operations

import (
	"fmt"
)

// Step names the stage of per-file processing an error came from
type Step string

const (
	StepParse    Step = "parse"
	StepResample Step = "resample"
	StepWrite    Step = "write"
)

// FileError is the error attached to a failed outcome
type FileError struct {
	Path  string
	Step  Step
	Cause error
}

// Error implements the error interface
func (e *FileError) Error() string {
	if e == nil {
		return "unknown file error"
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Path, e.Cause)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newFileError(path string, step Step, cause error) *FileError {
	return &FileError{Path: path, Step: step, Cause: cause}
}

// ErrorList collects the per-file errors of one run in processing order
type ErrorList struct {
	Errors []*FileError
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed; first: %s", len(e.Errors), e.Errors[0].Error())
}

// Add appends an error
func (e *ErrorList) Add(err *FileError) {
	e.Errors = append(e.Errors, err)
}

// HasErrors returns true if there are any errors
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ByStep returns the errors raised at a given step
func (e *ErrorList) ByStep(step Step) []*FileError {
	var result []*FileError
	for _, err := range e.Errors {
		if err.Step == step {
			result = append(result, err)
		}
	}
	return result
}
