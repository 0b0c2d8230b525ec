package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks failures found before any file is written.
var ErrValidation = errors.New("validation failed")

// ValidationError carries every problem found by a validation pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ItemError is a recoverable failure of one employee or document.
type ItemError struct {
	Item string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ErrPrerequisite marks a general report request whose departments lack
// block reports.
var ErrPrerequisite = errors.New("aggregation prerequisite not met")

type PrerequisiteError struct {
	Missing []string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s: no block report in %s", ErrPrerequisite, strings.Join(e.Missing, ", "))
}

func (e *PrerequisiteError) Unwrap() error { return ErrPrerequisite }
