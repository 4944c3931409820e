package model

import (
	"errors"
	"fmt"
)

// FormatError reports an upload that cannot be parsed as tabular data.
type FormatError struct {
	Source string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unreadable tabular data: %v", e.Err)
	}
	return fmt.Sprintf("unreadable tabular data in %s: %v", e.Source, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError wraps err as a FormatError for the named source.
func NewFormatError(source string, err error) *FormatError {
	return &FormatError{Source: source, Err: err}
}

// InsufficientFeaturesError reports a table with too few numeric columns to score.
type InsufficientFeaturesError struct {
	Found    int
	Required int
}

func (e *InsufficientFeaturesError) Error() string {
	return fmt.Sprintf("need at least %d numeric columns to score, found %d", e.Required, e.Found)
}

// InsufficientDataError reports degenerate input such as a header with no
// rows or a numeric column with nothing to impute from.
type InsufficientDataError struct {
	Column string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Column == "" {
		return "insufficient data: " + e.Reason
	}
	return fmt.Sprintf("insufficient data in column %q: %s", e.Column, e.Reason)
}

// IsFormatError returns true if err (or any error in its chain) is a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsInsufficientFeatures returns true if err (or any error in its chain) is an
// InsufficientFeaturesError.
func IsInsufficientFeatures(err error) bool {
	var fe *InsufficientFeaturesError
	return errors.As(err, &fe)
}

// IsInsufficientData returns true if err (or any error in its chain) is an
// InsufficientDataError.
func IsInsufficientData(err error) bool {
	var de *InsufficientDataError
	return errors.As(err, &de)
}
