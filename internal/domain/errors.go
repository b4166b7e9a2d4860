package domain

import "fmt"

// ValidationError marks an error as caused by bad caller input, so the API
// layer can report it as such instead of a server fault.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
