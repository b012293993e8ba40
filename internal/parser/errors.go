package parser

import (
	"errors"
	"fmt"
)

// ErrMissingSection is returned when an expected page section is absent.
var ErrMissingSection = errors.New("section not found")

// ParseError reports a text token that does not have the expected numeric shape.
type ParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s %q: %v", e.Field, e.Text, e.Err)
	}
	return fmt.Sprintf("parse %s %q", e.Field, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
