package meter

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every payload that is not a valid snapshot.
var ErrMalformed = errors.New("malformed snapshot")

const excerptLen = 64

// ParseError describes a payload that could not be decoded into a Snapshot.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse snapshot %q: %v", e.Excerpt, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

func newParseError(data []byte, err error) *ParseError {
	excerpt := string(data)
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen] + "..."
	}
	return &ParseError{Excerpt: excerpt, Err: err}
}
