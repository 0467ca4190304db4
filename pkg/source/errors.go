package source

import "fmt"

// TransportError describes a failed request or connection.
type TransportError struct {
	Op         string // "poll", "dial", "read"
	URL        string
	StatusCode int // non-zero when the server answered with a failure status
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
