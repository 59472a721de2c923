package media

import "fmt"

// ProbeError reports an unreadable media file or an unparseable duration.
type ProbeError struct {
	Path  string
	Cause error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Cause)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// AssemblyError reports a failed concatenation or audio mux.
type AssemblyError struct {
	Op      string
	Message string
	Cause   error
}

func (e *AssemblyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AssemblyError) Unwrap() error {
	return e.Cause
}
