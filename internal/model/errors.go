package model

import "errors"

// Sentinel errors classifying why an artifact could not be processed.
// Failures local to one record or one optional field are never represented
// here; they are absorbed into warning counters or ParseErrors.
var (
	// ErrNotFound: the input path does not exist. Input problem.
	ErrNotFound = errors.New("file not found")

	// ErrEmptyFile: the input file is zero bytes. Input problem.
	ErrEmptyFile = errors.New("file is empty")

	// ErrInvalidFormat: the bytes do not parse as the expected structure.
	// Input problem.
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrDebuggerUnavailable: no usable cdb/kd binary was located.
	// Environment problem.
	ErrDebuggerUnavailable = errors.New("debugger not available")

	// ErrDebuggerTimeout: a debugger invocation exceeded its deadline and no
	// fallback succeeded. Environment problem.
	ErrDebuggerTimeout = errors.New("debugger timed out")
)

// IsInputError reports whether err stems from a bad input artifact,
// as opposed to a tooling/environment problem or an internal bug.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsEnvironmentError reports whether err stems from missing or failing
// external tooling rather than the input itself.
func IsEnvironmentError(err error) bool {
	return errors.Is(err, ErrDebuggerUnavailable) ||
		errors.Is(err, ErrDebuggerTimeout)
}
