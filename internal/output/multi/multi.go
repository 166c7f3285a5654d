package multi

import (
	"errors"

	"github.com/crimson-sun/winfault/internal/output"
	"github.com/crimson-sun/winfault/internal/session"
)

// Multi fans out a session to multiple output.Reporter implementations.
// If one reporter fails, the remaining reporters still receive the session.
type Multi struct {
	reporters []output.Reporter
}

// New creates a Multi that fans out to the given reporters.
func New(reporters ...output.Reporter) *Multi {
	return &Multi{reporters: reporters}
}

// Report delivers the session to every wrapped reporter. Errors are collected
// but do not prevent delivery to subsequent reporters.
func (m *Multi) Report(s *session.Session) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped reporter, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
