package output

import (
	"github.com/crimson-sun/winfault/internal/session"
)

// Reporter defines the interface for diagnostic report destinations.
type Reporter interface {
	Report(s *session.Session) error
	Close() error
}
