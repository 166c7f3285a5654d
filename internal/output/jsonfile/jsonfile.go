// Package jsonfile writes a diagnostic session as JSON, either to a stream
// or into the session store.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/crimson-sun/winfault/internal/session"
)

// Reporter encodes sessions as pretty-printed JSON to a writer.
type Reporter struct {
	enc *json.Encoder
}

// New creates a JSON Reporter writing to w.
func New(w io.Writer) *Reporter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &Reporter{enc: enc}
}

func (r *Reporter) Report(s *session.Session) error {
	if err := r.enc.Encode(s); err != nil {
		return fmt.Errorf("json output: %w", err)
	}
	return nil
}

func (r *Reporter) Close() error { return nil }
