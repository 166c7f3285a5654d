// Package evtx decodes Windows event-log (.evtx) files into EventRecords.
//
// Decoding is fault-isolated per record: a record whose expansion is missing
// its System element or otherwise unusable is skipped and counted as a
// warning, never failing the file. Only a file that cannot be enumerated at
// all (missing, empty, or not an EVTX) is an error.
package evtx

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
	velocidex "www.velocidex.com/golang/evtx"

	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/stream"
)

// DefaultWarningSamples bounds how many skip diagnostics are retained.
const DefaultWarningSamples = 5

// Decoder decodes one or more event-log files and accumulates skip warnings
// across all of them. Decoding the same file twice yields identical record
// sequences.
type Decoder struct {
	maxSamples int
	warnings   int
	samples    []string
}

// NewDecoder creates a Decoder retaining up to DefaultWarningSamples
// diagnostic messages.
func NewDecoder() *Decoder {
	return &Decoder{maxSamples: DefaultWarningSamples}
}

// WarningSummary returns how many records were skipped so far and a bounded
// sample of the reasons. Meaningful once the sequences have been consumed.
func (d *Decoder) WarningSummary() (int, []string) {
	return d.warnings, d.samples
}

func (d *Decoder) warn(path, reason string) {
	d.warnings++
	if len(d.samples) < d.maxSamples {
		d.samples = append(d.samples, fmt.Sprintf("%s: %s", path, reason))
	}
}

// Decode returns one lazy, chronologically merged sequence over the given
// event-log files. Each per-file sequence is non-decreasing in timestamp
// (EVTX records are append-ordered), so the merge preserves global order.
// The sequence is single-pass; re-decode to iterate again.
func (d *Decoder) Decode(paths ...string) (stream.Seq, error) {
	seqs := make([]stream.Seq, 0, len(paths))
	for _, p := range paths {
		seq, err := d.DecodeFile(p)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return stream.Merge(seqs...), nil
}

// DecodeFile returns a lazy sequence over one file's records. The file handle
// is owned by the sequence and released when iteration finishes, including
// when the consumer stops early.
func (d *Decoder) DecodeFile(path string) (stream.Seq, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("evtx: %q: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("evtx: stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("evtx: %q: %w", path, model.ErrEmptyFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evtx: open %q: %w", path, err)
	}

	// Chunk enumeration validates the file header up front; record expansion
	// stays lazy, one chunk at a time.
	chunks, err := velocidex.GetChunks(f)
	if err != nil || len(chunks) == 0 {
		f.Close()
		if err == nil {
			err = fmt.Errorf("no chunks")
		}
		return nil, fmt.Errorf("evtx: parse %q: %w: %v", path, model.ErrInvalidFormat, err)
	}

	return func(yield func(model.EventRecord) bool) {
		defer f.Close()

		seqNo := uint64(0)
		for _, chunk := range chunks {
			records, err := chunk.Parse(int(chunk.Header.FirstEventRecID))
			if err != nil {
				d.warn(path, fmt.Sprintf("chunk parse failed: %v", err))
				continue
			}
			for _, raw := range records {
				seqNo++
				rec, err := d.mapRecord(raw, seqNo, path)
				if err != nil {
					d.warn(path, err.Error())
					continue
				}
				if !yield(rec) {
					return
				}
			}
		}
		slog.Debug("event log decoded", "path", path, "records", seqNo, "warnings", d.warnings)
	}, nil
}

// mapRecord maps one expanded record to an EventRecord, applying the field
// defaulting rules: provider "Unknown", event id 0, level Information,
// missing timestamp replaced with the current UTC instant.
func (d *Decoder) mapRecord(raw *velocidex.EventRecord, seqNo uint64, path string) (model.EventRecord, error) {
	eventMap, ok := raw.Event.(*ordereddict.Dict)
	if !ok {
		return model.EventRecord{}, fmt.Errorf("record %d: no expanded event body", seqNo)
	}
	event, ok := ordereddict.GetMap(eventMap, "Event")
	if !ok {
		event = eventMap
	}
	system, ok := ordereddict.GetMap(event, "System")
	if !ok {
		return model.EventRecord{}, fmt.Errorf("record %d: missing System element", seqNo)
	}

	source, ok := ordereddict.GetString(system, "Provider.Name")
	if !ok || source == "" {
		source = "Unknown"
	}

	eventID := 0
	if v, ok := ordereddict.GetAny(system, "EventID.Value"); ok {
		eventID = toInt(v)
	} else if v, ok := ordereddict.GetAny(system, "EventID"); ok {
		eventID = toInt(v)
	}

	level := model.LevelInformation
	if v, ok := ordereddict.GetAny(system, "Level"); ok {
		level = model.LevelFromCode(toInt(v))
	}

	ts := time.Now().UTC()
	if v, ok := ordereddict.GetAny(system, "TimeCreated.SystemTime"); ok {
		if parsed, ok := toTime(v); ok {
			ts = parsed.UTC()
		}
	}

	recordNumber := uint64(0)
	if v, ok := ordereddict.GetAny(system, "EventRecordID"); ok {
		recordNumber = uint64(toInt(v))
	}
	if recordNumber == 0 {
		recordNumber = raw.Header.RecordID
	}
	if recordNumber == 0 {
		recordNumber = seqNo
	}

	computer, _ := ordereddict.GetString(system, "Computer")
	userSID, _ := ordereddict.GetString(system, "Security.UserID")

	message, ok := ordereddict.GetString(event, "RenderingInfo.Message")
	if !ok || message == "" {
		message = eventDataMessage(event)
	}

	rec := model.EventRecord{
		RecordNumber: recordNumber,
		Timestamp:    ts,
		EventID:      eventID,
		Source:       source,
		Level:        level,
		Message:      message,
		FilePath:     path,
		ComputerName: computer,
		UserSID:      userSID,
	}
	if rec.Message == "" {
		rec.Message = fmt.Sprintf("Event ID %d", rec.EventID)
	}
	return rec, nil
}

// eventDataMessage joins the EventData values with ", ", covering the shapes
// the expander produces (named dict, plain list, single value).
func eventDataMessage(event *ordereddict.Dict) string {
	v, ok := ordereddict.GetAny(event, "EventData.Data")
	if !ok {
		if m, ok := ordereddict.GetMap(event, "EventData"); ok {
			return strings.Join(flattenValues(m), ", ")
		}
		return ""
	}
	return strings.Join(flattenValues(v), ", ")
}

func flattenValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case *ordereddict.Dict:
		var out []string
		for _, key := range val.Keys() {
			item, _ := val.Get(key)
			out = append(out, flattenValues(item)...)
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, flattenValues(item)...)
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{fmt.Sprintf("%v", val)}
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case uint32:
		return int(n)
	case float64:
		return int(n)
	case string:
		var parsed int
		fmt.Sscanf(n, "%d", &parsed)
		return parsed
	default:
		return 0
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec), true
	case int64:
		return time.Unix(t, 0), true
	case uint64:
		return time.Unix(int64(t), 0), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999 -0700 MST"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
