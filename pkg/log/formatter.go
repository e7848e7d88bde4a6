package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TextFormatter renders entries as a human-readable single line:
//
//	2006-01-02T15:04:05.000Z | INFO | message | k=v k=v
type TextFormatter struct {
	// DisableTimestamp omits the leading timestamp, useful in tests.
	DisableTimestamp bool
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if !f.DisableTimestamp {
		ts := entry.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		buf.WriteString(ts.UTC().Format("2006-01-02T15:04:05.000Z"))
		buf.WriteString(" | ")
	}
	buf.WriteString(entry.Level.String())
	buf.WriteString(" | ")
	buf.WriteString(entry.Message)
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// JSONFormatter renders entries as single-line JSON objects.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		m[k] = v
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	m["ts"] = ts.UTC().Format(time.RFC3339Nano)
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
