package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Time decodes the timestamp formats the upstream emits: RFC 3339, local
// date-times with a T or a space separator, and epoch milliseconds.
// Local date-times are interpreted in time.Local.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseTime(s string) (Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Time{t}, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Time{time.UnixMilli(ms)}, true
	}
	return Time{}, false
}

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, _ := ParseTime(s)
		*t = parsed
		return nil
	}
	// Jackson array form: [2024,1,31,10,0,0]
	if b[0] == '[' {
		var parts []int
		if err := json.Unmarshal(b, &parts); err != nil || len(parts) < 3 {
			*t = Time{}
			return nil
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		*t = Time{time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.Local)}
		return nil
	}
	parsed, _ := ParseTime(string(b))
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Display renders t as "date", "time" or "datetime" (the default).
// A zero time renders as "-".
func (t Time) Display(kind string) string {
	if t.IsZero() {
		return "-"
	}
	switch kind {
	case "date":
		return t.Time.Format("2006-01-02")
	case "time":
		return t.Time.Format("15:04:05")
	default:
		return t.Time.Format("2006-01-02 15:04:05")
	}
}
