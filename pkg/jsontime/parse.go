package jsontime

import (
	"strconv"
	"time"
)

// ParseAny interprets a raw timestamp token as a time. It accepts
// RFC 3339 strings (quoted or not), zoneless "2006-01-02 15:04:05"
// strings read as UTC, and Unix millisecond counts, numeric string or
// not. Anything else yields the zero time, so one bad column never
// fails the enclosing row.
func ParseAny(raw string) time.Time {
	if raw == "" || raw == "null" {
		return time.Time{}
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	// Some rows carry "2026-08-25 10:30:00" without a zone; treat as UTC.
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UTC()
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	// Fractional millisecond counts show up from JSON number decoding.
	if fs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.UnixMilli(int64(fs))
	}
	return time.Time{}
}
