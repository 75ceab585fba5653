package models

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// SiteZone is the fixed UTC+8 offset every stored timestamp is encoded in
var SiteZone = time.FixedZone("UTC+8", 8*60*60)

// Layouts are the date formats the sites are known to publish
var Layouts = []string{
	"2006.1.2 15:04",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"2006/01/02 15:04",
	"2006.102",
}

// CutoffLayout is the compact day format accepted for cutoff arguments
const CutoffLayout = "20060102"

// Timestamp is a post time. The zero value means the source date could not
// be parsed; it serialises as null and sorts before every real time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, normalised to SiteZone
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.In(SiteZone)}
}

// ParseTimestamp reads a wall-clock value in SiteZone. layout is tried first,
// then every entry of Layouts. japanTime shifts the result back one hour.
// Unparsable input yields the zero Timestamp.
func ParseTimestamp(value, layout string, japanTime bool) Timestamp {
	value = strings.TrimSpace(value)
	if value == "" {
		return Timestamp{}
	}

	candidates := Layouts
	if layout != "" {
		candidates = append([]string{layout}, Layouts...)
	}
	for _, l := range candidates {
		t, err := time.ParseInLocation(l, value, SiteZone)
		if err != nil {
			continue
		}
		if japanTime {
			t = t.Add(-time.Hour)
		}
		return Timestamp{Time: t}
	}
	return Timestamp{}
}

// ParseCutoff parses a yyyyMMdd day as midnight in SiteZone
func ParseCutoff(value string) (time.Time, error) {
	t, err := time.ParseInLocation(CutoffLayout, strings.TrimSpace(value), SiteZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyyMMdd: %w", value, err)
	}
	return t, nil
}

// Compare orders timestamps, zero first
func (t Timestamp) Compare(o Timestamp) int {
	return t.Time.Compare(o.Time)
}

// String renders the time as RFC 3339 with the +08:00 offset
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.In(SiteZone).Format(time.RFC3339)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*t = Timestamp{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a string, got %s", data)
	}

	raw := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Some older snapshots carry fractional seconds
		parsed, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
	}
	*t = NewTimestamp(parsed)
	return nil
}
