package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		layout    string
		japanTime bool
		want      string
	}{
		{"hinatazaka layout with hour correction", "2024.3.5 18:30", "2006.1.2 15:04", true, "2024-03-05T17:30:00+08:00"},
		{"sakurazaka layout", "2024/03/05 18:30", "2006/01/02 15:04", false, "2024-03-05T18:30:00+08:00"},
		{"nogizaka layout with seconds", "2024/03/05 00:10:05", "2006/01/02 15:04:05", true, "2024-03-04T23:10:05+08:00"},
		{"bokuao day only", "2024.03.05", "2006.01.02", false, "2024-03-05T00:00:00+08:00"},
		{"falls back to known layouts", "2024/3/5", "2006.01.02", false, "2024-03-05T00:00:00+08:00"},
		{"surrounding whitespace", "\n 2024.03.05 \t", "2006.01.02", false, "2024-03-05T00:00:00+08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.value, tt.layout, tt.japanTime)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTimestampFailureIsZero(t *testing.T) {
	ts := ParseTimestamp("yesterday", "2006.01.02", false)
	assert.True(t, ts.IsZero())

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestTimestampOrderingPutsZeroFirst(t *testing.T) {
	zero := Timestamp{}
	real := ParseTimestamp("2019.02.11", "2006.01.02", false)
	assert.Equal(t, -1, zero.Compare(real))
	assert.Equal(t, 1, real.Compare(zero))
	assert.Equal(t, 0, real.Compare(real))
}

func TestParseCutoff(t *testing.T) {
	cutoff, err := ParseCutoff("20250315")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15T00:00:00+08:00", cutoff.Format(time.RFC3339))

	_, err = ParseCutoff("2025-03-15")
	assert.Error(t, err)
}

func TestPostSnapshotFormat(t *testing.T) {
	raw := `[{"Name":"金村美玖","Group":"Hinatazaka46","BlogList":[
		{"ID":"58123","Name":"金村美玖","Title":"おはよう","DateTime":"2024-03-05T17:30:00+08:00","ImageList":["/files/a.jpg"]},
		{"ID":"58124","Name":"金村美玖","Title":"","DateTime":null,"ImageList":[],"Content":"<p>hi</p>"}
	]}]`

	var members []Member
	require.NoError(t, json.Unmarshal([]byte(raw), &members))
	require.Len(t, members, 1)
	m := members[0]
	require.Len(t, m.Posts, 2)
	assert.Equal(t, "58123", m.Posts[0].ID)
	assert.Equal(t, 2024, m.Posts[0].Timestamp.Year())
	assert.True(t, m.Posts[1].Timestamp.IsZero())
	assert.Equal(t, "<p>hi</p>", m.Posts[1].Content)
	assert.Equal(t, 1, m.ImageCount())
	assert.Equal(t, "2024-03-05T17:30:00+08:00", m.Latest().String())

	out, err := json.Marshal(m.Posts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"ID":"58123","Name":"金村美玖","Title":"おはよう","DateTime":"2024-03-05T17:30:00+08:00","ImageList":["/files/a.jpg"]}`, string(out))
}

func TestTimestampRejectsNonString(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`12345`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`"not a time"`), &ts))
}

func TestStripSpace(t *testing.T) {
	assert.Equal(t, "金村美玖", StripSpace(" 金村 美玖\n"))
	assert.Equal(t, "金村美玖", StripSpace("金村　美玖"))
}

func TestPostIDFromPath(t *testing.T) {
	assert.Equal(t, "58123", PostIDFromPath("/s/official/diary/detail/58123"))
	assert.Equal(t, "58123", PostIDFromPath("/s/official/diary/detail/58123/"))
	assert.Equal(t, "abc", PostIDFromPath("abc"))
}
