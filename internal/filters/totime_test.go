package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTime(t *testing.T) {
	want := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	ptr := want

	tests := []struct {
		name string
		in   any
	}{
		{"time", want},
		{"pointer", &ptr},
		{"rfc3339", "2024-01-15T00:00:00Z"},
		{"rfc3339 offset", "2024-01-15T01:00:00+01:00"},
		{"local datetime", "2024-01-15T00:00:00"},
		{"space datetime", "2024-01-15 00:00:00"},
		{"date only", "2024-01-15"},
		{"padded", "  2024-01-15\n"},
		{"unix int", int(want.Unix())},
		{"unix int64", want.Unix()},
		{"unix float", float64(want.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTime(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %v", got)
		})
	}
}

func TestToTime_Rejects(t *testing.T) {
	var nilTime *time.Time
	for _, in := range []any{nil, nilTime, "", "15/01/2024", true, 1.25, []string{"2024-01-15"}} {
		_, err := ToTime(in)
		assert.Error(t, err, "%#v", in)
	}
}
