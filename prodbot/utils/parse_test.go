package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "5m", want: 5 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: " 10M ", want: 10 * time.Minute},
		{in: "0m", wantErr: true},
		{in: "5w", wantErr: true},
		{in: "m5", wantErr: true},
		{in: "", wantErr: true},
		{in: "5m30s", wantErr: true},
		{in: "999999999999d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	got, err := ParseDateTime("25/12/2030", "18:30", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, time.December, 25, 18, 30, 0, 0, loc), got)

	got, err = ParseDateTime("1/2/2030", "", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, time.February, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range [][2]string{
		{"31/02/2030", ""},
		{"2030-12-25", ""},
		{"25/12/2030", "24:00"},
		{"25/12/2030", "12:60"},
		{"25/12/2030", "noon"},
	} {
		_, err := ParseDateTime(bad[0], bad[1], time.UTC)
		assert.Error(t, err, "date=%s time=%s", bad[0], bad[1])
	}
}

func TestSplitOptions(t *testing.T) {
	assert.Equal(t, []string{"Pizza", "Sushi", "Tacos"}, SplitOptions(" Pizza | Sushi ||Tacos|"))
	assert.Empty(t, SplitOptions(" | "))
}
