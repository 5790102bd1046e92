package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdvisoryDuration_GoDialect(t *testing.T) {
	d, err := ParseAdvisoryDuration("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	d, err = ParseAdvisoryDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)
}

func TestParseAdvisoryDuration_ISO8601(t *testing.T) {
	cases := map[string]time.Duration{
		"P7D":    7 * 24 * time.Hour,
		"P2W":    14 * 24 * time.Hour,
		"PT12H":  12 * time.Hour,
		"P1DT6H": 30 * time.Hour,
		"p3d":    3 * 24 * time.Hour,
		"PT90M":  90 * time.Minute,
	}
	for input, want := range cases {
		d, err := ParseAdvisoryDuration(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, d, "input %q", input)
	}
}

func TestParseAdvisoryDuration_Human(t *testing.T) {
	cases := map[string]time.Duration{
		"7 days":     7 * 24 * time.Hour,
		"1 day":      24 * time.Hour,
		"2 weeks":    14 * 24 * time.Hour,
		"36 hours":   36 * time.Hour,
		"90 minutes": 90 * time.Minute,
	}
	for input, want := range cases {
		d, err := ParseAdvisoryDuration(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, d, "input %q", input)
	}
}

func TestParseAdvisoryDuration_Unparseable(t *testing.T) {
	for _, input := range []string{
		"",
		"soon",
		"next week sometime",
		"P",
		"PD",
		"7 fortnights",
		"-3 days",
		"0 days",
		"-5h",
	} {
		_, err := ParseAdvisoryDuration(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, ErrUnparseableDuration, "input %q", input)
	}
}
