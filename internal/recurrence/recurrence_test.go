package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		anchor  time.Time
		want    time.Time
	}{
		{"daily", Daily, date(2026, time.June, 10, 8, 0), date(2026, time.June, 11, 8, 0)},
		{"daily across month end", Daily, date(2026, time.January, 31, 23, 30), date(2026, time.February, 1, 23, 30)},
		{"weekly", Weekly, date(2026, time.June, 10, 8, 0), date(2026, time.June, 17, 8, 0)},
		{"monthly plain", Monthly, date(2026, time.March, 15, 12, 0), date(2026, time.April, 15, 12, 0)},
		{"monthly clamps jan 31 to feb 28", Monthly, date(2026, time.January, 31, 9, 0), date(2026, time.February, 28, 9, 0)},
		{"monthly no drift after clamp", Monthly, date(2026, time.February, 28, 9, 0), date(2026, time.March, 28, 9, 0)},
		{"monthly clamps mar 31 to apr 30", Monthly, date(2026, time.March, 31, 9, 0), date(2026, time.April, 30, 9, 0)},
		{"monthly leap february", Monthly, date(2028, time.January, 31, 9, 0), date(2028, time.February, 29, 9, 0)},
		{"monthly year rollover", Monthly, date(2026, time.December, 15, 18, 45), date(2027, time.January, 15, 18, 45)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.pattern, tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextIsDeterministicAndStrictlyLater(t *testing.T) {
	anchor := date(2026, time.January, 31, 9, 0)
	for _, pattern := range []string{Daily, Weekly, Monthly} {
		first, err := Next(pattern, anchor)
		require.NoError(t, err)
		second, err := Next(pattern, anchor)
		require.NoError(t, err)
		assert.Equal(t, first, second, "pattern %s not deterministic", pattern)
		assert.True(t, first.After(anchor), "pattern %s did not advance", pattern)
	}
}

func TestNextInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"", "hourly", "biweekly", "MONTHLY"} {
		_, err := Next(pattern, date(2026, time.June, 10, 8, 0))
		assert.ErrorIs(t, err, ErrInvalidPattern, "pattern %q", pattern)
	}
}

func TestNextMissingAnchor(t *testing.T) {
	_, err := Next(Daily, time.Time{})
	assert.ErrorIs(t, err, ErrMissingAnchor)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Daily))
	assert.True(t, Valid(Weekly))
	assert.True(t, Valid(Monthly))
	assert.False(t, Valid("biweekly"))
	assert.False(t, Valid(""))
}
