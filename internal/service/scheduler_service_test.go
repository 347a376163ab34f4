package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailySpec(t *testing.T) {
	spec, err := dailySpec("09:15")
	assert.NoError(t, err)
	assert.Equal(t, "0 15 9 * * *", spec)

	for _, bad := range []string{"", "9", "24:00", "12:60", "aa:bb"} {
		_, err := dailySpec(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEveryRejectsTooShortInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	for _, d := range []time.Duration{0, -time.Second, 500 * time.Millisecond} {
		_, err := s.Every(d, func() {})
		assert.Error(t, err, "interval %s", d)
	}
}
