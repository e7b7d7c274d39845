package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClockCalculator(t *testing.T) {
	start := time.Date(2025, 1, 10, 16, 0, 0, 0, time.UTC) // Friday 16:00
	got := WallClockCalculator{}.Add(start, 120)
	assert.Equal(t, start.Add(2*time.Hour), got)
}

func TestBusinessHoursCalculator(t *testing.T) {
	calc := NewBusinessHoursCalculator(8, 17)

	tests := []struct {
		name     string
		start    time.Time
		minutes  int
		wantDay  int
		wantHour int
	}{
		{
			name:     "inside working hours",
			start:    time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), // Monday 10:00
			minutes:  60,
			wantDay:  6,
			wantHour: 11,
		},
		{
			name:     "crosses end of day",
			start:    time.Date(2025, 1, 6, 16, 0, 0, 0, time.UTC), // Monday 16:00
			minutes:  120,
			wantDay:  7,
			wantHour: 9,
		},
		{
			name:     "crosses the weekend",
			start:    time.Date(2025, 1, 10, 16, 0, 0, 0, time.UTC), // Friday 16:00
			minutes:  120,
			wantDay:  13, // Monday
			wantHour: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Add(tt.start, tt.minutes)
			assert.Equal(t, tt.wantDay, got.Day())
			assert.Equal(t, tt.wantHour, got.Hour())
		})
	}
}
