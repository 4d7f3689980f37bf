package market

import (
	"testing"
	"time"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.FixedZone("IST", istOffset)
	}
	return loc
}

func TestIsTradingDay(t *testing.T) {
	loc := ist(t)
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"monday", time.Date(2025, 9, 1, 10, 0, 0, 0, loc), true},
		{"saturday", time.Date(2025, 9, 6, 10, 0, 0, 0, loc), false},
		{"sunday", time.Date(2025, 9, 7, 10, 0, 0, 0, loc), false},
		{"republic day", time.Date(2026, 1, 26, 10, 0, 0, 0, loc), false},
		{"independence day", time.Date(2025, 8, 15, 10, 0, 0, 0, loc), false},
		{"gandhi jayanti", time.Date(2025, 10, 2, 10, 0, 0, 0, loc), false},
		{"christmas", time.Date(2025, 12, 25, 10, 0, 0, 0, loc), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTradingDay(tt.date); got != tt.want {
				t.Errorf("IsTradingDay(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestHolidayName(t *testing.T) {
	loc := ist(t)

	name, ok := HolidayName(time.Date(2026, 1, 26, 9, 0, 0, 0, loc))
	if !ok || name != "Republic Day" {
		t.Errorf("HolidayName(Jan 26) = %q, %v; want Republic Day, true", name, ok)
	}

	if _, ok := HolidayName(time.Date(2026, 3, 3, 9, 0, 0, 0, loc)); ok {
		t.Error("HolidayName(Mar 3) reported a holiday on a regular trading day")
	}
}

func TestNextWeeklyExpiry(t *testing.T) {
	loc := ist(t)
	tests := []struct {
		name    string
		now     time.Time
		wantDay time.Time
	}{
		{
			"monday rolls to same-week thursday",
			time.Date(2025, 9, 1, 10, 0, 0, 0, loc),
			time.Date(2025, 9, 4, 15, 30, 0, 0, loc),
		},
		{
			"thursday before close keeps today",
			time.Date(2025, 9, 4, 10, 0, 0, 0, loc),
			time.Date(2025, 9, 4, 15, 30, 0, 0, loc),
		},
		{
			"thursday after close rolls a week",
			time.Date(2025, 9, 4, 15, 45, 0, 0, loc),
			time.Date(2025, 9, 11, 15, 30, 0, 0, loc),
		},
		{
			"friday rolls to next thursday",
			time.Date(2025, 9, 5, 10, 0, 0, 0, loc),
			time.Date(2025, 9, 11, 15, 30, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeeklyExpiry(tt.now)
			if !got.Equal(tt.wantDay) {
				t.Errorf("NextWeeklyExpiry(%s) = %s, want %s",
					tt.now.Format(time.RFC3339), got.Format(time.RFC3339), tt.wantDay.Format(time.RFC3339))
			}
		})
	}
}

func TestNewClockFallsBackToIST(t *testing.T) {
	c := NewClock("Not/AZone")
	_, offset := c.Now().Zone()
	if offset != istOffset {
		t.Errorf("fallback zone offset = %d, want %d", offset, istOffset)
	}
}
