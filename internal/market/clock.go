// Package market provides the trading-region clock and market calendar.
package market

import (
	"time"
)

// DefaultTimezone is the trading region's IANA timezone.
const DefaultTimezone = "Asia/Kolkata"

// istOffset is the fixed IST offset used when tzdata is unavailable
// (minimal containers).
const istOffset = 5*60*60 + 30*60

// holidays maps month-day (MM-DD) to the exchange holiday name.
// Weekly expiries never land on these dates, so a date match means the
// market is closed for the whole session.
var holidays = map[string]string{
	"01-26": "Republic Day",
	"08-15": "Independence Day",
	"10-02": "Gandhi Jayanti",
	"12-25": "Christmas",
}

// Clock reports the current time in the trading region's local timezone.
type Clock struct {
	loc *time.Location
}

// NewClock creates a clock for the given IANA timezone. An unloadable
// timezone falls back to a fixed IST offset rather than failing.
func NewClock(timezone string) *Clock {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.FixedZone("IST", istOffset)
	}
	return &Clock{loc: loc}
}

// Now returns the current wall-clock time in the trading region.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the trading region's location for date arithmetic.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// HolidayName returns the holiday name for t's date, if it is a recognized
// market holiday.
func HolidayName(t time.Time) (string, bool) {
	name, ok := holidays[t.Format("01-02")]
	return name, ok
}

// IsTradingDay returns false on weekends and recognized market holidays.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := HolidayName(t)
	return !holiday
}

// NextWeeklyExpiry returns the next weekly option expiry (Thursday) on or
// after t. When t is a Thursday after the session close, the following
// Thursday is used.
func NextWeeklyExpiry(t time.Time) time.Time {
	daysToThursday := (int(time.Thursday) - int(t.Weekday()) + 7) % 7
	if daysToThursday == 0 {
		if t.Hour() > 15 || (t.Hour() == 15 && t.Minute() >= 30) {
			daysToThursday = 7
		}
	}
	expiry := t.AddDate(0, 0, daysToThursday)
	return time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 15, 30, 0, 0, t.Location())
}
