package compliance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire and storage format of a calendar day.
const DayLayout = "20060102"

const secondsPerDay = 24 * 60 * 60

// Day is a calendar day with no time-of-day or zone, counted as days since 1970-01-01.
// Days compare with the ordinary integer operators and are usable as map keys.
type Day int32

// DayOf returns the calendar day of t as seen in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// NewDay builds a Day from civil date parts. Out-of-range parts normalise the way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	return Day(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// ParseDay parses an 8-digit YYYYMMDD string.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DayLayout) {
		return 0, fmt.Errorf("invalid day %q: want YYYYMMDD", s)
	}
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// ParseDayLoose accepts YYYYMMDD as well as the ISO YYYY-MM-DD form browsers send from date inputs.
func ParseDayLoose(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("2006-01-02") {
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return 0, fmt.Errorf("invalid day %q: %w", s, err)
		}
		return DayOf(t), nil
	}
	return ParseDay(s)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(DayLayout)
}

// AddDays returns the day n days later (earlier when n is negative).
func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// DaysSince returns d - other in whole days.
func (d Day) DaysSince(other Day) int {
	return int(d - other)
}

// MinDay returns the earlier of two days.
func MinDay(a, b Day) Day {
	if a < b {
		return a
	}
	return b
}

// MarshalJSON encodes the day as a YYYYMMDD string.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYYMMDD or YYYY-MM-DD strings.
func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("day must be a string: %w", err)
	}
	parsed, err := ParseDayLoose(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the day as its YYYYMMDD string so columns sort chronologically.
func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan reads a YYYYMMDD string column, or a DATE column surfaced as time.Time.
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDay(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	case time.Time:
		*d = DayOf(v)
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
	return nil
}
