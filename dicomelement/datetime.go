package dicomelement

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a parsed DA value: PS3.5 6.2's YYYYMMDD, with no time zone.
type Date struct {
	Year, Month, Day int
}

// ParseDate parses an 8-digit DA string. DICOM allows a legacy
// "YYYY.MM.DD" form; both are accepted.
func ParseDate(s string) (Date, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	if len(s) != 8 {
		return Date{}, fmt.Errorf("dicomelement.ParseDate: %q is not 8 digits", s)
	}
	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return Date{}, fmt.Errorf("dicomelement.ParseDate: %q: bad year: %w", s, err)
	}
	month, err := strconv.Atoi(s[4:6])
	if err != nil || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("dicomelement.ParseDate: %q: bad month", s)
	}
	day, err := strconv.Atoi(s[6:8])
	if err != nil || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("dicomelement.ParseDate: %q: bad day", s)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// Time is a parsed TM value: HH[MM[SS[.FFFFFF]]], each component optional
// to the right, per PS3.5 6.2.
type Time struct {
	Hour, Minute, Second int
	Fraction              float64 // sub-second fraction, always 0 <= f < 1
	Precision             int     // number of HH/MM/SS components present, 1-3
}

// ParseTime parses a TM value. The colon-separated HH:MM:SS form of old,
// non-conformant files is tolerated: every ":" is removed before parsing.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ":", "")
	if s == "" {
		return Time{}, fmt.Errorf("dicomelement.ParseTime: empty value")
	}
	var fracPart string
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		fracPart = s[idx+1:]
		s = s[:idx]
	}
	if len(s) != 2 && len(s) != 4 && len(s) != 6 {
		return Time{}, fmt.Errorf("dicomelement.ParseTime: %q has unexpected length", s)
	}
	hour, err := strconv.Atoi(s[0:2])
	if err != nil || hour < 0 || hour > 23 {
		return Time{}, fmt.Errorf("dicomelement.ParseTime: %q: bad hour", s)
	}
	t := Time{Hour: hour, Precision: 1}
	if len(s) >= 4 {
		minute, err := strconv.Atoi(s[2:4])
		if err != nil || minute < 0 || minute > 59 {
			return Time{}, fmt.Errorf("dicomelement.ParseTime: %q: bad minute", s)
		}
		t.Minute = minute
		t.Precision = 2
	}
	if len(s) == 6 {
		second, err := strconv.Atoi(s[4:6])
		if err != nil || second < 0 || second > 60 {
			return Time{}, fmt.Errorf("dicomelement.ParseTime: %q: bad second", s)
		}
		t.Second = second
		t.Precision = 3
	}
	if fracPart != "" {
		padded := (fracPart + "000000")[:6]
		frac, err := strconv.Atoi(padded)
		if err != nil {
			return Time{}, fmt.Errorf("dicomelement.ParseTime: %q: bad fraction", fracPart)
		}
		t.Fraction = float64(frac) / 1e6
	}
	return t, nil
}

// DateTime is a parsed DT value: a Date, an optional Time, and an optional
// UTC offset in minutes.
type DateTime struct {
	Date         Date
	Time         Time
	HasTime      bool
	OffsetMin    int
	HasOffset    bool
}

// ParseDateTime parses a DT value: YYYYMMDD[HH[MM[SS[.FFFFFF]]]][&ZZXX].
// The date part is always the full eight digits.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	var offsetPart string
	if idx := strings.IndexAny(s, "+-"); idx >= 8 {
		offsetPart = s[idx:]
		s = s[:idx]
	}
	if len(s) < 8 {
		return DateTime{}, fmt.Errorf("dicomelement.ParseDateTime: %q too short", s)
	}
	date, err := ParseDate(s[0:8])
	if err != nil {
		return DateTime{}, err
	}
	dt := DateTime{Date: date}
	if len(s) > 8 {
		tm, err := ParseTime(s[8:])
		if err != nil {
			return DateTime{}, err
		}
		dt.Time = tm
		dt.HasTime = true
	}
	if offsetPart != "" {
		if len(offsetPart) != 5 {
			return DateTime{}, fmt.Errorf("dicomelement.ParseDateTime: bad offset %q", offsetPart)
		}
		sign := 1
		if offsetPart[0] == '-' {
			sign = -1
		}
		hh, err1 := strconv.Atoi(offsetPart[1:3])
		mm, err2 := strconv.Atoi(offsetPart[3:5])
		if err1 != nil || err2 != nil {
			return DateTime{}, fmt.Errorf("dicomelement.ParseDateTime: bad offset %q", offsetPart)
		}
		dt.OffsetMin = sign * (hh*60 + mm)
		dt.HasOffset = true
	}
	return dt, nil
}

// ToTime converts a fully-specified DateTime to a stdlib time.Time, using
// UTC when no offset was present.
func (dt DateTime) ToTime() time.Time {
	loc := time.UTC
	if dt.HasOffset {
		loc = time.FixedZone("", dt.OffsetMin*60)
	}
	nanos := int(dt.Time.Fraction * 1e9)
	return time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, nanos, loc)
}
