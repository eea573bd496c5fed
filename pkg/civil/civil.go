// SegClock Core
// Copyright (c) 2026 The SegClock Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SegClock Core.
//
// SegClock Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SegClock Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SegClock Core.  If not, see <http://www.gnu.org/licenses/>.

// Package civil defines the zone-free calendar time value exchanged between
// time sources, the arbiter and the display scheduler. It is deliberately not
// time.Time: the RTC register codecs and the display formatter operate on the
// plain 6-field tuple the devices store, with no zone or monotonic state.
package civil

import (
	"fmt"
	"time"
)

// Time is a calendar date and wall-clock time with no timezone attached.
// Whether it holds UTC or a pre-localized value is up to whichever source
// produced it.
type Time struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Stamp is the raw payload delivered to time sync callbacks. Weekday is
// 0=Monday..6=Sunday and YearDay is 1-based, matching the network time
// decode.
type Stamp struct {
	Time
	Weekday int
	YearDay int
}

// DaysIn returns the number of days in the given month, accounting for leap
// years. Months outside [1,12] return 0.
func DaysIn(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// Validate checks all fields are within calendar range.
func (t Time) Validate() error {
	if t.Month < 1 || t.Month > 12 {
		return fmt.Errorf("month out of range: %d", t.Month)
	}
	if t.Day < 1 || t.Day > DaysIn(t.Year, t.Month) {
		return fmt.Errorf("day out of range for %d-%02d: %d", t.Year, t.Month, t.Day)
	}
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("hour out of range: %d", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("minute out of range: %d", t.Minute)
	}
	if t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("second out of range: %d", t.Second)
	}
	return nil
}

// IsZero reports whether t is the zero value.
func (t Time) IsZero() bool {
	return t == Time{}
}

func (t Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// Std converts t to a time.Time in UTC.
func (t Time) Std() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// FromStd truncates a time.Time to a civil Time, dropping sub-second
// precision and location.
func FromStd(t time.Time) Time {
	return Time{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// StampFromStd builds the full callback payload from a time.Time.
func StampFromStd(t time.Time) Stamp {
	// time.Weekday is 0=Sunday; the callback contract uses 0=Monday.
	wd := (int(t.Weekday()) + 6) % 7
	return Stamp{
		Time:    FromStd(t),
		Weekday: wd,
		YearDay: t.YearDay(),
	}
}
