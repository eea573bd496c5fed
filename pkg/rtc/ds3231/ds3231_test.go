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

package ds3231

import (
	"testing"

	"github.com/SegClockProject/segclock-core/pkg/bus"
	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/rtc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProbe(t *testing.T) {
	t.Parallel()

	t.Run("device present", func(t *testing.T) {
		t.Parallel()
		d, err := Probe(bus.NewMemBus(Addr, 0x70))
		require.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("device absent", func(t *testing.T) {
		t.Parallel()
		_, err := Probe(bus.NewMemBus(0x70))
		require.ErrorIs(t, err, rtc.ErrNotPresent)
	})
}

// Round-tripping any valid civil time through the register codec must return
// the identical 6-tuple.
func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	d := New(bus.NewMemBus(Addr))

	rapid.Check(t, func(t *rapid.T) {
		ct := civil.Time{
			Year:   rapid.IntRange(2000, 2099).Draw(t, "year"),
			Month:  rapid.IntRange(1, 12).Draw(t, "month"),
			Hour:   rapid.IntRange(0, 23).Draw(t, "hour"),
			Minute: rapid.IntRange(0, 59).Draw(t, "minute"),
			Second: rapid.IntRange(0, 59).Draw(t, "second"),
		}
		ct.Day = rapid.IntRange(1, civil.DaysIn(ct.Year, ct.Month)).Draw(t, "day")

		require.NoError(t, d.SetTime(ct))
		got, err := d.GetTime()
		require.NoError(t, err)
		require.Equal(t, ct, got)
	})
}

func TestSetTimeRejectsInvalid(t *testing.T) {
	t.Parallel()

	d := New(bus.NewMemBus(Addr))

	assert.Error(t, d.SetTime(civil.Time{Year: 2025, Month: 13, Day: 1}))
	assert.Error(t, d.SetTime(civil.Time{Year: 1999, Month: 1, Day: 1}))
	assert.Error(t, d.SetTime(civil.Time{Year: 2100, Month: 1, Day: 1}))
}

func TestGetTimeDeviceFault(t *testing.T) {
	t.Parallel()

	mb := bus.NewMemBus(Addr)
	d := New(mb)

	mb.FailNext = true
	_, err := d.GetTime()
	require.ErrorIs(t, err, rtc.ErrDeviceFault)
}

func TestSelfTest(t *testing.T) {
	t.Parallel()

	d := New(bus.NewMemBus(Addr))
	require.NoError(t, d.SelfTest())
}

func TestTemperature(t *testing.T) {
	t.Parallel()

	mb := bus.NewMemBus(Addr)
	d := New(mb)

	// 25.75C: MSB 25, LSB top bits 0b11.
	require.NoError(t, mb.WriteReg(Addr, regTempMSB, []byte{25, 0b1100_0000}))
	temp, err := d.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 25.75, temp, 0.001)
}
