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

// Package ds3231 drives the DS3231 battery-backed RTC over the shared
// register bus.
package ds3231

import (
	"fmt"

	"github.com/SegClockProject/segclock-core/pkg/bus"
	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/rtc"
	"github.com/rs/zerolog/log"
)

// Addr is the fixed, well-known bus address of the DS3231.
const Addr uint16 = 0x68

// Register map.
const (
	regSeconds     byte = 0x00
	regMinutes     byte = 0x01
	regHours       byte = 0x02
	regDay         byte = 0x03
	regDate        byte = 0x04
	regMonth       byte = 0x05
	regYear        byte = 0x06
	regControl     byte = 0x0E
	regStatus      byte = 0x0F
	regAgingOffset byte = 0x10
	regTempMSB     byte = 0x11
	regTempLSB     byte = 0x12
)

// The device stores two-digit years.
const yearBase = 2000

// DS3231 is an rtc.Device backed by the external module. The time registers
// are read and written as a single 7-byte bus transaction, so no shared bus
// lock is held across calls.
type DS3231 struct {
	bus bus.Register
}

// Probe scans the bus for a device at the well-known address and returns a
// driver for it. Returns rtc.ErrNotPresent when nothing answers.
func Probe(b bus.Register) (*DS3231, error) {
	addrs, err := b.Scan()
	if err != nil {
		return nil, fmt.Errorf("bus scan failed: %w", err)
	}
	for _, a := range addrs {
		if a == Addr {
			return &DS3231{bus: b}, nil
		}
	}
	return nil, rtc.ErrNotPresent
}

// New creates a driver without probing. Used when the device is known to be
// present.
func New(b bus.Register) *DS3231 {
	return &DS3231{bus: b}
}

// SelfTest writes a fixed time, reads it back and restores nothing: it is
// intended for first-boot hardware validation before real time is set.
func (d *DS3231) SelfTest() error {
	testTime := civil.Time{Year: 2024, Month: 1, Day: 12, Hour: 21, Minute: 22, Second: 23}
	if err := d.SetTime(testTime); err != nil {
		return fmt.Errorf("self test write failed: %w", err)
	}
	got, err := d.GetTime()
	if err != nil {
		return fmt.Errorf("self test read failed: %w", err)
	}
	if got != testTime {
		return fmt.Errorf("self test mismatch: wrote %s, read %s", testTime, got)
	}
	log.Info().Msg("ds3231 read/write self test passed")
	return nil
}

func (d *DS3231) GetTime() (civil.Time, error) {
	buf := make([]byte, 7)
	if err := d.bus.ReadReg(Addr, regSeconds, buf); err != nil {
		return civil.Time{}, fmt.Errorf("%w: %w", rtc.ErrDeviceFault, err)
	}
	return civil.Time{
		Second: bcdToDec(buf[0] & 0x7F),
		Minute: bcdToDec(buf[1] & 0x7F),
		// 24-hour format assumed; the 12-hour flag is never set by this
		// driver.
		Hour:  bcdToDec(buf[2] & 0x3F),
		Day:   bcdToDec(buf[4] & 0x3F),
		Month: bcdToDec(buf[5] & 0x1F),
		Year:  bcdToDec(buf[6]) + yearBase,
	}, nil
}

func (d *DS3231) SetTime(t civil.Time) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid time for ds3231: %w", err)
	}
	if t.Year < yearBase || t.Year > yearBase+99 {
		return fmt.Errorf("year out of device range [%d,%d]: %d", yearBase, yearBase+99, t.Year)
	}
	data := []byte{
		decToBCD(t.Second),
		decToBCD(t.Minute),
		decToBCD(t.Hour), // 24-hour format
		0,                // day of week unused
		decToBCD(t.Day),
		decToBCD(t.Month),
		decToBCD(t.Year - yearBase),
	}
	if err := d.bus.WriteReg(Addr, regSeconds, data); err != nil {
		return fmt.Errorf("%w: %w", rtc.ErrDeviceFault, err)
	}
	return nil
}

// Temperature returns the die temperature in degrees Celsius, resolution
// 0.25C.
func (d *DS3231) Temperature() (float64, error) {
	buf := make([]byte, 2)
	if err := d.bus.ReadReg(Addr, regTempMSB, buf); err != nil {
		return 0, fmt.Errorf("%w: %w", rtc.ErrDeviceFault, err)
	}
	whole := int8(buf[0])
	frac := float64(buf[1]>>6) * 0.25
	if whole < 0 {
		return float64(whole) - frac, nil
	}
	return float64(whole) + frac, nil
}

func bcdToDec(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func decToBCD(d int) byte {
	return byte((d/10)<<4 | d%10)
}
