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

package display

import (
	"fmt"

	"github.com/SegClockProject/segclock-core/pkg/bus"
)

// HT16K33 single-byte commands. Brightness and display setup carry
// their argument in the low bits of the command itself.
const (
	cmdSystemSetup  byte = 0x20
	oscillatorOn    byte = 0x01
	cmdDisplaySetup byte = 0x80
	displayOn       byte = 0x01
	cmdBrightness   byte = 0xE0

	bufferReg  byte = 0x00
	bufferSize      = 16
	colonRow        = 4
	colonBit   byte = 0x02
	dotSegment byte = 0x80
)

// Controller RAM rows backing each of the four digits, left to right.
// Row 4 between the middle digits drives the colon.
var digitRows = [4]int{0, 2, 6, 8}

// Segment patterns for the characters the clock renders. Anything not
// in the table displays blank.
var segments = map[rune]byte{
	' ': 0x00, '-': 0x40,
	'0': 0x3F, '1': 0x06, '2': 0x5B, '3': 0x4F, '4': 0x66,
	'5': 0x6D, '6': 0x7D, '7': 0x07, '8': 0x7F, '9': 0x6F,
	'A': 0x77, 'B': 0x7C, 'C': 0x39, 'D': 0x5E, 'E': 0x79,
	'F': 0x71, 'G': 0x3D, 'H': 0x76, 'I': 0x06, 'J': 0x1E,
	'L': 0x38, 'N': 0x37, 'O': 0x3F, 'P': 0x73, 'R': 0x50,
	'S': 0x6D, 'T': 0x78, 'U': 0x3E, 'Y': 0x6E,
}

// HT16K33 drives a 4-digit 7-segment unit behind an I2C backpack.
type HT16K33 struct {
	bus  bus.Register
	name string
	addr uint16
}

// NewHT16K33 wakes the controller at addr, turns the display on with
// blinking off, applies the brightness and blanks the digits.
func NewHT16K33(b bus.Register, name string, addr uint16, brightness uint8) (*HT16K33, error) {
	d := &HT16K33{bus: b, name: name, addr: addr}
	if err := d.command(cmdSystemSetup | oscillatorOn); err != nil {
		return nil, fmt.Errorf("display %s at 0x%02X: oscillator: %w", name, addr, err)
	}
	if err := d.command(cmdDisplaySetup | displayOn); err != nil {
		return nil, fmt.Errorf("display %s at 0x%02X: display setup: %w", name, addr, err)
	}
	if err := d.SetBrightness(brightness); err != nil {
		return nil, err
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *HT16K33) Name() string {
	return d.name
}

func (d *HT16K33) command(cmd byte) error {
	return d.bus.WriteReg(d.addr, cmd, nil)
}

func (d *HT16K33) SetBrightness(level uint8) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	if err := d.command(cmdBrightness | level); err != nil {
		return fmt.Errorf("display %s: set brightness: %w", d.name, err)
	}
	return nil
}

func (d *HT16K33) PrintText(text string, colon bool, dots uint8) error {
	var buf [bufferSize]byte

	runes := []rune(text)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	for i, r := range runes {
		seg := segments[r]
		if dots&(1<<i) != 0 {
			seg |= dotSegment
		}
		buf[digitRows[i]] = seg
	}
	if colon {
		buf[colonRow] = colonBit
	}

	if err := d.bus.WriteReg(d.addr, bufferReg, buf[:]); err != nil {
		return fmt.Errorf("display %s: write buffer: %w", d.name, err)
	}
	return nil
}

func (d *HT16K33) Clear() error {
	var buf [bufferSize]byte
	if err := d.bus.WriteReg(d.addr, bufferReg, buf[:]); err != nil {
		return fmt.Errorf("display %s: clear: %w", d.name, err)
	}
	return nil
}
