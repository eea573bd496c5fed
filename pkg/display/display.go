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

// Package display defines the narrow contract the clock loop renders
// through, plus the HT16K33 segment driver and a virtual display for
// running without hardware.
package display

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Slot names for the display set, keyed by what each unit shows.
const (
	SlotHourMinute = "hour_minute"
	SlotSeconds    = "seconds"
	SlotDayMonth   = "day_month"
	SlotYear       = "year"
	SlotStatus     = "status"
)

// Slots lists every slot name in render order.
func Slots() []string {
	return []string{SlotHourMinute, SlotSeconds, SlotDayMonth, SlotYear, SlotStatus}
}

// Display is a single 4-digit unit. dots is a 4-bit mask of decimal
// points, bit 0 the leftmost digit. Text longer than 4 runes is
// truncated and unsupported runes render blank.
type Display interface {
	PrintText(text string, colon bool, dots uint8) error
	Clear() error
	SetBrightness(level uint8) error
	Name() string
}

// MaxBrightness is the top duty-cycle step of the HT16K33.
const MaxBrightness uint8 = 15

// BrightnessCycle steps the whole display set through off, the
// configured level, and full brightness.
type BrightnessCycle struct {
	configured uint8
	state      int
}

func NewBrightnessCycle(configured uint8) *BrightnessCycle {
	if configured > MaxBrightness {
		configured = MaxBrightness
	}
	return &BrightnessCycle{configured: configured, state: 1}
}

// Next advances the cycle and returns the level to apply.
func (c *BrightnessCycle) Next() uint8 {
	c.state = (c.state + 1) % 3
	switch c.state {
	case 0:
		return 0
	case 1:
		return c.configured
	default:
		return MaxBrightness
	}
}

// Level returns the current level without advancing.
func (c *BrightnessCycle) Level() uint8 {
	switch c.state {
	case 0:
		return 0
	case 1:
		return c.configured
	default:
		return MaxBrightness
	}
}

// TestRegistry pauses the clock refresh loop while a display test owns
// the bus.
type TestRegistry interface {
	RegisterTest(id string)
	UnregisterTest(id string)
}

const testStepDelay = 20 * time.Millisecond

// RunTest cycles every hex character across all four digits of d,
// toggling the colon between characters. The clock loop is paused for
// the duration and the display is always cleared afterwards, even when
// a step fails partway.
func RunTest(d Display, reg TestRegistry, clock clockwork.Clock) {
	id := "display-test-" + d.Name()
	log.Info().Msgf("running display test on %s", d.Name())
	reg.RegisterTest(id)
	defer func() {
		if err := d.Clear(); err != nil {
			log.Error().Err(err).Msgf("failed to clear %s after display test", d.Name())
		}
		reg.UnregisterTest(id)
		log.Info().Msgf("display test completed on %s", d.Name())
	}()

	colon := false
	for _, ch := range "0123456789ABCDEF" {
		text := string([]rune{ch, ch, ch, ch})
		if err := d.PrintText(text, colon, 0); err != nil {
			log.Error().Err(err).Msgf("error during display test on %s", d.Name())
			return
		}
		colon = !colon
		clock.Sleep(testStepDelay)
	}
}
