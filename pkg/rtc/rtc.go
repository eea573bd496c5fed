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

// Package rtc defines the uniform get/set-time contract implemented by the
// concrete clock back-ends: the battery-backed external module and the
// controller's own volatile clock.
package rtc

import (
	"errors"

	"github.com/SegClockProject/segclock-core/pkg/civil"
)

// ErrDeviceFault marks a bus-level failure talking to a clock device.
// Callers holding a selection of devices may re-select and retry once.
var ErrDeviceFault = errors.New("rtc device fault")

// ErrNotPresent is returned by presence probes when no device answers at the
// expected bus address.
var ErrNotPresent = errors.New("rtc device not present")

// Device is a continuously queryable clock.
type Device interface {
	GetTime() (civil.Time, error)
	SetTime(civil.Time) error
}
