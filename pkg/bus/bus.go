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

// Package bus provides the register-level contract for the single I2C
// peripheral bus shared by the display set and the external RTC, plus the
// lock that serializes multi-device transactions on it.
package bus

import "github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"

// Register is the register-mapped device access every bus peripheral driver
// consumes. Individual calls are single bus transactions; callers that need
// several transactions to appear atomic (e.g. updating all four displays for
// one time tick) must hold the shared Lock for the whole sequence.
type Register interface {
	// ReadReg fills buf with consecutive registers starting at reg.
	ReadReg(addr uint16, reg byte, buf []byte) error
	// WriteReg writes data to consecutive registers starting at reg.
	WriteReg(addr uint16, reg byte, data []byte) error
	// Scan probes the bus and returns the addresses of responding devices.
	Scan() ([]uint16, error)
	// Close releases the underlying bus handle.
	Close() error
}

// Lock is the mutual exclusion token for the physical bus. A single instance
// is shared between the display refresh loop and any cooperative-side task
// that touches the bus (display self tests, brightness changes).
type Lock struct {
	syncutil.Mutex
}
