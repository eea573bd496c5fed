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

package bus

import (
	"fmt"

	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
)

// MemBus is an in-memory Register implementation backed by a register map
// per device address. It is used by driver tests and by development builds
// running without hardware attached.
type MemBus struct {
	devices map[uint16][256]byte
	// FailNext forces the next transaction to return an error, for fault
	// injection in retry-path tests.
	FailNext bool
	writes   int
	mu       syncutil.Mutex
}

// NewMemBus creates a bus with devices present at the given addresses.
func NewMemBus(addrs ...uint16) *MemBus {
	devs := make(map[uint16][256]byte, len(addrs))
	for _, a := range addrs {
		devs[a] = [256]byte{}
	}
	return &MemBus{devices: devs}
}

func (m *MemBus) failNextLocked() error {
	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("injected bus fault")
	}
	return nil
}

func (m *MemBus) ReadReg(addr uint16, reg byte, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNextLocked(); err != nil {
		return err
	}
	dev, ok := m.devices[addr]
	if !ok {
		return fmt.Errorf("no device at address 0x%02X", addr)
	}
	for i := range buf {
		buf[i] = dev[(int(reg)+i)%256]
	}
	return nil
}

func (m *MemBus) WriteReg(addr uint16, reg byte, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNextLocked(); err != nil {
		return err
	}
	dev, ok := m.devices[addr]
	if !ok {
		return fmt.Errorf("no device at address 0x%02X", addr)
	}
	for i, b := range data {
		dev[(int(reg)+i)%256] = b
	}
	m.devices[addr] = dev
	m.writes++
	return nil
}

func (m *MemBus) Scan() ([]uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	addrs := make([]uint16, 0, len(m.devices))
	for a := range m.devices {
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func (m *MemBus) Close() error {
	return nil
}

// Writes returns the number of write transactions issued so far.
func (m *MemBus) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
