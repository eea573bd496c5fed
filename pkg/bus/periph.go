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

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// 7-bit address space reserved ranges are skipped during scans.
const (
	scanFirstAddr uint16 = 0x08
	scanLastAddr  uint16 = 0x77
)

type periphBus struct {
	bus i2c.BusCloser
}

// Open initializes the host drivers and opens the named I2C bus via periph.
// An empty name selects the first available bus; a non-zero frequency in Hz
// is applied with SetSpeed where the adapter supports it.
func Open(name string, frequency int) (Register, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	log.Info().Msgf("opened i2c bus: %s", b.String())

	if frequency > 0 {
		f := physic.Frequency(frequency) * physic.Hertz
		if err := b.SetSpeed(f); err != nil {
			log.Warn().Err(err).Msgf("i2c bus does not accept %s", f)
		}
	}

	return &periphBus{bus: b}, nil
}

func (p *periphBus) ReadReg(addr uint16, reg byte, buf []byte) error {
	dev := i2c.Dev{Bus: p.bus, Addr: addr}
	if err := dev.Tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("i2c read 0x%02X reg 0x%02X: %w", addr, reg, err)
	}
	return nil
}

func (p *periphBus) WriteReg(addr uint16, reg byte, data []byte) error {
	dev := i2c.Dev{Bus: p.bus, Addr: addr}
	w := make([]byte, 0, len(data)+1)
	w = append(w, reg)
	w = append(w, data...)
	if err := dev.Tx(w, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X reg 0x%02X: %w", addr, reg, err)
	}
	return nil
}

func (p *periphBus) Scan() ([]uint16, error) {
	var found []uint16
	for addr := scanFirstAddr; addr <= scanLastAddr; addr++ {
		dev := i2c.Dev{Bus: p.bus, Addr: addr}
		// A zero-length write is acked only by a present device.
		if err := dev.Tx([]byte{}, nil); err == nil {
			found = append(found, addr)
		}
	}
	return found, nil
}

func (p *periphBus) Close() error {
	if err := p.bus.Close(); err != nil {
		return fmt.Errorf("failed to close i2c bus: %w", err)
	}
	return nil
}
