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

import "github.com/rs/zerolog/log"

// Virtual is a Display that writes to the debug log instead of
// hardware, for running the service on a machine with no I2C bus.
type Virtual struct {
	name string
}

func NewVirtual(name string) *Virtual {
	return &Virtual{name: name}
}

func (v *Virtual) Name() string {
	return v.name
}

func (v *Virtual) PrintText(text string, colon bool, dots uint8) error {
	log.Debug().
		Str("display", v.name).
		Bool("colon", colon).
		Uint8("dots", dots).
		Msg(text)
	return nil
}

func (v *Virtual) Clear() error {
	log.Debug().Str("display", v.name).Msg("clear")
	return nil
}

func (v *Virtual) SetBrightness(level uint8) error {
	log.Debug().Str("display", v.name).Uint8("level", level).Msg("set brightness")
	return nil
}
