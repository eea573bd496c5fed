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

// Package timesource arbitrates among the known time sources and exposes a
// single coherent current-time value backed by the best available clock.
package timesource

import "fmt"

// Kind identifies a time source. The set is closed and fixed; sources are
// dispatched explicitly by the arbiter rather than through an interface
// hierarchy, since the set is small and safety-critical.
type Kind int

const (
	// Satellite is reserved: it ranks highest but has no implementation.
	Satellite Kind = iota
	// NetworkTime is a momentary sync event, not a queryable clock; its
	// flag promotes trust in the RTCs and feeds the status display.
	NetworkTime
	// ExternalRTC is the battery-backed module on the peripheral bus.
	ExternalRTC
	// InternalRTC is the controller's own volatile clock.
	InternalRTC
)

const kindCount = 4

// Label is the short display name shown on the status display.
func (k Kind) Label() string {
	switch k {
	case Satellite:
		return "GPS"
	case NetworkTime:
		return "NTP"
	case ExternalRTC:
		return "RTC"
	case InternalRTC:
		return "PRTC"
	default:
		return "?"
	}
}

func (k Kind) String() string {
	switch k {
	case Satellite:
		return "satellite"
	case NetworkTime:
		return "network time"
	case ExternalRTC:
		return "external rtc"
	case InternalRTC:
		return "internal rtc"
	default:
		return fmt.Sprintf("unknown kind %d", int(k))
	}
}

// Status is one row of the arbiter's sync status table.
type Status struct {
	Kind   Kind
	Label  string
	Synced bool
}

// statusOrder is the trust ranking used for both selection and the status
// display.
var statusOrder = [kindCount]Kind{Satellite, ExternalRTC, NetworkTime, InternalRTC}
