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

package rtc

import (
	"fmt"
	"time"

	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
)

// Internal is the controller's own clock: an offset over a monotonic-ish
// wall clock source. It is volatile, starts unsynced and drifts with the
// underlying clock until SetTime is called (normally from a network time
// sync).
type Internal struct {
	clock  clockwork.Clock
	offset time.Duration
	mu     syncutil.RWMutex
}

// NewInternal creates the internal clock over the given clock source.
func NewInternal(clock clockwork.Clock) *Internal {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Internal{clock: clock}
}

func (r *Internal) GetTime() (civil.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return civil.FromStd(r.clock.Now().UTC().Add(r.offset)), nil
}

func (r *Internal) SetTime(t civil.Time) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid time for internal rtc: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = t.Std().Sub(r.clock.Now().UTC())
	return nil
}
