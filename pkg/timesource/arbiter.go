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

package timesource

import (
	"context"
	"fmt"
	"time"

	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
	"github.com/SegClockProject/segclock-core/pkg/rtc"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// checkerInterval is the cadence of the periodic status checker.
const checkerInterval = time.Second

// StatusSource feeds the periodic checker with the network-sync and
// internal-clock-sync flags.
type StatusSource interface {
	SyncStatus() bool
	InternalClockSynced() bool
}

// Arbiter owns the sync status table for all known sources and selects
// which concrete RTC backs CurrentTime and SetTime. Reads and writes may
// come concurrently from the display refresh thread and the cooperative
// networking tasks; all access goes through the internal lock.
type Arbiter struct {
	internal rtc.Device
	external rtc.Device // nil when no module is present
	src      StatusSource
	clock    clockwork.Clock

	mu         syncutil.RWMutex
	flags      [kindCount]bool
	selected   Kind
	inFallback bool
}

// NewArbiter builds the arbiter. external may be nil when no battery-backed
// module was detected; the initial selection prefers a present external
// module.
func NewArbiter(internal, external rtc.Device, src StatusSource, clock clockwork.Clock) *Arbiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	a := &Arbiter{
		internal: internal,
		external: external,
		src:      src,
		clock:    clock,
		selected: InternalRTC,
	}
	if external != nil {
		a.selected = ExternalRTC
	}
	log.Info().Msgf("initial time source selection: %s", a.selected)
	return a
}

// SetStatus updates one source's sync flag. Idempotent: writing the current
// value logs nothing and triggers no re-selection side effects.
func (a *Arbiter) SetStatus(kind Kind, synced bool) {
	a.mu.Lock()
	changed := a.flags[kind] != synced
	a.flags[kind] = synced
	a.mu.Unlock()

	if changed {
		log.Info().Msgf("time sync status updated: %s set to %t", kind.Label(), synced)
	}
}

// Statuses returns a snapshot of the status table in trust order.
func (a *Arbiter) Statuses() []Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Status, 0, kindCount)
	for _, k := range statusOrder {
		out = append(out, Status{Kind: k, Label: k.Label(), Synced: a.flags[k]})
	}
	return out
}

// Selected returns the current pick. Always ExternalRTC or InternalRTC.
func (a *Arbiter) Selected() Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected
}

// ActiveSyncMethod returns the label of the highest-trust source currently
// flagged synced, for the status display. ok is false when no source is
// confirmed synced.
func (a *Arbiter) ActiveSyncMethod() (label string, ok bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, k := range statusOrder {
		if a.flags[k] {
			return k.Label(), true
		}
	}
	return "", false
}

// UpdatePriority re-evaluates the selection from the status table. The
// selection-change and fallback warnings are edge-triggered: the periodic
// checker calls this every second and an unchanged outcome must not flood
// the log.
func (a *Arbiter) UpdatePriority() {
	a.mu.Lock()
	prev, wasFallback := a.selected, a.inFallback
	cur, fallback := a.selectLocked()
	a.selected, a.inFallback = cur, fallback
	a.mu.Unlock()

	if fallback && !wasFallback {
		log.Warn().Msg("no confirmed-fresh time source, using potentially incorrect rtc value")
	}
	if cur != prev {
		log.Info().Msgf("selected time source: %s", cur)
	}
}

// selectLocked walks the trust ranking: satellite (reserved), then the
// external module if its flag confirms it was freshly set, then the
// internal clock if its flag is set. Network time is never directly
// selectable; it has no standalone clock to query. With no confirmed-fresh
// source the deterministic fallback prefers a present external module.
func (a *Arbiter) selectLocked() (kind Kind, fallback bool) {
	for _, k := range statusOrder {
		if k == NetworkTime || !a.flags[k] {
			continue
		}
		switch k {
		case ExternalRTC:
			if a.external != nil {
				return ExternalRTC, false
			}
		case InternalRTC:
			return InternalRTC, false
		case Satellite:
			// Reserved: no satellite clock exists to delegate to.
			continue
		}
	}

	if a.external != nil {
		return ExternalRTC, true
	}
	return InternalRTC, true
}

func (a *Arbiter) device(kind Kind) rtc.Device {
	if kind == ExternalRTC && a.external != nil {
		return a.external
	}
	return a.internal
}

// CurrentTime reads the selected clock. A device failure triggers one
// immediate re-selection and one retry against the new pick; a second
// failure propagates.
func (a *Arbiter) CurrentTime() (civil.Time, error) {
	t, err := a.device(a.Selected()).GetTime()
	if err == nil {
		return t, nil
	}

	log.Error().Err(err).Msg("error reading selected time source, re-evaluating selection")
	a.UpdatePriority()

	t, err = a.device(a.Selected()).GetTime()
	if err != nil {
		return civil.Time{}, fmt.Errorf("time read failed after re-selection: %w", err)
	}
	return t, nil
}

// SetTime writes the selected clock, with the same single
// re-selection-and-retry policy as CurrentTime.
func (a *Arbiter) SetTime(t civil.Time) error {
	err := a.device(a.Selected()).SetTime(t)
	if err == nil {
		return nil
	}

	log.Error().Err(err).Msg("error setting selected time source, re-evaluating selection")
	a.UpdatePriority()

	if err := a.device(a.Selected()).SetTime(t); err != nil {
		return fmt.Errorf("time write failed after re-selection: %w", err)
	}
	return nil
}

// OnNetworkSync is the sync callback target for the network time client.
// It writes the decoded time to the external module when one is present and
// flips the flags confirming a fresh sync.
func (a *Arbiter) OnNetworkSync(stamp civil.Stamp) {
	a.SetStatus(NetworkTime, true)

	if a.external != nil {
		if err := a.external.SetTime(stamp.Time); err != nil {
			log.Error().Err(err).Msg("failed to set external rtc from network sync")
			a.SetStatus(ExternalRTC, false)
		} else {
			log.Info().Msgf("external rtc set from network sync: %s", stamp.Time)
			a.SetStatus(ExternalRTC, true)
		}
	}

	a.UpdatePriority()
}

/// StartChecker launches the periodic status checker: it pulls the current
// network-sync and internal-clock flags from the client and re-runs
// selection every interval, regardless of whether any flag changed.
func (a *Arbiter) StartChecker(ctx context.Context) {
	go func() {
		log.Info().Msg("starting time sync status checker")
		for {
			a.SetStatus(NetworkTime, a.src.SyncStatus())
			a.SetStatus(InternalRTC, a.src.InternalClockSynced())
			a.UpdatePriority()

			select {
			case <-ctx.Done():
				log.Info().Msg("time sync status checker stopped")
				return
			case <-a.clock.After(checkerInterval):
			}
		}
	}()
}
