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

// Package clockcore runs the display refresh loop on its own OS thread
// so rendering cadence is never disturbed by networking work.
package clockcore

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/SegClockProject/segclock-core/pkg/bus"
	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/display"
	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	tickInterval = 50 * time.Millisecond
	pausePoll    = 100 * time.Millisecond
	errorBackoff = time.Second

	// The status slot refreshes on every 5th second of the rendered time.
	statusPeriod = 5
)

// TimeSource is the arbited clock the loop renders from.
type TimeSource interface {
	CurrentTime() (civil.Time, error)
	ActiveSyncMethod() (label string, ok bool)
}

// Scheduler owns the refresh loop and the test-pause registry.
type Scheduler struct {
	src      TimeSource
	displays map[string]display.Display
	busLock  *bus.Lock
	clock    clockwork.Clock

	mu    syncutil.Mutex
	tests map[string]struct{}

	running atomic.Bool
	done    chan struct{}

	last    civil.Time
	hasLast bool
}

// NewScheduler takes the display set keyed by slot name. A nil busLock
// gets a private one, for callers with nothing else on the bus.
func NewScheduler(
	src TimeSource,
	displays map[string]display.Display,
	busLock *bus.Lock,
	clock clockwork.Clock,
) *Scheduler {
	if busLock == nil {
		busLock = &bus.Lock{}
	}
	return &Scheduler{
		src:      src,
		displays: displays,
		busLock:  busLock,
		clock:    clock,
		tests:    make(map[string]struct{}),
	}
}

// Start launches the refresh loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("clock core already running, ignoring start request")
		return
	}

	log.Info().Msg("starting clock core refresh loop")
	s.hasLast = false
	s.done = make(chan struct{})
	go s.run()
}

// Stop signals the loop to halt and waits for the current iteration to
// complete.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	log.Info().Msg("stopping clock core")
	<-s.done
}

// RegisterTest pauses the refresh loop until every registered test has
// unregistered. Registering the same id twice is harmless.
func (s *Scheduler) RegisterTest(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; !ok {
		s.tests[id] = struct{}{}
		log.Info().Msgf("test %q registered, clock loop paused", id)
	}
}

// UnregisterTest removes a completed test from the registry.
func (s *Scheduler) UnregisterTest(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; ok {
		delete(s.tests, id)
		log.Info().Msgf("test %q unregistered", id)
		if len(s.tests) == 0 {
			log.Info().Msg("all tests complete, clock loop resuming")
		}
	}
}

func (s *Scheduler) paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tests) > 0
}

func (s *Scheduler) run() {
	// The loop owns this thread for its lifetime, standing in for the
	// dedicated core the displays were driven from originally.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	log.Info().Msg("clock core loop started")
	for s.running.Load() {
		s.iterate()
	}
	log.Info().Msg("clock core loop stopped")
}

// iterate runs a single loop step. A panic anywhere in the step is
// contained here so one bad render cannot take the loop down.
func (s *Scheduler) iterate() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("recovered from clock loop panic: %v", r)
			s.clock.Sleep(errorBackoff)
		}
	}()

	if s.paused() {
		s.clock.Sleep(pausePoll)
		return
	}

	now, err := s.src.CurrentTime()
	if err != nil {
		log.Error().Err(err).Msg("error in clock loop")
		s.clock.Sleep(errorBackoff)
		return
	}

	if !s.hasLast || now != s.last {
		s.last = now
		s.hasLast = true
		s.redraw(now)

		if now.Second%statusPeriod == 0 {
			s.renderStatus()
		}
	}

	s.clock.Sleep(tickInterval)
}

// redraw pushes the rendered time to every slot under one bus lock
// acquisition, so a mid-update reader never sees a torn display set.
func (s *Scheduler) redraw(now civil.Time) {
	colon := now.Second%2 == 0
	updates := []struct {
		slot  string
		text  string
		colon bool
		dots  uint8
	}{
		{display.SlotHourMinute, fmt.Sprintf("%02d%02d", now.Hour, now.Minute), colon, 0},
		{display.SlotSeconds, fmt.Sprintf("%02d00", now.Second), false, 0b0100},
		{display.SlotDayMonth, fmt.Sprintf("%02d%02d", now.Day, now.Month), false, 0b0101},
		{display.SlotYear, fmt.Sprintf("%04d", now.Year), false, 0},
	}

	s.busLock.Lock()
	defer s.busLock.Unlock()

	for _, u := range updates {
		d, ok := s.displays[u.slot]
		if !ok {
			continue
		}
		if err := d.PrintText(u.text, u.colon, u.dots); err != nil {
			log.Error().Err(err).Msgf("failed to update display %q", u.slot)
		}
	}
}

func (s *Scheduler) renderStatus() {
	d, ok := s.displays[display.SlotStatus]
	if !ok {
		return
	}

	text := "NONE"
	if label, synced := s.src.ActiveSyncMethod(); synced {
		text = label
	}

	s.busLock.Lock()
	defer s.busLock.Unlock()
	if err := d.PrintText(text, false, 0); err != nil {
		log.Error().Err(err).Msg("failed to update status display")
	}
}
