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

package config

import (
	"testing"
	"time"
)

// TestGetters_NoRecursiveLock guards against a getter calling another
// getter while holding RLock. With -tags=deadlock, go-deadlock panics on
// recursive locks, failing this test if that ever happens.
func TestGetters_NoRecursiveLock(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	done := make(chan struct{})
	go func() {
		_ = cfg.Wifi()
		_ = cfg.NTP()
		_ = cfg.I2C()
		_ = cfg.Displays()
		_ = cfg.RTCFullTest()
		_ = cfg.DebugLogging()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("config getter deadlocked")
	}
}

// TestConfig_ConcurrentAccess verifies mixed reads and writes are safe
// for concurrent access.
func TestConfig_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	done := make(chan struct{})
	for range 10 {
		go func() {
			for i := range 100 {
				_ = cfg.NTP()
				_ = cfg.Displays()
				cfg.SetDebugLogging(i%2 == 0)
			}
			done <- struct{}{}
		}()
	}

	for range 10 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}
