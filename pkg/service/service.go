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

// Package service assembles the appliance: bus and devices, wireless
// link manager, network time client, time source arbiter and the
// display refresh loop.
package service

import (
	"context"
	"errors"

	"github.com/SegClockProject/segclock-core/pkg/bus"
	"github.com/SegClockProject/segclock-core/pkg/clockcore"
	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/SegClockProject/segclock-core/pkg/display"
	"github.com/SegClockProject/segclock-core/pkg/ntp"
	"github.com/SegClockProject/segclock-core/pkg/rtc"
	"github.com/SegClockProject/segclock-core/pkg/rtc/ds3231"
	"github.com/SegClockProject/segclock-core/pkg/timesource"
	"github.com/SegClockProject/segclock-core/pkg/wifi"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// openDisplays builds the display set from the configured slot
// addresses. A slot whose hardware cannot be reached falls back to a
// virtual display so the rest of the set keeps rendering.
func openDisplays(cfg *config.Instance, b bus.Register) map[string]display.Display {
	dcfg := cfg.Displays()
	out := make(map[string]display.Display, len(dcfg.Addresses))

	for slot, addr := range dcfg.Addresses {
		if b == nil {
			out[slot] = display.NewVirtual(slot)
			continue
		}
		d, err := display.NewHT16K33(b, slot, addr, dcfg.Brightness)
		if err != nil {
			log.Error().Err(err).Msgf("display %q at 0x%02X unavailable, using virtual", slot, addr)
			out[slot] = display.NewVirtual(slot)
			continue
		}
		log.Info().Msgf("initialized display %q at 0x%02X", slot, addr)
		out[slot] = d
	}
	return out
}

// probeExternalRTC looks for a DS3231 on the bus and runs the optional
// startup self test. Absence is normal and returns nil.
func probeExternalRTC(cfg *config.Instance, b bus.Register) rtc.Device {
	if b == nil {
		return nil
	}

	dev, err := ds3231.Probe(b)
	if err != nil {
		if errors.Is(err, rtc.ErrNotPresent) {
			log.Info().Msg("no external rtc module found")
		} else {
			log.Error().Err(err).Msg("external rtc probe failed")
		}
		return nil
	}

	if cfg.RTCFullTest() {
		if err := dev.SelfTest(); err != nil {
			log.Error().Err(err).Msg("external rtc self test failed, ignoring module")
			return nil
		}
		log.Info().Msg("external rtc self test passed")
	}

	if temp, err := dev.Temperature(); err == nil {
		log.Info().Msgf("external rtc temperature: %.2fC", temp)
	}

	log.Info().Msg("external rtc module found")
	return dev
}

// Start brings the appliance up and returns a stop function that shuts
// it down cleanly, plus a channel closed once cleanup has finished.
func Start(
	cfg *config.Instance,
	radio wifi.Radio,
	clock clockwork.Clock,
) (stop func() error, done <-chan struct{}, err error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log.Info().Msgf("version: %s", config.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())

	log.Info().Msg("opening i2c bus")
	var b bus.Register
	i2cCfg := cfg.I2C()
	b, err = bus.Open(i2cCfg.Bus, i2cCfg.Frequency)
	if err != nil {
		log.Error().Err(err).Msg("i2c bus unavailable, running with virtual displays")
		b = nil
	}

	busLock := &bus.Lock{}
	internal := rtc.NewInternal(clock)
	external := probeExternalRTC(cfg, b)
	displays := openDisplays(cfg, b)

	log.Info().Msg("starting wireless link manager")
	manager := wifi.NewManager(cfg, radio, clock)

	log.Info().Msg("starting network time client")
	client := ntp.NewClient(cfg, manager, internal, clock)
	manager.SetTimeSyncer(client)

	log.Info().Msg("starting time source arbiter")
	arbiter := timesource.NewArbiter(internal, external, client, clock)
	client.SetSyncCallback(arbiter.OnNetworkSync)

	log.Info().Msg("starting clock core")
	scheduler := clockcore.NewScheduler(arbiter, displays, busLock, clock)
	scheduler.Start()

	if cfg.Displays().SelfTest {
		go func() {
			for _, slot := range display.Slots() {
				if d, ok := displays[slot]; ok {
					display.RunTest(d, scheduler, clock)
				}
			}
		}()
	}

	manager.StartMonitor(ctx)
	arbiter.StartChecker(ctx)
	log.Info().Msg("service fully initialized")

	doneCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info().Msg("service context cancelled, running cleanup")

		scheduler.Stop()
		if b != nil {
			if closeErr := b.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("error closing i2c bus")
			}
		}

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		cancel()
		<-doneCh
		return nil
	}
	return stop, doneCh, nil
}
