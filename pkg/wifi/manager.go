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

package wifi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// statusTick is the poll interval while waiting for a link state or a
	// DHCP lease.
	statusTick = 500 * time.Millisecond
	// monitorInterval is the cadence of the background reachability check.
	monitorInterval = 5 * time.Second
	// slowConnectThreshold triggers a warning when association takes longer.
	slowConnectThreshold = 5 * time.Second
)

// Details is a snapshot of the link for telemetry and status reporting.
type Details struct {
	MAC      string
	Hostname string
	IP       string
	Status   LinkState
}

// Manager owns the radio and keeps the link usable. All blocking operations
// take a context and resolve to a typed failure rather than hanging.
type Manager struct {
	cfg      *config.Instance
	radio    Radio
	clock    clockwork.Clock
	syncer   TimeSyncer
	hostname string

	checkTask taskGuard
}

// NewManager wires the radio and applies the configured or MAC-derived
// hostname.
func NewManager(cfg *config.Instance, radio Radio, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &Manager{
		cfg:   cfg,
		radio: radio,
		clock: clock,
	}

	m.hostname = m.determineHostname()
	if err := radio.SetHostname(m.hostname); err != nil {
		log.Warn().Err(err).Msgf("failed to set hostname %q", m.hostname)
	} else {
		log.Info().Msgf("hostname set to %s", m.hostname)
	}

	return m
}

// SetTimeSyncer registers the network time client driven by the monitor.
// Must be called before StartMonitor.
func (m *Manager) SetTimeSyncer(s TimeSyncer) {
	m.syncer = s
}

func (m *Manager) determineHostname() string {
	if custom := m.cfg.Wifi().Hostname; custom != "" {
		return custom
	}
	mac := strings.ReplaceAll(m.radio.MACAddress(), ":", "")
	if len(mac) >= 6 {
		mac = mac[len(mac)-6:]
	}
	return "segclock-" + mac
}

// Status returns the radio's current link state.
func (m *Manager) Status() LinkState {
	return m.radio.Status()
}

// HasValidNetworkConfig reports whether DHCP has assigned usable IP and DNS
// configuration.
func (m *Manager) HasValidNetworkConfig() bool {
	return m.radio.IfConfig().Valid()
}

// IsConnected reports whether the link is up. Combined with
// HasValidNetworkConfig it gates network time requests.
func (m *Manager) IsConnected() bool {
	return m.radio.Status() == LinkUp
}

// Details returns a snapshot of the current link.
func (m *Manager) Details() Details {
	return Details{
		MAC:      m.radio.MACAddress(),
		Hostname: m.hostname,
		IP:       m.radio.IfConfig().IP.String(),
		Status:   m.radio.Status(),
	}
}

// CheckState is the observable state of the reachability check task.
func (m *Manager) CheckState() TaskState {
	return m.checkTask.state()
}

// waitStatus polls the radio until it reaches want or the timeout elapses.
// BadAuth and Fail/NoMatchingNetwork are terminal poll outcomes.
func (m *Manager) waitStatus(ctx context.Context, want LinkState, timeout time.Duration) error {
	deadline := m.clock.Now().Add(timeout)
	for m.clock.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s interrupted: %w", want, ctx.Err())
		case <-m.clock.After(statusTick):
		}

		status := m.radio.Status()
		log.Debug().Msgf("wifi status: %s", status)

		switch status {
		case want:
			return nil
		case LinkBadAuth:
			log.Error().Msg("bad authentication, check SSID and password")
			return fmt.Errorf("%w: %s", ErrBadCredentials, status)
		case LinkFail, LinkNoMatchingNetwork:
			log.Error().Msgf("connection failed: %s", status)
			return fmt.Errorf("%w: %s", ErrConnectFailed, status)
		}
	}
	return fmt.Errorf("%w: timed out waiting for %s", ErrConnectFailed, want)
}

// waitForDHCP polls for a valid network configuration with its own timeout.
// Association without usable IP/DNS is a failure requiring retry.
func (m *Manager) waitForDHCP(ctx context.Context, timeout time.Duration) bool {
	deadline := m.clock.Now().Add(timeout)
	for m.clock.Now().Before(deadline) {
		if m.HasValidNetworkConfig() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-m.clock.After(statusTick):
		}
	}
	return m.HasValidNetworkConfig()
}

func (m *Manager) disconnectIfAssociated(ctx context.Context, timeout time.Duration) error {
	status := m.radio.Status()
	if status == LinkJoining || status == LinkJoinedNoIP || status == LinkUp {
		log.Info().Msg("disconnecting stale association")
		if err := m.radio.Disconnect(); err != nil {
			return fmt.Errorf("disconnect failed: %w", err)
		}
		if err := m.waitStatus(ctx, LinkDown, timeout); err != nil {
			return fmt.Errorf("failed to reach link down state: %w", err)
		}
	}
	return nil
}

// Connect performs one full association attempt: drop any stale
// association, join, wait for link up, then wait for a DHCP lease.
func (m *Manager) Connect(ctx context.Context) error {
	w := m.cfg.Wifi()
	timeout := time.Duration(w.ConnectTimeout) * time.Second

	log.Info().Msgf("connecting to SSID %s", w.SSID)
	start := m.clock.Now()

	if err := m.disconnectIfAssociated(ctx, timeout); err != nil {
		return err
	}

	if err := m.radio.Join(w.SSID, w.Password); err != nil {
		return fmt.Errorf("%w: join: %w", ErrConnectFailed, err)
	}

	if err := m.waitStatus(ctx, LinkUp, timeout); err != nil {
		return err
	}

	if !m.waitForDHCP(ctx, timeout) {
		return fmt.Errorf("%w: associated but DHCP config not ready", ErrConnectFailed)
	}

	elapsed := m.clock.Since(start)
	nc := m.radio.IfConfig()
	log.Info().Msgf("connected: ip %s, gateway %s, dns %s (%.1fs)",
		nc.IP, nc.Gateway, nc.DNS, elapsed.Seconds())
	if elapsed > slowConnectThreshold {
		log.Warn().Msgf("wifi association took %s", elapsed)
	}

	return nil
}

// CheckNetworkAccess ensures the link is up with valid DHCP configuration,
// retrying a bounded number of times with fixed backoff. Authentication
// failures bypass retry entirely. At most one check runs at a time;
// concurrent triggers are dropped and report false.
func (m *Manager) CheckNetworkAccess(ctx context.Context) (bool, error) {
	if !m.checkTask.tryAcquire() {
		log.Info().Msg("network access check already in progress, skipping")
		return false, nil
	}
	defer m.checkTask.release()

	w := m.cfg.Wifi()
	log.Info().Msg("checking for network access")

	retries := 0
	for (m.radio.Status() != LinkUp || !m.HasValidNetworkConfig()) && retries <= w.ConnectRetries {
		err := m.Connect(ctx)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, ErrBadCredentials) {
			log.Error().Err(err).Msg("auth error, will not retry, check credentials in the config file")
			return false, err
		}
		if ctx.Err() != nil {
			return false, fmt.Errorf("network check interrupted: %w", ctx.Err())
		}

		log.Warn().Err(err).Msgf("error connecting to wifi on attempt %d of %d",
			retries+1, w.ConnectRetries+1)
		retries++
		if retries > w.ConnectRetries {
			log.Error().Msg("exceeded maximum wifi connection retries")
			break
		}

		log.Info().Msgf("backing off retry for %d seconds", w.RetryBackoff)
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("network check interrupted: %w", ctx.Err())
		case <-m.clock.After(time.Duration(w.RetryBackoff) * time.Second):
		}
	}

	if m.IsConnected() && m.HasValidNetworkConfig() {
		log.Info().Msg("connected to wireless network")
		return true, nil
	}
	log.Warn().Msg("unable to connect to wireless network with valid DHCP config")
	return false, fmt.Errorf("%w: retries exhausted", ErrConnectFailed)
}

// StartMonitor launches the background reachability monitor. It polls link
// state and DHCP validity every monitorInterval, logs transitions only on
// change, and schedules at most one concurrent connectivity check and at
// most one concurrent time sync.
func (m *Manager) StartMonitor(ctx context.Context) {
	go m.monitor(ctx)
}

type monitorState struct {
	status      LinkState
	configValid bool
}

func (m *Manager) monitor(ctx context.Context) {
	log.Info().Msg("starting wifi network monitor")

	var last monitorState
	first := true

	for {
		status := m.radio.Status()
		valid := m.HasValidNetworkConfig()

		cur := monitorState{status: status, configValid: valid}
		if first || cur != last {
			if status == LinkUp && valid {
				nc := m.radio.IfConfig()
				log.Info().Msgf("wifi connected with valid DHCP configuration: ip %s, dns %s",
					nc.IP, nc.DNS)
			} else {
				log.Warn().Msgf("wifi not ready: %s, dhcp_valid=%t", status, valid)
			}
			last = cur
			first = false
		}

		if status != LinkUp || !valid {
			if m.checkTask.state() == TaskIdle {
				log.Info().Msg("network not ready, scheduling connectivity check")
				go func() {
					if _, err := m.CheckNetworkAccess(ctx); err != nil && ctx.Err() == nil {
						log.Debug().Err(err).Msg("scheduled connectivity check failed")
					}
				}()
			}
		}

		if m.syncer != nil && m.syncer.SyncDue() {
			if m.syncer.Syncing() {
				log.Debug().Msg("time sync already in progress")
			} else {
				log.Info().Msg("scheduling network time sync from monitor")
				go func() {
					// Failures are logged by the client itself.
					_, _ = m.syncer.Sync(ctx)
				}()
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("wifi network monitor stopped")
			return
		case <-m.clock.After(monitorInterval):
		}
	}
}
