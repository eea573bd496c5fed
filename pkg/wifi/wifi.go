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

// Package wifi manages the wireless link: association, DHCP readiness and a
// periodic reachability monitor that also schedules network time syncs.
package wifi

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"

	"github.com/SegClockProject/segclock-core/pkg/civil"
)

// ErrBadCredentials is an authentication failure. It is terminal for the
// current credential set and must never be retried automatically.
var ErrBadCredentials = errors.New("wifi: bad credentials")

// ErrConnectFailed is a transient association or DHCP failure, retryable
// with backoff.
var ErrConnectFailed = errors.New("wifi: connection failed")

// LinkState mirrors the radio driver's link status codes.
type LinkState int

const (
	LinkDown LinkState = iota
	LinkJoining
	LinkJoinedNoIP
	LinkUp
	LinkFail
	LinkNoMatchingNetwork
	LinkBadAuth
)

func (s LinkState) String() string {
	switch s {
	case LinkDown:
		return "link is down"
	case LinkJoining:
		return "joining wifi network"
	case LinkJoinedNoIP:
		return "connected to wifi, but no IP address"
	case LinkUp:
		return "connected to wifi with an IP address"
	case LinkFail:
		return "connection failed"
	case LinkNoMatchingNetwork:
		return "no matching SSID found (could be out of range, or down)"
	case LinkBadAuth:
		return "authentication failure"
	default:
		return "unknown status"
	}
}

// NetConfig is the DHCP-assigned network configuration.
type NetConfig struct {
	IP      netip.Addr
	Subnet  netip.Addr
	Gateway netip.Addr
	DNS     netip.Addr
}

// Valid reports whether the configuration is usable for network time
// requests: both IP and DNS must be set and non-zero.
func (n NetConfig) Valid() bool {
	return n.IP.IsValid() && !n.IP.IsUnspecified() &&
		n.DNS.IsValid() && !n.DNS.IsUnspecified()
}

// Radio is the wireless driver contract. The concrete driver is an external
// collaborator; tests use fakes.
type Radio interface {
	Join(ssid, password string) error
	Disconnect() error
	Status() LinkState
	IfConfig() NetConfig
	MACAddress() string
	SetHostname(name string) error
}

// TimeSyncer is the network time client surface the monitor drives.
type TimeSyncer interface {
	// SyncDue reports whether a resync should be scheduled.
	SyncDue() bool
	// Syncing reports whether a sync attempt is currently running.
	Syncing() bool
	// Sync performs one sync attempt and returns the decoded time.
	Sync(ctx context.Context) (civil.Time, error)
}

// TaskState is the observable state of a background task, exposed so
// callers can avoid redundant scheduling instead of relying on a hidden
// guard flag.
type TaskState int32

const (
	TaskIdle TaskState = iota
	TaskRunning
)

func (t TaskState) String() string {
	if t == TaskRunning {
		return "running"
	}
	return "idle"
}

type taskGuard struct {
	v atomic.Int32
}

func (g *taskGuard) tryAcquire() bool {
	return g.v.CompareAndSwap(int32(TaskIdle), int32(TaskRunning))
}

func (g *taskGuard) release() {
	g.v.Store(int32(TaskIdle))
}

func (g *taskGuard) state() TaskState {
	return TaskState(g.v.Load())
}
