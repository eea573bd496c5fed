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

// Package ntp implements the embedded network time client: DNS-based server
// discovery with a cached pool, sticky server rotation on failure, and the
// raw mode-3 UDP exchange.
package ntp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
	"github.com/SegClockProject/segclock-core/pkg/rtc"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Wire constants for the mode-3 client exchange (RFC 5905).
const (
	packetSize = 48
	// First request byte: leap indicator 0, version 3, mode 3 (client).
	requestHeader = 0x1B
	// Seconds between the NTP epoch (1900) and the Unix epoch (1970).
	epochOffset = 2208988800
	// Transmit timestamp seconds live at bytes 40..43 of the response.
	transmitOffset = 40

	responsePollTick = 100 * time.Millisecond
)

// ErrSyncTimeout means every server in the pool failed, including the one
// permitted DNS refresh and retry pass.
var ErrSyncTimeout = errors.New("ntp: no server responded")

// ErrSyncInProgress is returned to a concurrent caller; it should retry
// later rather than block.
var ErrSyncInProgress = errors.New("ntp: sync already in progress")

// ErrNetworkNotReady means the link is down or DHCP configuration is
// missing.
var ErrNetworkNotReady = errors.New("ntp: network not ready")

// ErrNoServers means DNS resolution produced no usable pool.
var ErrNoServers = errors.New("ntp: no servers available")

// Network gates time requests on link readiness.
type Network interface {
	IsConnected() bool
	HasValidNetworkConfig() bool
}

// Resolver is the DNS lookup used to build the server pool.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// exchangeFunc performs one request/response datagram exchange with addr.
type exchangeFunc func(ctx context.Context, addr string, timeout time.Duration) ([]byte, error)

// Client resolves and caches a pool of time servers and syncs the internal
// clock from them.
type Client struct {
	cfg      *config.Instance
	network  Network
	resolver Resolver
	exchange exchangeFunc
	internal rtc.Device
	clock    clockwork.Clock
	onSync   func(civil.Stamp)

	mu             syncutil.RWMutex
	servers        []string
	index          int
	lastSync       time.Time
	synced         bool
	internalSynced bool

	syncing atomic.Bool
}

// NewClient builds a client over the given network gate and internal clock
// device.
func NewClient(cfg *config.Instance, network Network, internal rtc.Device, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		cfg:      cfg,
		network:  network,
		resolver: net.DefaultResolver,
		exchange: exchangeUDP,
		internal: internal,
		clock:    clock,
	}
}

// SetSyncCallback registers the callback fired with the raw decoded stamp
// after every successful sync. Panics in the callback are caught and logged,
// never propagated.
func (c *Client) SetSyncCallback(cb func(civil.Stamp)) {
	c.onSync = cb
}

func (c *Client) networkReady() bool {
	return c.network.IsConnected() && c.network.HasValidNetworkConfig()
}

// ResolveServers performs the DNS lookup of the configured hostname and
// replaces the cached pool wholesale. Fails closed: on any error the
// previously cached pool is left untouched and false is returned.
func (c *Client) ResolveServers(ctx context.Context) bool {
	if !c.networkReady() {
		log.Warn().Msg("ntp dns refresh skipped: network lacks DHCP IP/DNS configuration")
		return false
	}

	host := c.cfg.NTP().Host
	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		log.Error().Err(err).Msgf("ntp dns lookup failed for %s", host)
		return false
	}

	resolved := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		resolved = append(resolved, a)
	}

	if len(resolved) == 0 {
		log.Error().Msgf("ntp dns lookup returned no addresses for %s", host)
		return false
	}

	c.mu.Lock()
	c.servers = resolved
	c.index = 0
	c.mu.Unlock()

	log.Info().Msgf("resolved ntp host %s to %v", host, resolved)
	return true
}

// SyncDue reports whether a sync should be scheduled: it has never
// succeeded, or the configured interval has elapsed since the last success.
func (c *Client) SyncDue() bool {
	c.mu.RLock()
	last := c.lastSync
	c.mu.RUnlock()

	if last.IsZero() {
		return true
	}
	interval := time.Duration(c.cfg.NTP().SyncInterval) * time.Second
	return c.clock.Since(last) > interval
}

// Syncing reports whether a sync attempt is currently running.
func (c *Client) Syncing() bool {
	return c.syncing.Load()
}

// SyncStatus reports whether the last sync attempt succeeded.
func (c *Client) SyncStatus() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// InternalClockSynced reports whether the internal clock has ever been set
// from a network sync. Unlike SyncStatus it is not cleared by a later
// failed attempt: the clock keeps running on its last set value.
func (c *Client) InternalClockSynced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.internalSynced
}

// LastSynced returns the time of the last successful sync, zero if never.
func (c *Client) LastSynced() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

// Sync performs one full sync attempt: pool iteration from the sticky
// index, one DNS refresh and retry pass on exhaustion, then updates the
// internal clock and fires the sync callback. A concurrent caller gets
// ErrSyncInProgress immediately.
func (c *Client) Sync(ctx context.Context) (civil.Time, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		log.Info().Msg("ntp sync already in progress, skipping")
		return civil.Time{}, ErrSyncInProgress
	}
	defer c.syncing.Store(false)

	if !c.networkReady() {
		c.setSynced(false)
		log.Error().Msg("no network access, cannot sync from ntp")
		return civil.Time{}, ErrNetworkNotReady
	}

	stamp, err := c.fetchTimestamp(ctx, true)
	if err != nil {
		c.setSynced(false)
		log.Error().Err(err).Msg("ntp sync failed, clocks not updated")
		return civil.Time{}, err
	}

	if err := c.internal.SetTime(stamp.Time); err != nil {
		// The decoded time is still good; report it and let the arbiter
		// flags reflect the device failure.
		c.setSynced(false)
		log.Error().Err(err).Msg("failed to set internal clock from ntp")
		return stamp.Time, fmt.Errorf("set internal clock: %w", err)
	}

	c.fireCallback(stamp)

	c.mu.Lock()
	c.lastSync = c.clock.Now()
	c.synced = true
	c.internalSynced = true
	c.mu.Unlock()

	log.Info().Msgf("clocks synced from ntp: %s", stamp.Time)
	return stamp.Time, nil
}

func (c *Client) setSynced(v bool) {
	c.mu.Lock()
	c.synced = v
	c.mu.Unlock()
}

func (c *Client) fireCallback(stamp civil.Stamp) {
	if c.onSync == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("panic in time sync callback: %v", r)
		}
	}()
	c.onSync(stamp)
}

// fetchTimestamp iterates the pool starting at the sticky index. On
// exhaustion, if allowRefresh is set, the pool is re-resolved once and the
// iteration retried exactly once more.
func (c *Client) fetchTimestamp(ctx context.Context, allowRefresh bool) (civil.Stamp, error) {
	c.mu.RLock()
	servers := c.servers
	start := c.index
	c.mu.RUnlock()

	if len(servers) == 0 {
		if !c.ResolveServers(ctx) {
			return civil.Stamp{}, ErrNoServers
		}
		c.mu.RLock()
		servers = c.servers
		start = c.index
		c.mu.RUnlock()
	}

	ntpCfg := c.cfg.NTP()
	timeout := time.Duration(ntpCfg.Timeout) * time.Second

	for attempt := range servers {
		i := (start + attempt) % len(servers)
		host := servers[i]
		addr := net.JoinHostPort(host, strconv.Itoa(ntpCfg.Port))

		resp, err := c.exchange(ctx, addr, timeout)
		if err != nil {
			log.Warn().Err(err).Msgf("no ntp response from %s", host)
			if attempt < len(servers)-1 {
				next := servers[(i+1)%len(servers)]
				log.Warn().Msgf("trying fallback ntp server %s", next)
			}
			continue
		}

		stamp, err := decodeResponse(resp)
		if err != nil {
			log.Error().Err(err).Msgf("bad ntp response from %s", host)
			continue
		}

		c.mu.Lock()
		c.index = i
		c.mu.Unlock()
		if attempt > 0 {
			log.Info().Msgf("ntp fallback succeeded using %s", host)
		}
		return stamp, nil
	}

	if allowRefresh {
		log.Warn().Msg("all cached ntp servers failed, refreshing dns and retrying once")
		if c.ResolveServers(ctx) {
			return c.fetchTimestamp(ctx, false)
		}
	}

	return civil.Stamp{}, ErrSyncTimeout
}

// decodeResponse extracts the transmit timestamp and converts it from the
// protocol epoch to civil time.
func decodeResponse(resp []byte) (civil.Stamp, error) {
	if len(resp) < packetSize {
		return civil.Stamp{}, fmt.Errorf("short ntp response: %d bytes", len(resp))
	}
	secs := binary.BigEndian.Uint32(resp[transmitOffset : transmitOffset+4])
	if secs == 0 {
		return civil.Stamp{}, errors.New("empty transmit timestamp")
	}
	unix := int64(secs) - epochOffset
	return civil.StampFromStd(time.Unix(unix, 0).UTC()), nil
}

// exchangeUDP sends a single request datagram and polls non-blocking for a
// response in short increments up to the timeout.
func exchangeUDP(ctx context.Context, addr string, timeout time.Duration) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("failed to close ntp socket")
		}
	}()

	req := make([]byte, packetSize)
	req[0] = requestHeader
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("send request to %s: %w", addr, err)
	}

	buf := make([]byte, packetSize)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ntp exchange interrupted: %w", ctx.Err())
		}
		if err := conn.SetReadDeadline(time.Now().Add(responsePollTick)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
		n, err := conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return nil, fmt.Errorf("read response from %s: %w", addr, err)
		}
		if n >= packetSize {
			return buf[:n], nil
		}
	}

	return nil, fmt.Errorf("timed out waiting for response from %s", addr)
}
