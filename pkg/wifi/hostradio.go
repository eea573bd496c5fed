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
	"bufio"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

const resolvConfPath = "/etc/resolv.conf"

// HostRadio satisfies Radio on a machine whose operating system already
// manages the wireless association. Join and Disconnect are accepted but
// deferred to the OS; status and addressing are read from the host
// network stack.
type HostRadio struct {
	resolvConf string
}

func NewHostRadio() *HostRadio {
	return &HostRadio{resolvConf: resolvConfPath}
}

// Join is a no-op: associating to a network is the host's job. The
// credentials are ignored rather than errored so the link manager's
// connect flow works unchanged on hosted platforms.
func (*HostRadio) Join(ssid, _ string) error {
	log.Debug().Msgf("host radio: association to %q left to the OS", ssid)
	return nil
}

func (*HostRadio) Disconnect() error {
	return nil
}

func (h *HostRadio) Status() LinkState {
	iface, addr := h.activeInterface()
	if iface == nil {
		return LinkDown
	}
	if !addr.IsValid() {
		return LinkJoinedNoIP
	}
	return LinkUp
}

func (h *HostRadio) IfConfig() NetConfig {
	_, addr := h.activeInterface()
	if !addr.IsValid() {
		return NetConfig{}
	}
	return NetConfig{
		IP:  addr,
		DNS: h.firstNameserver(),
	}
}

func (h *HostRadio) MACAddress() string {
	iface, _ := h.activeInterface()
	if iface == nil || len(iface.HardwareAddr) == 0 {
		return ""
	}
	return iface.HardwareAddr.String()
}

// SetHostname does not rename the host; the service answers on whatever
// name the machine already has.
func (*HostRadio) SetHostname(name string) error {
	log.Debug().Msgf("host radio: keeping OS hostname, ignoring %q", name)
	return nil
}

// activeInterface picks the first up, non-loopback interface, preferring
// one that holds a global unicast IPv4 address.
func (*HostRadio) activeInterface() (*net.Interface, netip.Addr) {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Error().Err(err).Msg("host radio: failed to list interfaces")
		return nil, netip.Addr{}
	}

	var up *net.Interface
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if up == nil {
			up = iface
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			addr, ok := netip.AddrFromSlice(ip4)
			if !ok || !addr.IsGlobalUnicast() {
				continue
			}
			return iface, addr
		}
	}
	return up, netip.Addr{}
}

func (h *HostRadio) firstNameserver() netip.Addr {
	f, err := os.Open(h.resolvConf)
	if err != nil {
		return netip.Addr{}
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close resolv.conf")
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if addr, err := netip.ParseAddr(fields[1]); err == nil {
			return addr
		}
	}
	return netip.Addr{}
}
