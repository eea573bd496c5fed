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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err, "default config should have been saved")

	assert.Equal(t, "pool.ntp.org", cfg.NTP().Host)
	assert.Equal(t, uint16(0x70), cfg.Displays().Addresses["hour_minute"])
	assert.Equal(t, 1, cfg.Wifi().ConnectRetries)
}

func TestLoadClampsSyncInterval(t *testing.T) {
	dir := t.TempDir()

	data := []byte("config_schema = 1\n\n[ntp]\nsync_interval = 10\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, MinSyncInterval, cfg.NTP().SyncInterval)
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()

	data := []byte("config_schema = 99\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()

	data := []byte("config_schema = 1\n\n[wifi]\nssid = \"clocknet\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "clocknet", cfg.Wifi().SSID)
	assert.Equal(t, "GB", cfg.Wifi().Country)
	assert.Equal(t, 5, cfg.NTP().Timeout)
}
