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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SegClockProject/segclock-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	AppName    = "segclock"
	AppVersion = "1.0.0"

	SchemaVersion = 1
	CfgEnv        = "SEGCLOCK_CFG"
	CfgFile       = "config.toml"
	LogFile       = "segclock.log"
	PidFile       = "segclock.pid"

	// MinSyncInterval is the floor for the network time resync interval, to
	// respect upstream pool rate-limit conventions.
	MinSyncInterval = 60
)

type Values struct {
	Wifi         Wifi     `toml:"wifi"`
	NTP          NTP      `toml:"ntp,omitempty"`
	I2C          I2C      `toml:"i2c,omitempty"`
	Displays     Displays `toml:"displays,omitempty"`
	RTC          RTC      `toml:"rtc,omitempty"`
	ConfigSchema int      `toml:"config_schema"`
	DebugLogging bool     `toml:"debug_logging"`
}

type Wifi struct {
	SSID     string `toml:"ssid"`
	Password string `toml:"password"`
	Country  string `toml:"country,omitempty"`
	// Hostname overrides the MAC-derived default when set.
	Hostname       string `toml:"hostname,omitempty"`
	ConnectTimeout int    `toml:"connect_timeout,omitempty"`
	ConnectRetries int    `toml:"connect_retries,omitempty"`
	RetryBackoff   int    `toml:"retry_backoff,omitempty"`
}

type NTP struct {
	Host string `toml:"host,omitempty"`
	Port int    `toml:"port,omitempty"`
	// SyncInterval is in seconds and is clamped to MinSyncInterval on load.
	SyncInterval int `toml:"sync_interval,omitempty"`
	Timeout      int `toml:"timeout,omitempty"`
}

type I2C struct {
	// Bus is the periph bus name or number; empty selects the first
	// available bus.
	Bus       string `toml:"bus,omitempty"`
	Frequency int    `toml:"frequency,omitempty"`
}

type Displays struct {
	// Addresses maps display slot names to bus addresses.
	Addresses  map[string]uint16 `toml:"addresses,omitempty"`
	Brightness uint8             `toml:"brightness,omitempty"`
	SelfTest   bool              `toml:"self_test"`
}

type RTC struct {
	// FullTest runs a destructive read/write self test against the external
	// module on startup.
	FullTest bool `toml:"full_test"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Wifi: Wifi{
		Country:        "GB",
		ConnectTimeout: 10,
		ConnectRetries: 1,
		RetryBackoff:   5,
	},
	NTP: NTP{
		Host:         "pool.ntp.org",
		Port:         123,
		SyncInterval: 60,
		Timeout:      5,
	},
	I2C: I2C{
		Frequency: 400000,
	},
	Displays: Displays{
		Addresses: map[string]uint16{
			"hour_minute": 0x70,
			"status":      0x71,
			"seconds":     0x72,
			"day_month":   0x73,
			"year":        0x74,
		},
		Brightness: 15,
		SelfTest:   true,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top, so fields not
	// present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	// Configuration errors are corrected in place, never fatal.
	if newVals.NTP.SyncInterval < MinSyncInterval {
		log.Warn().Msgf(
			"ntp sync interval %ds too low, clamping to minimum of %ds",
			newVals.NTP.SyncInterval, MinSyncInterval,
		)
		newVals.NTP.SyncInterval = MinSyncInterval
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Wifi() Wifi {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Wifi
}

func (c *Instance) NTP() NTP {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.NTP
}

func (c *Instance) I2C() I2C {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.I2C
}

func (c *Instance) Displays() Displays {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.vals.Displays
	addrs := make(map[string]uint16, len(d.Addresses))
	for k, v := range d.Addresses {
		addrs[k] = v
	}
	d.Addresses = addrs
	return d
}

func (c *Instance) RTCFullTest() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.RTC.FullTest
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
