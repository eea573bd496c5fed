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

// Package cli holds the flag handling and setup shared by the service
// entrypoints.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/SegClockProject/segclock-core/pkg/helpers"
)

type Flags struct {
	ConfigDir *string
	Daemon    *bool
	Version   *bool
}

// SetupFlags defines the common flags. Add any custom flags before
// calling Pre.
func SetupFlags() *Flags {
	return &Flags{
		ConfigDir: flag.String(
			"config",
			"",
			"path to the config directory",
		),
		Daemon: flag.Bool(
			"daemon",
			false,
			"also log to stderr for supervised runs",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Pre runs flag parsing and actions the flags that need no environment
// setup.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("SegClock v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

// DefaultConfigDir is the per-user config directory used when the
// -config flag is empty.
func DefaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, config.AppName)
}

// Setup initializes directories, logging and the user config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(configDir string, defaultConfig config.Values, writers []io.Writer) *config.Instance {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	if err := helpers.SetupLogging(configDir, writers...); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(configDir, defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	helpers.SetLogLevel(cfg.DebugLogging())

	return cfg
}
