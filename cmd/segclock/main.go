//go:build linux

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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/SegClockProject/segclock-core/pkg/cli"
	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/SegClockProject/segclock-core/pkg/service"
	"github.com/SegClockProject/segclock-core/pkg/service/daemon"
	"github.com/SegClockProject/segclock-core/pkg/wifi"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	configDir := *flags.ConfigDir
	if configDir == "" {
		configDir = cli.DefaultConfigDir()
	}
	cfg := cli.Setup(configDir, config.BaseDefaults, logWriters)

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	svc := daemon.New(configDir, func() (func() error, <-chan struct{}, error) {
		return service.Start(cfg, wifi.NewHostRadio(), nil)
	})
	return svc.Run()
}
