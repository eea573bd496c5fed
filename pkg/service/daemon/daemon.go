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

// Package daemon runs the service as a long-lived process with a PID
// file, so init scripts and duplicate launches can find a running
// instance.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/SegClockProject/segclock-core/pkg/config"
	"github.com/rs/zerolog/log"
)

// Entry starts the service and returns its stop function plus a channel
// closed once cleanup has finished.
type Entry func() (stop func() error, done <-chan struct{}, err error)

type Service struct {
	runDir string
	entry  Entry
}

// New builds a daemon wrapper writing its PID file under runDir.
func New(runDir string, entry Entry) *Service {
	return &Service{runDir: runDir, entry: entry}
}

func (s *Service) pidPath() string {
	return filepath.Join(s.runDir, config.PidFile)
}

func (s *Service) createPidFile() error {
	if err := os.MkdirAll(s.runDir, 0o750); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(s.pidPath(), []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (s *Service) removePidFile() error {
	if err := os.Remove(s.pidPath()); err != nil {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the process ID recorded by a running daemon, or 0 when no
// PID file exists.
func (s *Service) Pid() (int, error) {
	pid := 0

	if _, err := os.Stat(s.pidPath()); err == nil {
		//nolint:gosec // Safe: reads PID files for service management
		pidFile, err := os.ReadFile(s.pidPath())
		if err != nil {
			return pid, fmt.Errorf("error reading pid file: %w", err)
		}

		pidInt, err := strconv.Atoi(string(pidFile))
		if err != nil {
			return pid, fmt.Errorf("error parsing pid: %w", err)
		}

		pid = pidInt
	}

	return pid, nil
}

// Running reports whether the PID in the file names a live process.
func (s *Service) Running() bool {
	pid, err := s.Pid()
	if err != nil || pid == 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}

// Run starts the service and blocks until it shuts down internally or a
// stop signal arrives. The PID file is removed on the way out.
func (s *Service) Run() error {
	if s.Running() {
		return errors.New("service already running")
	}

	if err := s.createPidFile(); err != nil {
		return err
	}

	stop, done, err := s.entry()
	if err != nil {
		if rmErr := s.removePidFile(); rmErr != nil {
			log.Error().Err(rmErr).Msg("error removing pid file")
		}
		return fmt.Errorf("error starting service: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		log.Info().Msg("shutdown signal received")
		if err := stop(); err != nil {
			log.Error().Err(err).Msg("error stopping service")
		}
	case <-done:
		log.Info().Msg("service shut down internally")
	}

	if err := s.removePidFile(); err != nil {
		log.Error().Err(err).Msg("error removing pid file")
	}
	return nil
}
