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

package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPidLifecycle(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), nil)

	pid, err := s.Pid()
	require.NoError(t, err)
	assert.Zero(t, pid, "no pid file yet")
	assert.False(t, s.Running())

	require.NoError(t, s.createPidFile())
	pid, err = s.Pid()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, s.Running(), "our own pid counts as running")

	require.NoError(t, s.removePidFile())
	assert.False(t, s.Running())
}

func TestRunReturnsOnInternalShutdown(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	s := New(t.TempDir(), func() (func() error, <-chan struct{}, error) {
		return func() error { return nil }, done, nil
	})

	finished := make(chan error, 1)
	go func() { finished <- s.Run() }()

	close(done)
	require.NoError(t, <-finished)

	pid, err := s.Pid()
	require.NoError(t, err)
	assert.Zero(t, pid, "pid file removed after shutdown")
}

func TestRunRefusesSecondInstance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir, nil)
	require.NoError(t, s.createPidFile())

	second := New(dir, func() (func() error, <-chan struct{}, error) {
		t.Fatal("entry must not run when an instance exists")
		return nil, nil, nil
	})
	require.Error(t, second.Run())
}

func TestRunEntryFailureCleansUp(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), func() (func() error, <-chan struct{}, error) {
		return nil, nil, os.ErrPermission
	})
	require.Error(t, s.Run())
	assert.False(t, s.Running(), "pid file must not linger after a failed start")
}
