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

package timesource

import (
	"errors"
	"testing"

	"github.com/SegClockProject/segclock-core/pkg/civil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	t        civil.Time
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func (d *fakeDevice) GetTime() (civil.Time, error) {
	d.getCalls++
	if d.getErr != nil {
		return civil.Time{}, d.getErr
	}
	return d.t, nil
}

func (d *fakeDevice) SetTime(t civil.Time) error {
	d.setCalls++
	if d.setErr != nil {
		return d.setErr
	}
	d.t = t
	return nil
}

type staticSource struct {
	ntp  bool
	prtc bool
}

func (s staticSource) SyncStatus() bool          { return s.ntp }
func (s staticSource) InternalClockSynced() bool { return s.prtc }

func TestSelectionIsDeterministic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		flags       map[Kind]bool
		hasExternal bool
		want        Kind
	}{
		{
			name:        "both rtc flags set prefers external",
			flags:       map[Kind]bool{ExternalRTC: true, InternalRTC: true},
			hasExternal: true,
			want:        ExternalRTC,
		},
		{
			name:        "only internal flag set selects internal",
			flags:       map[Kind]bool{ExternalRTC: false, InternalRTC: true},
			hasExternal: true,
			want:        InternalRTC,
		},
		{
			name:        "all false falls back to present external",
			flags:       map[Kind]bool{},
			hasExternal: true,
			want:        ExternalRTC,
		},
		{
			name:        "all false without external falls back to internal",
			flags:       map[Kind]bool{},
			hasExternal: false,
			want:        InternalRTC,
		},
		{
			// NTP is skipped as a non-source; RTC's own flag is false, so
			// the PRTC path wins.
			name:        "ntp flag alone does not select external",
			flags:       map[Kind]bool{Satellite: false, NetworkTime: true, ExternalRTC: false, InternalRTC: true},
			hasExternal: true,
			want:        InternalRTC,
		},
		{
			name:        "external flag without device selects internal",
			flags:       map[Kind]bool{ExternalRTC: true, InternalRTC: true},
			hasExternal: false,
			want:        InternalRTC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestArbiter(t, tt.hasExternal)
			for k, v := range tt.flags {
				a.SetStatus(k, v)
			}
			a.UpdatePriority()
			assert.Equal(t, tt.want, a.Selected())
		})
	}
}

func newTestArbiter(t *testing.T, hasExternal bool) *Arbiter {
	t.Helper()
	if !hasExternal {
		return NewArbiter(&fakeDevice{}, nil, staticSource{}, clockwork.NewFakeClock())
	}
	return NewArbiter(&fakeDevice{}, &fakeDevice{}, staticSource{}, clockwork.NewFakeClock())
}

func TestInitialSelection(t *testing.T) {
	t.Parallel()

	withExternal := NewArbiter(&fakeDevice{}, &fakeDevice{}, staticSource{}, clockwork.NewFakeClock())
	assert.Equal(t, ExternalRTC, withExternal.Selected())

	withoutExternal := NewArbiter(&fakeDevice{}, nil, staticSource{}, clockwork.NewFakeClock())
	assert.Equal(t, InternalRTC, withoutExternal.Selected())
}

func TestCurrentTimeRetriesOnceAfterReselection(t *testing.T) {
	t.Parallel()

	want := civil.Time{Year: 2025, Month: 6, Day: 1, Hour: 12}
	internal := &fakeDevice{t: want}
	external := &fakeDevice{getErr: errors.New("bus fault")}

	a := NewArbiter(internal, external, staticSource{}, clockwork.NewFakeClock())
	a.SetStatus(ExternalRTC, true)
	a.SetStatus(InternalRTC, true)
	a.UpdatePriority()
	require.Equal(t, ExternalRTC, a.Selected())

	// External flag still set, so re-selection picks external again and the
	// retry fails too: the error must propagate, not loop forever.
	_, err := a.CurrentTime()
	require.Error(t, err)
	assert.Equal(t, 2, external.getCalls, "exactly one retry after re-selection")

	// Once the failure clears the external flag, selection moves to the
	// internal clock and reads succeed again.
	a.SetStatus(ExternalRTC, false)
	a.UpdatePriority()
	got, err := a.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSetTimePropagatesErrorAfterRetry(t *testing.T) {
	t.Parallel()

	internal := &fakeDevice{}
	external := &fakeDevice{setErr: errors.New("bus fault")}

	a := NewArbiter(internal, external, staticSource{}, clockwork.NewFakeClock())
	// All flags false: fallback selection is the present external module.
	require.Equal(t, ExternalRTC, a.Selected())

	err := a.SetTime(civil.Time{Year: 2025, Month: 1, Day: 1})
	require.Error(t, err)
	assert.Equal(t, 2, external.setCalls)
	assert.Equal(t, 0, internal.setCalls)
}

func TestOnNetworkSyncSetsExternalAndFlags(t *testing.T) {
	t.Parallel()

	internal := &fakeDevice{}
	external := &fakeDevice{}
	a := NewArbiter(internal, external, staticSource{}, clockwork.NewFakeClock())

	stamp := civil.Stamp{
		Time:    civil.Time{Year: 2025, Month: 3, Day: 9, Hour: 3},
		Weekday: 6,
		YearDay: 68,
	}
	a.OnNetworkSync(stamp)

	assert.Equal(t, stamp.Time, external.t)
	assert.Equal(t, ExternalRTC, a.Selected())

	label, ok := a.ActiveSyncMethod()
	require.True(t, ok)
	assert.Equal(t, "RTC", label)
}

func TestOnNetworkSyncExternalWriteFailure(t *testing.T) {
	t.Parallel()

	external := &fakeDevice{setErr: errors.New("bus fault")}
	a := NewArbiter(&fakeDevice{}, external, staticSource{}, clockwork.NewFakeClock())

	a.OnNetworkSync(civil.Stamp{Time: civil.Time{Year: 2025, Month: 1, Day: 1}})

	for _, st := range a.Statuses() {
		if st.Kind == ExternalRTC {
			assert.False(t, st.Synced)
		}
		if st.Kind == NetworkTime {
			assert.True(t, st.Synced)
		}
	}
}

func TestActiveSyncMethodNoneSynced(t *testing.T) {
	t.Parallel()

	a := NewArbiter(&fakeDevice{}, nil, staticSource{}, clockwork.NewFakeClock())
	_, ok := a.ActiveSyncMethod()
	assert.False(t, ok)
}

func TestStatusesOrderedByTrust(t *testing.T) {
	t.Parallel()

	a := NewArbiter(&fakeDevice{}, nil, staticSource{}, clockwork.NewFakeClock())
	sts := a.Statuses()
	require.Len(t, sts, 4)
	assert.Equal(t, "GPS", sts[0].Label)
	assert.Equal(t, "RTC", sts[1].Label)
	assert.Equal(t, "NTP", sts[2].Label)
	assert.Equal(t, "PRTC", sts[3].Label)
}
