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

package civil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		time    Time
		wantErr bool
	}{
		{
			name: "valid time",
			time: Time{Year: 2025, Month: 3, Day: 9, Hour: 1, Minute: 59, Second: 59},
		},
		{
			name: "leap day on leap year",
			time: Time{Year: 2024, Month: 2, Day: 29},
		},
		{
			name:    "leap day on non-leap year",
			time:    Time{Year: 2025, Month: 2, Day: 29},
			wantErr: true,
		},
		{
			name: "century leap year",
			time: Time{Year: 2000, Month: 2, Day: 29},
		},
		{
			name:    "century non-leap year",
			time:    Time{Year: 1900, Month: 2, Day: 29},
			wantErr: true,
		},
		{
			name:    "month zero",
			time:    Time{Year: 2025, Month: 0, Day: 1},
			wantErr: true,
		},
		{
			name:    "month thirteen",
			time:    Time{Year: 2025, Month: 13, Day: 1},
			wantErr: true,
		},
		{
			name:    "day 31 in a 30 day month",
			time:    Time{Year: 2025, Month: 4, Day: 31},
			wantErr: true,
		},
		{
			name:    "hour 24",
			time:    Time{Year: 2025, Month: 1, Day: 1, Hour: 24},
			wantErr: true,
		},
		{
			name:    "second 60",
			time:    Time{Year: 2025, Month: 1, Day: 1, Second: 60},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.time.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStdRoundTrip(t *testing.T) {
	t.Parallel()

	ct := Time{Year: 2025, Month: 3, Day: 9, Hour: 3, Minute: 0, Second: 0}
	require.Equal(t, ct, FromStd(ct.Std()))
}

func TestStampFromStd(t *testing.T) {
	t.Parallel()

	// 2025-01-06 is a Monday.
	st := StampFromStd(time.Date(2025, 1, 6, 12, 30, 0, 0, time.UTC))
	assert.Equal(t, 0, st.Weekday)
	assert.Equal(t, 6, st.YearDay)
	assert.Equal(t, Time{Year: 2025, Month: 1, Day: 6, Hour: 12, Minute: 30}, st.Time)

	// 2025-03-09 is a Sunday.
	st = StampFromStd(time.Date(2025, 3, 9, 1, 59, 59, 0, time.UTC))
	assert.Equal(t, 6, st.Weekday)
	assert.Equal(t, 68, st.YearDay)
}
