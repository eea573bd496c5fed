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

package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockDisplay is a mock implementation of display.Display for testing.
type MockDisplay struct {
	mock.Mock
	name string
}

// NewMockDisplay creates a new mock display with the given slot name.
func NewMockDisplay(name string) *MockDisplay {
	return &MockDisplay{name: name}
}

func (m *MockDisplay) Name() string {
	return m.name
}

// PrintText mocks rendering text to the display.
func (m *MockDisplay) PrintText(text string, colon bool, dots uint8) error {
	args := m.Called(text, colon, dots)
	return args.Error(0)
}

// Clear mocks blanking the display.
func (m *MockDisplay) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// SetBrightness mocks the brightness command.
func (m *MockDisplay) SetBrightness(level uint8) error {
	args := m.Called(level)
	return args.Error(0)
}
