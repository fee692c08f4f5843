/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package proxy

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort(1024))
	assert.NoError(t, ValidatePort(1080))
	assert.NoError(t, ValidatePort(65535))

	assert.ErrorIs(t, ValidatePort(0), ErrPortOutOfRange)
	assert.ErrorIs(t, ValidatePort(1023), ErrPortOutOfRange)
	assert.ErrorIs(t, ValidatePort(80), ErrPortOutOfRange)
	assert.ErrorIs(t, ValidatePort(65536), ErrPortOutOfRange)
	assert.ErrorIs(t, ValidatePort(-1), ErrPortOutOfRange)
}

func TestNewPortAllocator_ClampsRange(t *testing.T) {
	a := NewPortAllocator(80, 70000)
	start, end := a.Range()
	assert.Equal(t, MinPort, start)
	assert.Equal(t, MaxPort, end)

	a = NewPortAllocator(1080, 1180)
	start, end = a.Range()
	assert.Equal(t, 1080, start)
	assert.Equal(t, 1180, end)
}

func TestClaim(t *testing.T) {
	a := NewPortAllocator(41000, 41010)

	// Out of bounds rejected before anything else.
	assert.ErrorIs(t, a.Claim(80, nil), ErrPortOutOfRange)

	// Duplicate against another instance.
	claimed := map[int]bool{41005: true}
	assert.ErrorIs(t, a.Claim(41005, claimed), ErrPortInUse)

	// Port held by a foreign process fails the bind probe.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port
	assert.ErrorIs(t, a.Claim(busy, nil), ErrPortInUse)

	// A free port claims fine.
	free := pickFreePort(t)
	assert.NoError(t, a.Claim(free, claimed))
}

func TestAllocate(t *testing.T) {
	// Occupy the first port of the range so Allocate must skip it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	a := NewPortAllocator(busy, busy+20)

	claimed := map[int]bool{busy + 1: true}
	port, err := a.Allocate(claimed)
	require.NoError(t, err)
	assert.NotEqual(t, busy, port, "bound port must be skipped")
	assert.False(t, claimed[port], "claimed port must be skipped")
	assert.GreaterOrEqual(t, port, busy)
	assert.LessOrEqual(t, port, busy+20)
}

func TestAllocate_Exhausted(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	// A single-port range where the only port is claimed.
	a := NewPortAllocator(busy, busy)
	_, err = a.Allocate(nil)
	assert.ErrorIs(t, err, ErrNoFreePorts)
}

func TestIsPortBindable(t *testing.T) {
	free := pickFreePort(t)
	assert.True(t, IsPortBindable(free))

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", free))
	require.NoError(t, err)
	defer ln.Close()
	assert.False(t, IsPortBindable(free))
}

// pickFreePort asks the kernel for an unused port.
func pickFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}
