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
)

// Valid port bounds for user supplied ports.
// 用户指定端口的有效范围。
const (
	MinPort = 1024
	MaxPort = 65535
)

// PortAllocator hands out local SOCKS5 ports from a configured range.
// Ports claimed by other instances are excluded by the caller, actual
// bindability is verified with a TCP bind probe.
// PortAllocator 从配置范围内分配本地 SOCKS5 端口。其他实例占用的
// 端口由调用者排除，实际可绑定性通过 TCP 绑定探测验证。
type PortAllocator struct {
	rangeStart int
	rangeEnd   int
}

// NewPortAllocator creates a PortAllocator over [start, end].
func NewPortAllocator(start, end int) *PortAllocator {
	if start < MinPort {
		start = MinPort
	}
	if end > MaxPort || end < start {
		end = MaxPort
	}
	return &PortAllocator{rangeStart: start, rangeEnd: end}
}

// ValidatePort rejects ports outside the allowed bounds.
// ValidatePort 拒绝范围之外的端口。
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: got %d", ErrPortOutOfRange, port)
	}
	return nil
}

// IsPortBindable reports whether a local TCP listener can be opened on
// the port right now.
// IsPortBindable 报告当前是否能在该端口打开本地 TCP 监听。
func IsPortBindable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Claim validates a user requested port: bounds, duplicates against the
// claimed set, and a bind probe against the rest of the system.
// Claim 校验用户指定端口：范围、与已占用集合的冲突、以及对系统其余
// 部分的绑定探测。
func (a *PortAllocator) Claim(port int, claimed map[int]bool) error {
	if err := ValidatePort(port); err != nil {
		return err
	}
	if claimed[port] {
		return fmt.Errorf("%w: port %d is claimed by another instance", ErrPortInUse, port)
	}
	if !IsPortBindable(port) {
		return fmt.Errorf("%w: port %d is taken by another process", ErrPortInUse, port)
	}
	return nil
}

// Allocate returns the first free bindable port in the range that is
// not in the claimed set.
// Allocate 返回范围内第一个未被占用且可绑定的端口。
func (a *PortAllocator) Allocate(claimed map[int]bool) (int, error) {
	for port := a.rangeStart; port <= a.rangeEnd; port++ {
		if claimed[port] {
			continue
		}
		if IsPortBindable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w: %d-%d exhausted", ErrNoFreePorts, a.rangeStart, a.rangeEnd)
}

// Range returns the configured port range.
func (a *PortAllocator) Range() (start, end int) {
	return a.rangeStart, a.rangeEnd
}
