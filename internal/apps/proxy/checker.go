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
	"context"
	"fmt"
	"net"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// Self test defaults.
// 自检默认值。
const (
	// DefaultSelfTestDelay is how long after start the tunnel gets
	// before the first connectivity probe. wireproxy needs a moment to
	// finish the WireGuard handshake.
	// DefaultSelfTestDelay 是启动后首次连通性探测前的等待时长，
	// wireproxy 需要一点时间完成 WireGuard 握手。
	DefaultSelfTestDelay = 2 * time.Second

	// DefaultSelfTestTimeout bounds the whole probe.
	// DefaultSelfTestTimeout 限制整次探测的时长。
	DefaultSelfTestTimeout = 10 * time.Second
)

// SelfTest dials the check target through the local SOCKS5 listener to
// verify the tunnel actually forwards traffic. A listening port with a
// dead tunnel behind it accepts the SOCKS handshake but fails the
// upstream connect, which this catches.
// SelfTest 通过本地 SOCKS5 监听连接检查目标，验证隧道确实能转发流量。
// 端口在监听但隧道已死时握手会成功而上游连接失败，此处能够捕获。
func SelfTest(ctx context.Context, port int, target string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultSelfTestTimeout
	}

	forward := &net.Dialer{Timeout: timeout}
	dialer, err := xproxy.SOCKS5("tcp", fmt.Sprintf("127.0.0.1:%d", port), nil, forward)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSelfTestFailed, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var conn net.Conn
	if cd, ok := dialer.(xproxy.ContextDialer); ok {
		conn, err = cd.DialContext(dialCtx, "tcp", target)
	} else {
		conn, err = dialer.Dial("tcp", target)
	}
	if err != nil {
		return fmt.Errorf("%w: dial %s via 127.0.0.1:%d: %v", ErrSelfTestFailed, target, port, err)
	}
	conn.Close()
	return nil
}
