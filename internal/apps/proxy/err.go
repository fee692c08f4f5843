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

import "errors"

// Error definitions for proxy instance operations.
var (
	// ErrInstanceNotFound indicates the requested proxy instance does not exist.
	ErrInstanceNotFound = errors.New("proxy: instance not found")
	// ErrInstanceAlreadyRunning indicates a start was requested for a running instance.
	ErrInstanceAlreadyRunning = errors.New("proxy: instance is already running")
	// ErrInstanceNotRunning indicates a stop was requested for a stopped instance.
	ErrInstanceNotRunning = errors.New("proxy: instance is not running")
	// ErrPortOutOfRange indicates the requested port is outside 1024-65535.
	ErrPortOutOfRange = errors.New("proxy: port must be between 1024 and 65535")
	// ErrPortInUse indicates the requested port is taken by another instance or process.
	ErrPortInUse = errors.New("proxy: port is already in use")
	// ErrNoFreePorts indicates the configured port range is exhausted.
	ErrNoFreePorts = errors.New("proxy: no free port in the configured range")
	// ErrPrivateKeyNotSet indicates no WireGuard private key is configured.
	ErrPrivateKeyNotSet = errors.New("proxy: surfshark private key is not configured")
	// ErrSelfTestFailed indicates the SOCKS5 connectivity check through the tunnel failed.
	ErrSelfTestFailed = errors.New("proxy: socks5 self test failed")
)

// Error codes for proxy instance operations.
const (
	ErrCodeInstanceNotFound       = 4201
	ErrCodeInstanceAlreadyRunning = 4202
	ErrCodeInstanceNotRunning     = 4203
	ErrCodePortOutOfRange         = 4204
	ErrCodePortInUse              = 4205
	ErrCodeNoFreePorts            = 4206
	ErrCodePrivateKeyNotSet       = 4207
	ErrCodeSelfTestFailed         = 4208
)
