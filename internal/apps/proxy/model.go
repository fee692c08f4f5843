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

// Package proxy manages wireproxy tunnel instances for the SurfProxyX system.
// proxy 包为 SurfProxyX 系统管理 wireproxy 隧道实例。
//
// An instance pins one SurfShark server and one local SOCKS5 port. The
// package owns the instance registry, port allocation, lifecycle
// operations and the persisted state file used for boot restore.
// 一个实例固定一台 SurfShark 服务器和一个本地 SOCKS5 端口。本包负责
// 实例注册表、端口分配、生命周期操作以及用于启动恢复的状态持久化。
package proxy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
)

// InstanceStatus represents the lifecycle state of a proxy instance.
// InstanceStatus 表示代理实例的生命周期状态。
type InstanceStatus string

const (
	// StatusStopped indicates the instance exists but no tunnel is running.
	// StatusStopped 表示实例存在但隧道未运行。
	StatusStopped InstanceStatus = "stopped"
	// StatusStarting indicates the tunnel is being brought up.
	// StatusStarting 表示隧道正在启动。
	StatusStarting InstanceStatus = "starting"
	// StatusRunning indicates the tunnel process is up.
	// StatusRunning 表示隧道进程正在运行。
	StatusRunning InstanceStatus = "running"
	// StatusError indicates the last operation on the instance failed.
	// StatusError 表示实例的最近一次操作失败。
	StatusError InstanceStatus = "error"
)

// StateVersion marks the layout of the persisted state file.
const StateVersion = "1.0"

// instanceIDLength is the length of generated instance IDs.
// A UUID prefix is short enough to type and unique enough for one host.
// instanceIDLength 是生成的实例 ID 长度，UUID 前缀在单机规模下足够唯一。
const instanceIDLength = 8

// NewInstanceID generates a short unique instance identifier.
// NewInstanceID 生成短的唯一实例标识符。
func NewInstanceID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:instanceIDLength]
}

// Instance is one configured proxy tunnel.
// The pinned Server snapshot keeps restarts deterministic even when the
// catalog has been refreshed since creation.
// Instance 表示一条已配置的代理隧道。固定的 Server 快照保证即使目录
// 已刷新，重启仍然连接同一台服务器。
type Instance struct {
	ID                 string         `json:"id"`
	Selection          string         `json:"selection"`
	Country            string         `json:"country"`
	Location           string         `json:"location"`
	Port               int            `json:"port"`
	Server             catalog.Server `json:"server"`
	Status             InstanceStatus `json:"status"`
	AutoRestart        bool           `json:"auto_restart"`
	Running            bool           `json:"running"`
	CreatedAt          time.Time      `json:"created_at"`
	StartTime          time.Time      `json:"start_time,omitempty"`
	ConnectionAttempts int            `json:"connection_attempts"`
	ConfigPath         string         `json:"config_path,omitempty"`
	LastError          string         `json:"last_error,omitempty"`
}

// Clone returns a copy of the instance.
func (i *Instance) Clone() *Instance {
	c := *i
	return &c
}

// StateEnvelope is the on-disk shape of the instance state file.
// The Running flags drive boot restore: instances that had a live
// tunnel when the state was last saved are brought back up.
// StateEnvelope 是实例状态文件的磁盘结构。Running 标记驱动启动恢复：
// 上次保存时隧道仍在运行的实例会被重新拉起。
type StateEnvelope struct {
	Instances []*Instance `json:"instances"`
	SavedAt   time.Time   `json:"saved_at"`
	Version   string      `json:"version"`
}

// InstanceInfo represents proxy instance information for API responses.
// InstanceInfo 表示 API 响应的代理实例信息。
type InstanceInfo struct {
	ID                 string         `json:"id"`
	Selection          string         `json:"selection"`
	Country            string         `json:"country"`
	Location           string         `json:"location"`
	Port               int            `json:"port"`
	SocksAddress       string         `json:"socks_address"`
	ConnectionName     string         `json:"connection_name"`
	Load               int            `json:"load"`
	Status             InstanceStatus `json:"status"`
	AutoRestart        bool           `json:"auto_restart"`
	PID                int            `json:"pid,omitempty"`
	UptimeSeconds      float64        `json:"uptime_seconds,omitempty"`
	CPUUsage           float64        `json:"cpu_usage,omitempty"`
	MemoryUsage        int64          `json:"memory_usage,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	StartTime          *time.Time     `json:"start_time,omitempty"`
	ConnectionAttempts int            `json:"connection_attempts"`
	LastError          string         `json:"last_error,omitempty"`
}
