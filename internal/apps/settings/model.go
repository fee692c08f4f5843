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

// Package settings stores runtime-adjustable application settings for the SurfProxyX system.
// settings 包为 SurfProxyX 系统存储运行时可调的应用设置。
//
// Unlike the static daemon configuration, these values can be changed
// through the API without a restart and survive in a JSON file next to
// the instance state.
// 与静态守护进程配置不同，这些值可通过 API 在线修改，无需重启，
// 持久化在实例状态旁的 JSON 文件中。
package settings

import "errors"

// DefaultAPIEndpoint is the SurfShark cluster list endpoint.
// DefaultAPIEndpoint 是 SurfShark 集群列表接口地址。
const DefaultAPIEndpoint = "https://api.surfshark.com/v4/server/clusters/generic"

// Default knob values.
const (
	DefaultRefreshIntervalHours = 6
	DefaultEventRetentionDays   = 30
)

// Error definitions for settings operations.
var (
	// ErrInvalidEndpoint indicates the API endpoint is not an http(s) URL.
	ErrInvalidEndpoint = errors.New("settings: api endpoint must be an http or https URL")
	// ErrInvalidInterval indicates a refresh or retention knob is not positive.
	ErrInvalidInterval = errors.New("settings: intervals must be positive")
)

// Error codes for settings operations.
const (
	ErrCodeInvalidEndpoint = 4301
	ErrCodeInvalidInterval = 4302
)

// AppSettings are the runtime-adjustable knobs of the daemon.
// AppSettings 是守护进程的运行时可调参数。
type AppSettings struct {
	// AutoStartProxies restores previously running tunnels at boot.
	// AutoStartProxies 控制启动时是否恢复先前运行的隧道。
	AutoStartProxies bool `json:"auto_start_proxies"`
	// AutoRestartOnCrash enables crash restart for opted-in instances.
	// AutoRestartOnCrash 控制已开启自动重启的实例崩溃后是否拉起。
	AutoRestartOnCrash bool `json:"auto_restart_on_crash"`
	// APIEndpoint is the vendor server list URL.
	// APIEndpoint 是服务器列表接口地址。
	APIEndpoint string `json:"api_endpoint"`
	// RefreshIntervalHours is the periodic catalog refresh interval.
	// RefreshIntervalHours 是目录定时刷新间隔（小时）。
	RefreshIntervalHours int `json:"refresh_interval_hours"`
	// EventRetentionDays is how long proxy events are kept.
	// EventRetentionDays 是代理事件的保留天数。
	EventRetentionDays int `json:"event_retention_days"`
}

// DefaultSettings returns the settings used on first boot.
// DefaultSettings 返回首次启动时使用的设置。
func DefaultSettings() *AppSettings {
	return &AppSettings{
		AutoStartProxies:     true,
		AutoRestartOnCrash:   false,
		APIEndpoint:          DefaultAPIEndpoint,
		RefreshIntervalHours: DefaultRefreshIntervalHours,
		EventRetentionDays:   DefaultEventRetentionDays,
	}
}

// UpdateRequest carries a partial settings update, nil fields are left
// unchanged.
// UpdateRequest 携带部分更新，nil 字段保持原值。
type UpdateRequest struct {
	AutoStartProxies     *bool   `json:"auto_start_proxies"`
	AutoRestartOnCrash   *bool   `json:"auto_restart_on_crash"`
	APIEndpoint          *string `json:"api_endpoint"`
	RefreshIntervalHours *int    `json:"refresh_interval_hours"`
	EventRetentionDays   *int    `json:"event_retention_days"`
}
