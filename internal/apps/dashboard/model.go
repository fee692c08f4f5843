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

// Package dashboard aggregates instance, catalog and event data into a
// single overview for the SurfProxyX system.
// dashboard 包将实例、目录和事件数据聚合为 SurfProxyX 系统的概览。
package dashboard

import (
	"time"

	"github.com/surfproxy/surfproxyX/internal/apps/events"
)

// OverviewStats represents the headline instance counters.
// OverviewStats 表示实例核心计数。
type OverviewStats struct {
	TotalInstances    int `json:"total_instances"`
	RunningInstances  int `json:"running_instances"`
	StoppedInstances  int `json:"stopped_instances"`
	StartingInstances int `json:"starting_instances"`
	ErrorInstances    int `json:"error_instances"`
}

// CatalogSummary summarizes the loaded server catalog.
// CatalogSummary 表示已加载服务器目录的摘要。
type CatalogSummary struct {
	Servers     int       `json:"servers"`
	Countries   int       `json:"countries"`
	Locations   int       `json:"locations"`
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// OverviewData represents the complete dashboard overview data.
// OverviewData 表示完整的仪表盘概览数据。
type OverviewData struct {
	Stats        *OverviewStats             `json:"stats"`
	Catalog      *CatalogSummary            `json:"catalog"`
	EventCounts  map[events.EventType]int64 `json:"event_counts"`
	RecentEvents []*events.EventInfo        `json:"recent_events"`
}

// DashboardDataResponse wraps dashboard responses.
// DashboardDataResponse 封装仪表盘响应。
type DashboardDataResponse struct {
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data"`
}
