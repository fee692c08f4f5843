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

// Package events records the lifecycle history of proxy instances for the SurfProxyX system.
// events 包为 SurfProxyX 系统记录代理实例的生命周期历史。
package events

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// EventType classifies a proxy lifecycle event.
// EventType 表示代理生命周期事件的类型。
type EventType string

const (
	// EventCreated indicates a proxy instance was created.
	// EventCreated 表示代理实例已创建。
	EventCreated EventType = "created"
	// EventStarted indicates a proxy instance came up and passed its startup checks.
	// EventStarted 表示代理实例已启动并通过启动检查。
	EventStarted EventType = "started"
	// EventStopped indicates a proxy instance was stopped on request.
	// EventStopped 表示代理实例被主动停止。
	EventStopped EventType = "stopped"
	// EventCrashed indicates the wireproxy process died without being asked to.
	// EventCrashed 表示 wireproxy 进程意外退出。
	EventCrashed EventType = "crashed"
	// EventRestarted indicates a proxy instance was restarted, automatically or on request.
	// EventRestarted 表示代理实例被重启（自动或手动）。
	EventRestarted EventType = "restarted"
	// EventResourceKill indicates the watchdog killed the process for resource abuse.
	// EventResourceKill 表示看门狗因资源占用过高而终止进程。
	EventResourceKill EventType = "resource_kill"
	// EventDeleted indicates a proxy instance was removed.
	// EventDeleted 表示代理实例已删除。
	EventDeleted EventType = "deleted"
)

// EventDetails carries free-form context for an event, such as exit
// codes, restart counts or CPU readings.
// EventDetails 携带事件的附加上下文，如退出码、重启次数或 CPU 读数。
type EventDetails map[string]interface{}

// Value implements the driver.Valuer interface for database storage.
// Value 实现 driver.Valuer 接口用于数据库存储。
func (d EventDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for database retrieval.
// Scan 实现 sql.Scanner 接口用于数据库读取。
func (d *EventDetails) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("events: failed to scan EventDetails - expected []byte")
	}
	return json.Unmarshal(bytes, d)
}

// ProxyEvent is one lifecycle event of a proxy instance.
// ProxyEvent 表示代理实例的一条生命周期事件。
type ProxyEvent struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	InstanceID string       `json:"instance_id" gorm:"size:50;not null;index"`
	Type       EventType    `json:"type" gorm:"size:30;not null;index"`
	PID        int          `json:"pid"`
	Port       int          `json:"port"`
	Selection  string       `json:"selection" gorm:"size:200"`
	Details    EventDetails `json:"details" gorm:"type:json"`
	OccurredAt time.Time    `json:"occurred_at" gorm:"not null;index"`
	CreatedAt  time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the ProxyEvent model.
// TableName 指定 ProxyEvent 模型的表名。
func (ProxyEvent) TableName() string {
	return "proxy_events"
}

// EventFilter represents filter criteria for querying proxy events.
// EventFilter 表示查询代理事件的过滤条件。
type EventFilter struct {
	InstanceID string     `json:"instance_id" form:"instance_id"`
	Type       EventType  `json:"type" form:"type"`
	StartTime  *time.Time `json:"start_time" form:"start_time"`
	EndTime    *time.Time `json:"end_time" form:"end_time"`
	Page       int        `json:"page" form:"page"`
	PageSize   int        `json:"page_size" form:"page_size"`
}

// EventInfo represents proxy event information for API responses.
// EventInfo 表示 API 响应的代理事件信息。
type EventInfo struct {
	ID         uint         `json:"id"`
	InstanceID string       `json:"instance_id"`
	Type       EventType    `json:"type"`
	PID        int          `json:"pid"`
	Port       int          `json:"port"`
	Selection  string       `json:"selection"`
	Details    EventDetails `json:"details"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// ToEventInfo converts a ProxyEvent to EventInfo.
// ToEventInfo 将 ProxyEvent 转换为 EventInfo。
func (e *ProxyEvent) ToEventInfo() *EventInfo {
	return &EventInfo{
		ID:         e.ID,
		InstanceID: e.InstanceID,
		Type:       e.Type,
		PID:        e.PID,
		Port:       e.Port,
		Selection:  e.Selection,
		Details:    e.Details,
		OccurredAt: e.OccurredAt,
	}
}
