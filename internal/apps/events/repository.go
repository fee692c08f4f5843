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

package events

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository provides data access operations for ProxyEvent entities.
// Repository 提供 ProxyEvent 实体的数据访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateEvent creates a new proxy event record in the database.
// CreateEvent 在数据库中创建新的代理事件记录。
func (r *Repository) CreateEvent(ctx context.Context, event *ProxyEvent) error {
	if event.Type == "" {
		return ErrEventTypeEmpty
	}
	if event.InstanceID == "" {
		return ErrInstanceIDEmpty
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// BatchCreateEvents inserts a batch of proxy events in one statement.
// Invalid entries fail the whole batch so the caller can retry it.
// BatchCreateEvents 批量插入代理事件，单条校验失败会使整批失败以便重试。
func (r *Repository) BatchCreateEvents(ctx context.Context, batch []*ProxyEvent) error {
	if len(batch) == 0 {
		return nil
	}
	for _, event := range batch {
		if event.Type == "" {
			return ErrEventTypeEmpty
		}
		if event.InstanceID == "" {
			return ErrInstanceIDEmpty
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = time.Now()
		}
	}
	return r.db.WithContext(ctx).Create(batch).Error
}

// GetEventByID retrieves a proxy event by its ID.
// GetEventByID 通过 ID 获取代理事件。
// Returns ErrEventNotFound if the event does not exist.
// 如果事件不存在，则返回 ErrEventNotFound。
func (r *Repository) GetEventByID(ctx context.Context, id uint) (*ProxyEvent, error) {
	var event ProxyEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListEvents retrieves proxy events based on filter criteria with pagination.
// ListEvents 根据过滤条件和分页获取代理事件列表。
// Returns the list of events and total count.
// 返回事件列表和总数。
func (r *Repository) ListEvents(ctx context.Context, filter *EventFilter) ([]*ProxyEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&ProxyEvent{})

	// Apply filters - 应用过滤条件
	if filter != nil {
		if filter.InstanceID != "" {
			query = query.Where("instance_id = ?", filter.InstanceID)
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
		if filter.StartTime != nil {
			query = query.Where("occurred_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("occurred_at <= ?", *filter.EndTime)
		}
	}

	// Get total count - 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination - 应用分页
	if filter != nil && filter.PageSize > 0 {
		offset := 0
		if filter.Page > 0 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Execute query - 执行查询
	var list []*ProxyEvent
	if err := query.Order("occurred_at DESC").Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// ListRecentEvents returns the newest events across all instances.
// ListRecentEvents 返回所有实例中最新的事件。
func (r *Repository) ListRecentEvents(ctx context.Context, limit int) ([]*ProxyEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []*ProxyEvent
	if err := r.db.WithContext(ctx).Order("occurred_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CountEventsByType returns how many events of each type exist.
// CountEventsByType 按类型统计事件数量。
func (r *Repository) CountEventsByType(ctx context.Context) (map[EventType]int64, error) {
	type row struct {
		Type  EventType
		Count int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&ProxyEvent{}).
		Select("type, count(*) as count").Group("type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[EventType]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Type] = rw.Count
	}
	return counts, nil
}

// DeleteEventsBefore deletes proxy events that occurred before the specified time.
// DeleteEventsBefore 删除指定时间之前发生的代理事件。
// This is useful for implementing event retention policies.
// 这对于实现事件保留策略很有用。
func (r *Repository) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("occurred_at < ?", before).Delete(&ProxyEvent{})
	return result.RowsAffected, result.Error
}

// DeleteEventsByInstance removes all events of one instance.
// DeleteEventsByInstance 删除某个实例的全部事件。
func (r *Repository) DeleteEventsByInstance(ctx context.Context, instanceID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).Delete(&ProxyEvent{})
	return result.RowsAffected, result.Error
}
