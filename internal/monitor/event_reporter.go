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

package monitor

import (
	"fmt"
	"sync"
	"time"
)

// DefaultEventCacheSize is the default size of the event cache
// DefaultEventCacheSize 是事件缓存的默认大小
const DefaultEventCacheSize = 1000

// DefaultBatchSize is the default batch size for event persistence
// DefaultBatchSize 是事件持久化的默认批量大小
const DefaultBatchSize = 50

// DefaultFlushInterval is the default interval between flush attempts
// DefaultFlushInterval 是两次刷新尝试之间的默认间隔
const DefaultFlushInterval = 5 * time.Second

// EventPersistFunc persists a batch of events, a returned error keeps
// the batch cached for the next attempt
// EventPersistFunc 持久化一批事件，返回错误时该批次保留在缓存中等待下次尝试
type EventPersistFunc func(events []*ProcessEvent) error

// EventReporter buffers lifecycle events and writes them out in batches
// EventReporter 缓冲生命周期事件并批量写出
// Lifecycle paths never block on storage, a slow or briefly locked
// database only delays history, it cannot stall a tunnel operation.
// 生命周期路径不会阻塞在存储上，数据库短暂变慢或加锁只会延迟历史记录，
// 不会卡住隧道操作。
type EventReporter struct {
	eventCache    []*ProcessEvent
	cacheSize     int
	batchSize     int
	persistFunc   EventPersistFunc
	flushInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	mu            sync.Mutex
}

// NewEventReporter creates a new EventReporter instance
// NewEventReporter 创建一个新的 EventReporter 实例
func NewEventReporter(persistFunc EventPersistFunc) *EventReporter {
	return &EventReporter{
		eventCache:    make([]*ProcessEvent, 0, DefaultEventCacheSize),
		cacheSize:     DefaultEventCacheSize,
		batchSize:     DefaultBatchSize,
		persistFunc:   persistFunc,
		flushInterval: DefaultFlushInterval,
		stopCh:        make(chan struct{}),
	}
}

// SetCacheSize sets the maximum cache size
// SetCacheSize 设置最大缓存大小
func (r *EventReporter) SetCacheSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.cacheSize = size
	}
}

// SetBatchSize sets the batch size for persistence
// SetBatchSize 设置持久化的批量大小
func (r *EventReporter) SetBatchSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if size > 0 {
		r.batchSize = size
	}
}

// SetFlushInterval sets the interval between flush attempts
// SetFlushInterval 设置两次刷新尝试之间的间隔
func (r *EventReporter) SetFlushInterval(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interval > 0 {
		r.flushInterval = interval
	}
}

// Start starts the periodic flush goroutine
// Start 启动定期刷新 goroutine
func (r *EventReporter) Start() {
	go r.flushLoop()
}

// Stop stops the event reporter and drains remaining events
// Stop 停止事件上报器并写出剩余事件
func (r *EventReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.FlushEvents()
}

// flushLoop periodically flushes events
// flushLoop 定期刷新事件
func (r *EventReporter) flushLoop() {
	r.mu.Lock()
	interval := r.flushInterval
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.FlushEvents()
		}
	}
}

// ReportEvent adds an event to the cache
// ReportEvent 将事件添加到缓存
func (r *EventReporter) ReportEvent(event *ProcessEvent) {
	if event == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop the oldest event when the cache is full / 缓存满时丢弃最旧的事件
	if len(r.eventCache) >= r.cacheSize {
		r.eventCache = r.eventCache[1:]
	}
	r.eventCache = append(r.eventCache, event)

	// Persist right away once a full batch is waiting
	// 积满一个批次后立即持久化
	if len(r.eventCache) >= r.batchSize {
		go r.FlushEvents()
	}
}

// FlushEvents attempts to persist all cached events
// FlushEvents 尝试持久化所有缓存的事件
func (r *EventReporter) FlushEvents() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushEventsLocked()
}

// flushEventsLocked flushes events (must be called with lock held)
// flushEventsLocked 刷新事件（必须在持有锁的情况下调用）
func (r *EventReporter) flushEventsLocked() {
	if r.persistFunc == nil {
		return
	}

	// Persist in batches / 批量持久化
	for len(r.eventCache) > 0 {
		batchEnd := r.batchSize
		if batchEnd > len(r.eventCache) {
			batchEnd = len(r.eventCache)
		}

		batch := r.eventCache[:batchEnd]
		if err := r.persistFunc(batch); err != nil {
			fmt.Printf("[EventReporter] Failed to persist events: %v / 持久化事件失败：%v\n", err, err)
			// Keep events in cache for retry / 保留事件在缓存中以便重试
			return
		}

		// Remove persisted events from cache / 从缓存中移除已持久化的事件
		r.eventCache = r.eventCache[batchEnd:]
	}
}

// GetCachedEventCount returns the number of cached events
// GetCachedEventCount 返回缓存的事件数量
func (r *EventReporter) GetCachedEventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.eventCache)
}

// ClearCache clears all cached events
// ClearCache 清除所有缓存的事件
func (r *EventReporter) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventCache = make([]*ProcessEvent, 0, r.cacheSize)
	fmt.Println("[EventReporter] Cache cleared / 缓存已清除")
}
