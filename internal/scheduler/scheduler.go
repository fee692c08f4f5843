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

// Package scheduler 提供目录刷新和事件清理的定时任务
// Package scheduler runs the periodic catalog refresh and event cleanup.
//
// When redis is enabled the jobs run through an asynq server/scheduler
// pair so multiple daemons share one queue; otherwise a plain in-process
// ticker loop does the same work.
// redis 启用时任务走 asynq 的 server/scheduler，多个进程共享同一队列；
// 否则由进程内 ticker 循环完成同样的工作。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/apps/settings"
	"github.com/surfproxy/surfproxyX/internal/config"
	"github.com/surfproxy/surfproxyX/internal/logger"
)

// 任务类型
const (
	TaskTypeRefreshServers = "catalog:refresh"
	TaskTypeCleanupEvents  = "events:cleanup"
)

// DefaultCleanupIntervalHours 事件清理的兜底间隔（小时）
const DefaultCleanupIntervalHours = 24

// Scheduler 定时任务调度器
type Scheduler struct {
	catalogSvc  *catalog.Service
	eventRepo   *events.Repository
	settingsSvc *settings.Service

	asynqServer    *asynq.Server
	asynqScheduler *asynq.Scheduler

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler 创建调度器。eventRepo 可以为 nil（无数据库时跳过清理）。
func NewScheduler(catalogSvc *catalog.Service, eventRepo *events.Repository, settingsSvc *settings.Service) *Scheduler {
	return &Scheduler{
		catalogSvc:  catalogSvc,
		eventRepo:   eventRepo,
		settingsSvc: settingsSvc,
		stopCh:      make(chan struct{}),
	}
}

// Start 启动调度器，非阻塞
func (s *Scheduler) Start(ctx context.Context) error {
	if config.IsRedisEnabled() {
		return s.startAsynq(ctx)
	}
	s.startTickers(ctx)
	return nil
}

// Stop 停止调度器并等待在途任务完成
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.asynqScheduler != nil {
		s.asynqScheduler.Shutdown()
	}
	if s.asynqServer != nil {
		s.asynqServer.Shutdown()
	}
	s.wg.Wait()
}

// RefreshServers 强制刷新服务器目录
func (s *Scheduler) RefreshServers(ctx context.Context) error {
	result, err := s.catalogSvc.Refresh(ctx, true)
	if err != nil {
		logger.WarnF(ctx, "[Scheduler] 定时刷新目录失败: %v", err)
		return err
	}
	logger.InfoF(ctx, "[Scheduler] 目录已刷新: %d 台服务器 (来源 %s)", result.Count, result.Source)
	return nil
}

// CleanupEvents 按保留期清理事件历史
func (s *Scheduler) CleanupEvents(ctx context.Context) error {
	if s.eventRepo == nil {
		return nil
	}

	retentionDays := settings.DefaultEventRetentionDays
	if s.settingsSvc != nil {
		retentionDays = s.settingsSvc.Get().EventRetentionDays
	}

	before := time.Now().AddDate(0, 0, -retentionDays)
	removed, err := s.eventRepo.DeleteEventsBefore(ctx, before)
	if err != nil {
		logger.WarnF(ctx, "[Scheduler] 清理事件失败: %v", err)
		return err
	}
	if removed > 0 {
		logger.InfoF(ctx, "[Scheduler] 已清理 %d 条超过 %d 天的事件", removed, retentionDays)
	}
	return nil
}

// startAsynq 以 asynq 模式启动：server 消费任务，scheduler 按 cron 入队
func (s *Scheduler) startAsynq(ctx context.Context) error {
	redisCfg := config.Config.Redis
	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Username: redisCfg.Username,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	concurrency := config.Config.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	s.asynqServer = asynq.NewServer(redisOpt, asynq.Config{Concurrency: concurrency})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeRefreshServers, func(ctx context.Context, _ *asynq.Task) error {
		return s.RefreshServers(ctx)
	})
	mux.HandleFunc(TaskTypeCleanupEvents, func(ctx context.Context, _ *asynq.Task) error {
		return s.CleanupEvents(ctx)
	})
	if err := s.asynqServer.Start(mux); err != nil {
		return fmt.Errorf("scheduler: start asynq server: %w", err)
	}

	s.asynqScheduler = asynq.NewScheduler(redisOpt, nil)
	schedule := config.Config.Schedule
	if _, err := s.asynqScheduler.Register(schedule.RefreshServersCron, asynq.NewTask(TaskTypeRefreshServers, nil)); err != nil {
		return fmt.Errorf("scheduler: register refresh cron: %w", err)
	}
	if _, err := s.asynqScheduler.Register(schedule.CleanupEventsCron, asynq.NewTask(TaskTypeCleanupEvents, nil)); err != nil {
		return fmt.Errorf("scheduler: register cleanup cron: %w", err)
	}
	if err := s.asynqScheduler.Start(); err != nil {
		return fmt.Errorf("scheduler: start asynq scheduler: %w", err)
	}

	logger.InfoF(ctx, "[Scheduler] asynq 调度已启动: refresh=%q cleanup=%q concurrency=%d",
		schedule.RefreshServersCron, schedule.CleanupEventsCron, concurrency)
	return nil
}

// startTickers 以进程内 ticker 模式启动
func (s *Scheduler) startTickers(ctx context.Context) {
	refreshEvery := s.refreshInterval()
	cleanupEvery := time.Duration(config.Config.Schedule.CleanupIntervalHours) * time.Hour
	if cleanupEvery <= 0 {
		cleanupEvery = DefaultCleanupIntervalHours * time.Hour
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(refreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				_ = s.RefreshServers(context.Background())
				// 设置里的刷新间隔可能在线修改过
				if next := s.refreshInterval(); next != refreshEvery {
					refreshEvery = next
					ticker.Reset(refreshEvery)
				}
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				_ = s.CleanupEvents(context.Background())
			}
		}
	}()

	logger.InfoF(ctx, "[Scheduler] ticker 调度已启动: refresh=%s cleanup=%s", refreshEvery, cleanupEvery)
}

func (s *Scheduler) refreshInterval() time.Duration {
	hours := settings.DefaultRefreshIntervalHours
	if s.settingsSvc != nil {
		hours = s.settingsSvc.Get().RefreshIntervalHours
	}
	if hours <= 0 {
		hours = settings.DefaultRefreshIntervalHours
	}
	return time.Duration(hours) * time.Hour
}
