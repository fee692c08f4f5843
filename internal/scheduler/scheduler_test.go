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

package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/apps/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEventRepo(t *testing.T) *events.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "events.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&events.ProxyEvent{}))
	return events.NewRepository(db)
}

func TestCleanupEvents(t *testing.T) {
	repo := setupEventRepo(t)
	ctx := context.Background()

	old := &events.ProxyEvent{
		InstanceID: "abcd1234",
		Type:       events.EventStopped,
		OccurredAt: time.Now().AddDate(0, 0, -10),
	}
	recent := &events.ProxyEvent{
		InstanceID: "abcd1234",
		Type:       events.EventStarted,
		OccurredAt: time.Now(),
	}
	require.NoError(t, repo.CreateEvent(ctx, old))
	require.NoError(t, repo.CreateEvent(ctx, recent))

	settingsSvc := settings.NewService(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, settingsSvc.Load())
	days := 7
	_, err := settingsSvc.Update(ctx, &settings.UpdateRequest{EventRetentionDays: &days})
	require.NoError(t, err)

	sched := NewScheduler(nil, repo, settingsSvc)
	require.NoError(t, sched.CleanupEvents(ctx))

	remaining, total, err := repo.ListEvents(ctx, &events.EventFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, remaining, 1)
	assert.Equal(t, events.EventStarted, remaining[0].Type)
}

func TestCleanupEvents_NoRepo(t *testing.T) {
	sched := NewScheduler(nil, nil, nil)
	assert.NoError(t, sched.CleanupEvents(context.Background()))
}

func TestRefreshInterval(t *testing.T) {
	settingsSvc := settings.NewService(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, settingsSvc.Load())

	sched := NewScheduler(nil, nil, settingsSvc)
	assert.Equal(t, time.Duration(settings.DefaultRefreshIntervalHours)*time.Hour, sched.refreshInterval())

	hours := 2
	_, err := settingsSvc.Update(context.Background(), &settings.UpdateRequest{RefreshIntervalHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, sched.refreshInterval())

	// 没有设置服务时退回默认值
	bare := NewScheduler(nil, nil, nil)
	assert.Equal(t, time.Duration(settings.DefaultRefreshIntervalHours)*time.Hour, bare.refreshInterval())
}
