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

package settings

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/surfproxy/surfproxyX/internal/jsonfile"
	"github.com/surfproxy/surfproxyX/internal/logger"
)

// Service is the settings store. All reads come from memory, every
// update is validated and flushed to the settings file atomically.
// Service 是设置存储。读取走内存，每次更新校验后原子落盘。
type Service struct {
	mu       sync.RWMutex
	path     string
	settings *AppSettings
}

// NewService creates a settings Service persisting to path.
func NewService(path string) *Service {
	return &Service{path: path, settings: DefaultSettings()}
}

// Load reads the settings file. A missing file keeps the defaults, a
// partially filled file gets its gaps defaulted.
// Load 读取设置文件。文件缺失时保留默认值，字段缺口用默认值补齐。
func (s *Service) Load() error {
	var stored AppSettings
	if err := jsonfile.Load(s.path, &stored); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if stored.APIEndpoint == "" {
		stored.APIEndpoint = DefaultAPIEndpoint
	}
	if stored.RefreshIntervalHours <= 0 {
		stored.RefreshIntervalHours = DefaultRefreshIntervalHours
	}
	if stored.EventRetentionDays <= 0 {
		stored.EventRetentionDays = DefaultEventRetentionDays
	}

	s.mu.Lock()
	s.settings = &stored
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *Service) Get() *AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.settings
	return &c
}

// APIEndpoint returns the current vendor endpoint, for the catalog fetcher.
func (s *Service) APIEndpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.APIEndpoint
}

// ApplyEndpointOverride applies the config-file endpoint override on top
// of the loaded settings. An empty override keeps the stored value.
// ApplyEndpointOverride 将配置文件中的接口地址覆盖到已加载的设置上，
// 留空时保留存储的值。
func (s *Service) ApplyEndpointOverride(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || endpoint == s.APIEndpoint() {
		return nil
	}
	_, err := s.Update(ctx, &UpdateRequest{APIEndpoint: &endpoint})
	return err
}

// Update applies a partial update and persists the result.
// Update 应用部分更新并持久化结果。
func (s *Service) Update(ctx context.Context, req *UpdateRequest) (*AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.settings
	if req.AutoStartProxies != nil {
		next.AutoStartProxies = *req.AutoStartProxies
	}
	if req.AutoRestartOnCrash != nil {
		next.AutoRestartOnCrash = *req.AutoRestartOnCrash
	}
	if req.APIEndpoint != nil {
		endpoint := strings.TrimSpace(*req.APIEndpoint)
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return nil, ErrInvalidEndpoint
		}
		next.APIEndpoint = endpoint
	}
	if req.RefreshIntervalHours != nil {
		if *req.RefreshIntervalHours <= 0 {
			return nil, ErrInvalidInterval
		}
		next.RefreshIntervalHours = *req.RefreshIntervalHours
	}
	if req.EventRetentionDays != nil {
		if *req.EventRetentionDays <= 0 {
			return nil, ErrInvalidInterval
		}
		next.EventRetentionDays = *req.EventRetentionDays
	}

	if err := jsonfile.Save(s.path, &next); err != nil {
		return nil, err
	}
	s.settings = &next

	logger.InfoF(ctx, "[Settings] 设置已更新: auto_start=%v, auto_restart=%v, retention=%dd",
		next.AutoStartProxies, next.AutoRestartOnCrash, next.EventRetentionDays)
	c := next
	return &c, nil
}
