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

package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/surfproxy/surfproxyX/internal/logger"
)

// Refresh sources.
const (
	SourceAPI   = "api"
	SourceCache = "cache"
)

// RefreshResult describes where the current catalog came from.
type RefreshResult struct {
	Count       int       `json:"count"`
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Status is a point-in-time summary of the loaded catalog.
type Status struct {
	Count       int       `json:"count"`
	Countries   int       `json:"countries"`
	Locations   int       `json:"locations"`
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Service owns the in-memory server catalog and its refresh cycle.
// Reads never touch the network; a failed refresh keeps whatever
// catalog was loaded before.
// Service 管理内存中的服务器目录及其刷新周期。
// 读取操作不触网，刷新失败时保留上一份目录。
type Service struct {
	fetcher *Fetcher
	cache   *Cache

	// refreshMu serializes Refresh so concurrent callers don't race
	// the vendor API.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	servers     []Server
	refreshedAt time.Time
	source      string
}

// NewService creates a catalog Service.
func NewService(fetcher *Fetcher, cache *Cache) *Service {
	return &Service{fetcher: fetcher, cache: cache}
}

// Refresh loads the server catalog. Without force it serves from a
// valid cache file first and only fetches on a cache miss; with force
// it always fetches and rewrites the cache. A fetch failure leaves the
// previously loaded catalog untouched.
// Refresh 加载服务器目录。非强制时优先读有效缓存，强制时直接拉取并重写缓存。
func (s *Service) Refresh(ctx context.Context, force bool) (*RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if !force {
		if env, err := s.cache.Load(); err == nil {
			s.store(env.Servers, env.Timestamp, SourceCache)
			logger.InfoF(ctx, "[Catalog] 从缓存加载 %d 个服务器", len(env.Servers))
			return &RefreshResult{Count: len(env.Servers), Source: SourceCache, RefreshedAt: env.Timestamp}, nil
		}
	}

	servers, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if s.Count() > 0 {
			logger.WarnF(ctx, "[Catalog] 刷新失败，沿用现有目录: %v", err)
		} else {
			logger.ErrorF(ctx, "[Catalog] 刷新失败且无可用目录: %v", err)
		}
		return nil, err
	}

	if saveErr := s.cache.Save(servers); saveErr != nil {
		// A broken cache write is not fatal, the catalog still works
		// from memory until the next restart.
		logger.WarnF(ctx, "[Catalog] 写入缓存失败: %v", saveErr)
	}

	now := time.Now()
	s.store(servers, now, SourceAPI)
	logger.InfoF(ctx, "[Catalog] 刷新完成，共 %d 个服务器", len(servers))
	return &RefreshResult{Count: len(servers), Source: SourceAPI, RefreshedAt: now}, nil
}

func (s *Service) store(servers []Server, refreshedAt time.Time, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = servers
	s.refreshedAt = refreshedAt
	s.source = source
}

// Servers returns a copy of the loaded server list.
func (s *Service) Servers() []Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Server, len(s.servers))
	copy(out, s.servers)
	return out
}

// Count returns the number of loaded servers.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.servers)
}

// Ready reports whether a catalog has been loaded.
func (s *Service) Ready() bool {
	return s.Count() > 0
}

// LastRefresh returns when the current catalog was loaded.
func (s *Service) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// GetStatus summarizes the loaded catalog.
func (s *Service) GetStatus() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	countries := make(map[string]struct{})
	locations := make(map[string]struct{})
	for i := range s.servers {
		countries[s.servers[i].Country] = struct{}{}
		locations[s.servers[i].Selection()] = struct{}{}
	}
	return &Status{
		Count:       len(s.servers),
		Countries:   len(countries),
		Locations:   len(locations),
		Source:      s.source,
		RefreshedAt: s.refreshedAt,
	}
}

// Selections returns the selection strings for the loaded catalog.
func (s *Service) Selections() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.servers) == 0 {
		return nil, ErrCatalogEmpty
	}
	return GroupSelections(s.servers), nil
}

// ServersFor returns the servers matching a selection string.
func (s *Service) ServersFor(selection string) ([]Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.servers) == 0 {
		return nil, ErrCatalogEmpty
	}
	matched := FilterSelection(s.servers, selection)
	if len(matched) == 0 {
		return nil, ErrSelectionNotFound
	}
	return matched, nil
}

// BestServer returns the lowest-load server for a selection.
func (s *Service) BestServer(selection string) (*Server, error) {
	matched, err := s.ServersFor(selection)
	if err != nil {
		return nil, err
	}
	return PickBestServer(matched), nil
}

// ServerByConnectionName finds a server by its exact connection name.
// Used to re-resolve the pinned server of a restarting tunnel.
func (s *Service) ServerByConnectionName(name string) (*Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.servers) == 0 {
		return nil, ErrCatalogEmpty
	}
	for i := range s.servers {
		if s.servers[i].ConnectionName == name {
			srv := s.servers[i]
			return &srv, nil
		}
	}
	return nil, ErrSelectionNotFound
}
