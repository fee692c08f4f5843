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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/surfproxy/surfproxyX/internal/jsonfile"
)

func newTestCache(t *testing.T) *Cache {
	return NewCache(filepath.Join(t.TempDir(), "servers_cache.json"))
}

// TestCacheSaveLoadRoundTrip 验证缓存写入后可以完整读回
func TestCacheSaveLoadRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	servers := fixtureServers()

	if err := cache.Save(servers); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	env, err := cache.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(env.Servers) != len(servers) {
		t.Fatalf("Expected %d servers, got %d", len(servers), len(env.Servers))
	}
	if env.Version != CacheVersion {
		t.Errorf("Expected version %q, got %q", CacheVersion, env.Version)
	}
	if env.Servers[2].PubKey != "pk-lon" {
		t.Errorf("Unexpected server data: %+v", env.Servers[2])
	}
	if time.Since(env.Timestamp) > time.Minute {
		t.Errorf("Timestamp not refreshed on save: %s", env.Timestamp)
	}
}

// TestCacheMissingFile 验证文件缺失视为缓存失效
func TestCacheMissingFile(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Load()
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("Expected ErrCacheInvalid for missing file, got %v", err)
	}
}

// TestCacheCorruptFile 验证损坏的 JSON 视为缓存失效
func TestCacheCorruptFile(t *testing.T) {
	cache := newTestCache(t)
	if err := os.WriteFile(cache.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	_, err := cache.Load()
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("Expected ErrCacheInvalid for corrupt file, got %v", err)
	}
}

// TestCacheVersionMismatch 验证版本不符的缓存被丢弃
func TestCacheVersionMismatch(t *testing.T) {
	cache := newTestCache(t)
	env := &CacheEnvelope{Servers: fixtureServers(), Timestamp: time.Now(), Version: "0.9"}
	if err := jsonfile.Save(cache.Path(), env); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	_, err := cache.Load()
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("Expected ErrCacheInvalid for version mismatch, got %v", err)
	}
}

// TestCacheExpired verifies an entry older than the TTL is discarded.
// TestCacheExpired 验证超过有效期的缓存被丢弃。
func TestCacheExpired(t *testing.T) {
	cache := newTestCache(t)
	env := &CacheEnvelope{
		Servers:   fixtureServers(),
		Timestamp: time.Now().Add(-25 * time.Hour),
		Version:   CacheVersion,
	}
	if err := jsonfile.Save(cache.Path(), env); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	_, err := cache.Load()
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("Expected ErrCacheInvalid for expired cache, got %v", err)
	}

	// 拉长有效期后同一份缓存应当可用
	cache.SetTTL(48 * time.Hour)
	if _, err = cache.Load(); err != nil {
		t.Fatalf("Expected cache valid under longer TTL, got %v", err)
	}
}

// TestCacheEmptyServerList 验证空服务器列表视为缓存失效
func TestCacheEmptyServerList(t *testing.T) {
	cache := newTestCache(t)
	env := &CacheEnvelope{Servers: []Server{}, Timestamp: time.Now(), Version: CacheVersion}
	if err := jsonfile.Save(cache.Path(), env); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	_, err := cache.Load()
	if !errors.Is(err, ErrCacheInvalid) {
		t.Fatalf("Expected ErrCacheInvalid for empty server list, got %v", err)
	}
}
