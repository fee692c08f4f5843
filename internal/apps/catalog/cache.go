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
	"fmt"
	"os"
	"time"

	"github.com/surfproxy/surfproxyX/internal/jsonfile"
)

// Cache persists the fetched server list as a flat JSON file so the
// daemon can come up with a usable catalog before the first fetch.
// Cache 将服务器列表持久化为 JSON 文件，进程重启后无需等待首次拉取。
type Cache struct {
	path string
	ttl  time.Duration
}

// NewCache creates a Cache backed by the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path, ttl: DefaultCacheTTL}
}

// SetTTL overrides the cache validity window.
func (c *Cache) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		c.ttl = ttl
	}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads the cache file and returns its envelope when it is still
// valid. A missing file, decode failure, version mismatch or expired
// timestamp all come back as ErrCacheInvalid.
// Load 读取缓存文件，文件缺失、解析失败、版本不符或超期均视为缓存失效。
func (c *Cache) Load() (*CacheEnvelope, error) {
	var env CacheEnvelope
	if err := jsonfile.Load(c.path, &env); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file does not exist", ErrCacheInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheInvalid, err)
	}

	if env.Version != CacheVersion {
		return nil, fmt.Errorf("%w: version %q", ErrCacheInvalid, env.Version)
	}
	if age := time.Since(env.Timestamp); age > c.ttl {
		return nil, fmt.Errorf("%w: age %s exceeds ttl %s", ErrCacheInvalid, age.Round(time.Second), c.ttl)
	}
	if len(env.Servers) == 0 {
		return nil, fmt.Errorf("%w: empty server list", ErrCacheInvalid)
	}
	return &env, nil
}

// Save writes the server list with the current timestamp.
func (c *Cache) Save(servers []Server) error {
	env := &CacheEnvelope{
		Servers:   servers,
		Timestamp: time.Now(),
		Version:   CacheVersion,
	}
	if err := jsonfile.Save(c.path, env); err != nil {
		return fmt.Errorf("failed to save server cache: %w", err)
	}
	return nil
}
