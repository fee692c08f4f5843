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
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/surfproxy/surfproxyX/internal/logger"
)

// Defaults for vendor API access.
const (
	// DefaultRequestTimeout bounds a single API request.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultFetchRetries is the number of fetch attempts before giving up.
	DefaultFetchRetries = 3
	// DefaultProbeTarget is dialed before the first fetch attempt to tell
	// "no network" apart from "vendor API down". A public resolver answers
	// on TCP 53 from almost anywhere.
	// DefaultProbeTarget 在首次拉取前探测，用于区分断网和接口故障。
	DefaultProbeTarget = "8.8.8.8:53"

	probeTimeout = 3 * time.Second
)

// rawServer mirrors Server with an optional load so entries without one
// can be told apart from load 0.
type rawServer struct {
	Country        string   `json:"country"`
	CountryCode    string   `json:"countryCode"`
	Location       string   `json:"location"`
	Load           *int     `json:"load"`
	PubKey         string   `json:"pubKey"`
	ConnectionName string   `json:"connectionName"`
	Tags           []string `json:"tags"`
}

// Fetcher pulls the server list from the SurfShark cluster API.
// Fetcher 从 SurfShark 集群接口拉取服务器列表。
type Fetcher struct {
	httpClient  *http.Client
	endpointFn  func() string
	retries     int
	probeTarget string
}

// NewFetcher creates a Fetcher. endpointFn is read on every fetch so the
// endpoint can be changed at runtime through settings.
// NewFetcher 创建 Fetcher，endpointFn 每次拉取时读取，接口地址可随设置热更新。
func NewFetcher(endpointFn func() string, timeout time.Duration, retries int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if retries <= 0 {
		retries = DefaultFetchRetries
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		endpointFn:  endpointFn,
		retries:     retries,
		probeTarget: DefaultProbeTarget,
	}
}

// SetProbeTarget overrides the connectivity probe address.
func (f *Fetcher) SetProbeTarget(target string) {
	if target != "" {
		f.probeTarget = target
	}
}

// Fetch retrieves and filters the server list. Attempts are spaced with
// exponential backoff (1s, 2s, 4s...); the connectivity probe runs once
// before the first attempt so a dead network fails fast instead of
// burning retries against an unreachable endpoint.
// Fetch 拉取并过滤服务器列表，重试间隔按指数退避，拉取前先做一次连通性探测。
func (f *Fetcher) Fetch(ctx context.Context) ([]Server, error) {
	if err := f.probeConnectivity(); err != nil {
		return nil, err
	}

	endpoint := f.endpointFn()
	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		servers, err := f.fetchOnce(ctx, endpoint)
		if err == nil {
			logger.InfoF(ctx, "[Catalog] 拉取到 %d 个服务器 (attempt %d/%d)", len(servers), attempt+1, f.retries)
			return servers, nil
		}
		lastErr = err
		logger.WarnF(ctx, "[Catalog] 拉取服务器列表失败 (attempt %d/%d): %v", attempt+1, f.retries, err)
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrFetchFailed, f.retries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, endpoint string) ([]Server, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	var raw []rawServer
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode server list: %w", err)
	}

	servers := normalizeServers(raw)
	if len(servers) == 0 {
		return nil, errors.New("server list is empty after filtering")
	}
	return servers, nil
}

// probeConnectivity dials the probe target over TCP.
func (f *Fetcher) probeConnectivity() error {
	conn, err := net.DialTimeout("tcp", f.probeTarget, probeTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoConnectivity, err)
	}
	conn.Close()
	return nil
}

// normalizeServers drops vendor entries missing a required field and
// fills in the default load for entries that carry none.
// normalizeServers 丢弃缺少必需字段的条目，负载缺失的条目按默认值处理。
func normalizeServers(raw []rawServer) []Server {
	servers := make([]Server, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if r.Country == "" || r.Location == "" || r.PubKey == "" || r.ConnectionName == "" {
			continue
		}
		load := DefaultLoad
		if r.Load != nil {
			load = *r.Load
		}
		servers = append(servers, Server{
			Country:        r.Country,
			CountryCode:    r.CountryCode,
			Location:       r.Location,
			Load:           load,
			PubKey:         r.PubKey,
			ConnectionName: r.ConnectionName,
			Tags:           r.Tags,
		})
	}
	return servers
}
