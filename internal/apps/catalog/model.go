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
	"sort"
	"strings"
	"time"
)

// DefaultLoad is assumed for vendor entries that carry no load value.
// DefaultLoad 是接口条目缺失负载字段时的兜底值。
const DefaultLoad = 100

// SelectionSeparator joins country and location in a selection string.
const SelectionSeparator = " - "

// Server is one SurfShark endpoint from the vendor cluster list.
// Field names and JSON tags follow the vendor payload so the raw
// response decodes straight into this type.
// Server 表示 SurfShark 集群列表中的一个节点，JSON 标签与接口字段一致。
type Server struct {
	Country        string   `json:"country"`
	CountryCode    string   `json:"countryCode,omitempty"`
	Location       string   `json:"location"`
	Load           int      `json:"load"`
	PubKey         string   `json:"pubKey"`
	ConnectionName string   `json:"connectionName"`
	Tags           []string `json:"tags,omitempty"`
}

// Selection returns the "Country - Location" selection string for the server.
func (s *Server) Selection() string {
	return s.Country + SelectionSeparator + s.Location
}

// CacheEnvelope is the on-disk shape of the server cache file.
// CacheEnvelope 是服务器缓存文件的磁盘结构。
type CacheEnvelope struct {
	Servers   []Server  `json:"servers"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// CacheVersion marks the cache file layout; files with any other
// version are discarded and refetched.
const CacheVersion = "1.0"

// DefaultCacheTTL is how long a cached server list stays valid.
const DefaultCacheTTL = 24 * time.Hour

// GroupSelections folds a server list into the selection strings exposed
// to the API: alphabetical by country, each country followed by its
// per-location entries when it has more than one location.
// GroupSelections 将服务器列表折叠为选择项：按国家排序，多地点国家在
// 国家项之后列出每个 "国家 - 城市" 条目。
func GroupSelections(servers []Server) []string {
	locationsByCountry := make(map[string]map[string]struct{})
	for i := range servers {
		srv := &servers[i]
		locs := locationsByCountry[srv.Country]
		if locs == nil {
			locs = make(map[string]struct{})
			locationsByCountry[srv.Country] = locs
		}
		locs[srv.Location] = struct{}{}
	}

	countries := make([]string, 0, len(locationsByCountry))
	for country := range locationsByCountry {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	selections := make([]string, 0, len(countries))
	for _, country := range countries {
		selections = append(selections, country)
		if len(locationsByCountry[country]) == 1 {
			continue
		}
		locs := make([]string, 0, len(locationsByCountry[country]))
		for loc := range locationsByCountry[country] {
			locs = append(locs, loc)
		}
		sort.Strings(locs)
		for _, loc := range locs {
			selections = append(selections, country+SelectionSeparator+loc)
		}
	}
	return selections
}

// FilterSelection returns the servers matching a selection string.
// A selection containing " - " targets one location: exact match first,
// then a trimmed case-insensitive retry on the location part. A bare
// selection matches every server in that country.
// FilterSelection 按选择项过滤服务器：带 " - " 的选择项先精确匹配，
// 失败后对城市部分做去空格小写的宽松匹配；纯国家选择项返回该国全部节点。
func FilterSelection(servers []Server, selection string) []Server {
	if !strings.Contains(selection, SelectionSeparator) {
		var matched []Server
		for i := range servers {
			if servers[i].Country == selection {
				matched = append(matched, servers[i])
			}
		}
		return matched
	}

	parts := strings.SplitN(selection, SelectionSeparator, 2)
	country, location := parts[0], parts[1]

	var matched []Server
	for i := range servers {
		if servers[i].Country == country && servers[i].Location == location {
			matched = append(matched, servers[i])
		}
	}
	if len(matched) > 0 {
		return matched
	}

	locationClean := strings.ToLower(strings.TrimSpace(location))
	for i := range servers {
		if servers[i].Country == country &&
			strings.ToLower(strings.TrimSpace(servers[i].Location)) == locationClean {
			matched = append(matched, servers[i])
		}
	}
	return matched
}

// PickBestServer returns the server with the lowest load, or nil for an
// empty list. Load ties keep the earlier entry.
func PickBestServer(servers []Server) *Server {
	if len(servers) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(servers); i++ {
		if servers[i].Load < servers[best].Load {
			best = i
		}
	}
	srv := servers[best]
	return &srv
}
