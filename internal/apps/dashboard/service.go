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

package dashboard

import (
	"context"

	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/apps/proxy"
)

// OverviewService provides dashboard overview statistics.
type OverviewService struct {
	proxySvc   *proxy.Service
	catalogSvc *catalog.Service
	eventRepo  *events.Repository
}

// NewOverviewService creates a new dashboard overview service.
// eventRepo may be nil, in which case event sections come back empty.
func NewOverviewService(proxySvc *proxy.Service, catalogSvc *catalog.Service, eventRepo *events.Repository) *OverviewService {
	return &OverviewService{
		proxySvc:   proxySvc,
		catalogSvc: catalogSvc,
		eventRepo:  eventRepo,
	}
}

// GetOverviewStats returns the instance counters.
func (s *OverviewService) GetOverviewStats(ctx context.Context) *OverviewStats {
	counts := s.proxySvc.CountByStatus(ctx)
	stats := &OverviewStats{
		RunningInstances:  counts[proxy.StatusRunning],
		StoppedInstances:  counts[proxy.StatusStopped],
		StartingInstances: counts[proxy.StatusStarting],
		ErrorInstances:    counts[proxy.StatusError],
	}
	stats.TotalInstances = stats.RunningInstances + stats.StoppedInstances +
		stats.StartingInstances + stats.ErrorInstances
	return stats
}

// GetCatalogSummary returns the server catalog summary.
func (s *OverviewService) GetCatalogSummary() *CatalogSummary {
	st := s.catalogSvc.GetStatus()
	return &CatalogSummary{
		Servers:     st.Count,
		Countries:   st.Countries,
		Locations:   st.Locations,
		Source:      st.Source,
		RefreshedAt: st.RefreshedAt,
	}
}

// GetRecentEvents returns the most recent proxy events.
func (s *OverviewService) GetRecentEvents(ctx context.Context, limit int) ([]*events.EventInfo, error) {
	if s.eventRepo == nil {
		return []*events.EventInfo{}, nil
	}

	recent, err := s.eventRepo.ListRecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}

	infos := make([]*events.EventInfo, 0, len(recent))
	for _, e := range recent {
		infos = append(infos, e.ToEventInfo())
	}
	return infos, nil
}

// GetEventCounts returns per-type totals over the event history.
func (s *OverviewService) GetEventCounts(ctx context.Context) (map[events.EventType]int64, error) {
	if s.eventRepo == nil {
		return map[events.EventType]int64{}, nil
	}
	return s.eventRepo.CountEventsByType(ctx)
}

// GetOverviewData returns complete dashboard overview data.
func (s *OverviewService) GetOverviewData(ctx context.Context) (*OverviewData, error) {
	recent, err := s.GetRecentEvents(ctx, 10)
	if err != nil {
		return nil, err
	}

	counts, err := s.GetEventCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &OverviewData{
		Stats:        s.GetOverviewStats(ctx),
		Catalog:      s.GetCatalogSummary(),
		EventCounts:  counts,
		RecentEvents: recent,
	}, nil
}
