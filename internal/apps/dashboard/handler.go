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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// OverviewHandler handles dashboard overview HTTP requests.
// OverviewHandler 处理仪表盘概览 HTTP 请求。
type OverviewHandler struct {
	service *OverviewService
}

// NewOverviewHandler creates a new dashboard overview handler.
// NewOverviewHandler 创建新的仪表盘概览处理器。
func NewOverviewHandler(service *OverviewService) *OverviewHandler {
	return &OverviewHandler{service: service}
}

// GetOverviewStats godoc
// @Summary Get dashboard instance statistics
// @Description Get proxy instance counters grouped by status
// @Tags Dashboard
// @Accept json
// @Produce json
// @Success 200 {object} DashboardDataResponse{data=OverviewStats}
// @Router /api/v1/dashboard/overview/stats [get]
func (h *OverviewHandler) GetOverviewStats(c *gin.Context) {
	c.JSON(http.StatusOK, DashboardDataResponse{Data: h.service.GetOverviewStats(c.Request.Context())})
}

// GetCatalogSummary godoc
// @Summary Get server catalog summary
// @Description Get the loaded server catalog summary for dashboard
// @Tags Dashboard
// @Accept json
// @Produce json
// @Success 200 {object} DashboardDataResponse{data=CatalogSummary}
// @Router /api/v1/dashboard/overview/catalog [get]
func (h *OverviewHandler) GetCatalogSummary(c *gin.Context) {
	c.JSON(http.StatusOK, DashboardDataResponse{Data: h.service.GetCatalogSummary()})
}

// GetRecentEvents godoc
// @Summary Get recent proxy events
// @Description Get recent proxy lifecycle events for dashboard
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param limit query int false "Limit" default(10)
// @Success 200 {object} DashboardDataResponse{data=[]events.EventInfo}
// @Failure 500 {object} DashboardDataResponse
// @Router /api/v1/dashboard/overview/events [get]
func (h *OverviewHandler) GetRecentEvents(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	recent, err := h.service.GetRecentEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DashboardDataResponse{
			ErrorMsg: "Failed to get recent events: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, DashboardDataResponse{Data: recent})
}

// GetOverviewData godoc
// @Summary Get complete dashboard overview data
// @Description Get complete dashboard overview data including instance stats, catalog and events
// @Tags Dashboard
// @Accept json
// @Produce json
// @Success 200 {object} DashboardDataResponse{data=OverviewData}
// @Failure 500 {object} DashboardDataResponse
// @Router /api/v1/dashboard/overview [get]
func (h *OverviewHandler) GetOverviewData(c *gin.Context) {
	data, err := h.service.GetOverviewData(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, DashboardDataResponse{
			ErrorMsg: "Failed to get overview data: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, DashboardDataResponse{Data: data})
}
