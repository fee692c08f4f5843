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

package events

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP handlers for proxy event operations.
// Handler 提供代理事件操作的 HTTP 处理器。
type Handler struct {
	repo *Repository
}

// NewHandler creates a new Handler instance.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// ListEventsRequest represents the query parameters for listing events.
type ListEventsRequest struct {
	InstanceID string `json:"instance_id" form:"instance_id"`
	Type       string `json:"type" form:"type"`
	StartTime  string `json:"start_time" form:"start_time"`
	EndTime    string `json:"end_time" form:"end_time"`
	Page       int    `json:"page" form:"page"`
	PageSize   int    `json:"page_size" form:"page_size"`
}

// EventListData carries a page of events plus the unfiltered total.
type EventListData struct {
	Events   []*EventInfo `json:"events"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// ListEventsResponse represents the response for listing events.
type ListEventsResponse struct {
	ErrorMsg string         `json:"error_msg"`
	Data     *EventListData `json:"data"`
}

// GetEventResponse represents the response for getting a single event.
type GetEventResponse struct {
	ErrorMsg string     `json:"error_msg"`
	Data     *EventInfo `json:"data"`
}

// ==================== Event Handlers 事件处理器 ====================

// ListEvents handles GET /api/v1/events - lists proxy lifecycle events
// with optional filters and pagination.
// ListEvents 处理 GET /api/v1/events - 按条件分页获取代理生命周期事件。
// @Tags events
// @Param instance_id query string false "实例 ID"
// @Param type query string false "事件类型"
// @Param start_time query string false "起始时间 (RFC3339)"
// @Param end_time query string false "结束时间 (RFC3339)"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Produce json
// @Success 200 {object} ListEventsResponse
// @Router /api/v1/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	var req ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ListEventsResponse{ErrorMsg: err.Error()})
		return
	}

	filter := &EventFilter{
		InstanceID: req.InstanceID,
		Type:       EventType(req.Type),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}

	if req.StartTime != "" {
		t, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, ListEventsResponse{ErrorMsg: "invalid start_time: " + err.Error()})
			return
		}
		filter.StartTime = &t
	}
	if req.EndTime != "" {
		t, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, ListEventsResponse{ErrorMsg: "invalid end_time: " + err.Error()})
			return
		}
		filter.EndTime = &t
	}

	list, total, err := h.repo.ListEvents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ListEventsResponse{ErrorMsg: err.Error()})
		return
	}

	infos := make([]*EventInfo, 0, len(list))
	for _, event := range list {
		infos = append(infos, event.ToEventInfo())
	}
	c.JSON(http.StatusOK, ListEventsResponse{Data: &EventListData{
		Events:   infos,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}})
}

// GetEvent handles GET /api/v1/events/:id - fetches one event by ID.
// GetEvent 处理 GET /api/v1/events/:id - 按 ID 获取单条事件。
// @Tags events
// @Param id path int true "事件 ID"
// @Produce json
// @Success 200 {object} GetEventResponse
// @Router /api/v1/events/{id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GetEventResponse{ErrorMsg: "invalid event id"})
		return
	}

	event, err := h.repo.GetEventByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			c.JSON(http.StatusNotFound, GetEventResponse{ErrorMsg: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, GetEventResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetEventResponse{Data: event.ToEventInfo()})
}
