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

// Package catalog maintains the SurfShark server catalog for the SurfProxyX system.
// catalog 包为 SurfProxyX 系统维护 SurfShark 服务器目录。
package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surfproxy/surfproxyX/internal/logger"
)

// Handler provides HTTP handlers for server catalog operations.
// Handler 提供服务器目录操作的 HTTP 处理器。
type Handler struct {
	service *Service
}

// NewHandler creates a new Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// ListServersRequest represents the request for listing servers.
type ListServersRequest struct {
	Selection string `json:"selection" form:"selection"`
}

// ListServersResponse represents the response for listing servers.
type ListServersResponse struct {
	ErrorMsg string   `json:"error_msg"`
	Data     []Server `json:"data"`
}

// GetSelectionsResponse represents the response for listing selections.
type GetSelectionsResponse struct {
	ErrorMsg string   `json:"error_msg"`
	Data     []string `json:"data"`
}

// GetBestServerResponse represents the response for picking the best server.
type GetBestServerResponse struct {
	ErrorMsg string  `json:"error_msg"`
	Data     *Server `json:"data"`
}

// RefreshServersResponse represents the response for a forced refresh.
type RefreshServersResponse struct {
	ErrorMsg string         `json:"error_msg"`
	Data     *RefreshResult `json:"data"`
}

// GetCatalogStatusResponse represents the response for the catalog status.
type GetCatalogStatusResponse struct {
	ErrorMsg string  `json:"error_msg"`
	Data     *Status `json:"data"`
}

// ==================== Catalog Handlers 目录处理器 ====================

// ListServers handles GET /api/v1/servers - lists loaded servers,
// optionally filtered by a selection string.
// ListServers 处理 GET /api/v1/servers - 获取服务器列表，可按选择项过滤。
// @Tags servers
// @Param selection query string false "国家或 国家 - 城市 选择项"
// @Produce json
// @Success 200 {object} ListServersResponse
// @Router /api/v1/servers [get]
func (h *Handler) ListServers(c *gin.Context) {
	var req ListServersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ListServersResponse{ErrorMsg: err.Error()})
		return
	}

	if req.Selection == "" {
		c.JSON(http.StatusOK, ListServersResponse{Data: h.service.Servers()})
		return
	}

	servers, err := h.service.ServersFor(req.Selection)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), ListServersResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListServersResponse{Data: servers})
}

// GetSelections handles GET /api/v1/servers/selections - lists the
// country and city selection strings.
// GetSelections 处理 GET /api/v1/servers/selections - 获取国家/城市选择项。
// @Tags servers
// @Produce json
// @Success 200 {object} GetSelectionsResponse
// @Router /api/v1/servers/selections [get]
func (h *Handler) GetSelections(c *gin.Context) {
	selections, err := h.service.Selections()
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), GetSelectionsResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetSelectionsResponse{Data: selections})
}

// GetBestServer handles GET /api/v1/servers/best - picks the
// lowest-load server for a selection.
// GetBestServer 处理 GET /api/v1/servers/best - 按负载挑选最优服务器。
// @Tags servers
// @Param selection query string true "国家或 国家 - 城市 选择项"
// @Produce json
// @Success 200 {object} GetBestServerResponse
// @Router /api/v1/servers/best [get]
func (h *Handler) GetBestServer(c *gin.Context) {
	selection := c.Query("selection")
	if selection == "" {
		c.JSON(http.StatusBadRequest, GetBestServerResponse{ErrorMsg: "selection is required"})
		return
	}

	server, err := h.service.BestServer(selection)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), GetBestServerResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetBestServerResponse{Data: server})
}

// RefreshServers handles POST /api/v1/servers/refresh - forces a fresh
// fetch from the vendor API, bypassing the cache.
// RefreshServers 处理 POST /api/v1/servers/refresh - 绕过缓存强制拉取。
// @Tags servers
// @Produce json
// @Success 200 {object} RefreshServersResponse
// @Router /api/v1/servers/refresh [post]
func (h *Handler) RefreshServers(c *gin.Context) {
	result, err := h.service.Refresh(c.Request.Context(), true)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), RefreshServersResponse{ErrorMsg: err.Error()})
		return
	}

	logger.InfoF(c.Request.Context(), "[Catalog] 手动刷新服务器列表成功: %d 个服务器", result.Count)
	c.JSON(http.StatusOK, RefreshServersResponse{Data: result})
}

// GetCatalogStatus handles GET /api/v1/servers/status - summarizes the
// loaded catalog.
// GetCatalogStatus 处理 GET /api/v1/servers/status - 获取目录概要。
// @Tags servers
// @Produce json
// @Success 200 {object} GetCatalogStatusResponse
// @Router /api/v1/servers/status [get]
func (h *Handler) GetCatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, GetCatalogStatusResponse{Data: h.service.GetStatus()})
}

// getStatusCodeForError maps catalog errors to HTTP status codes.
// getStatusCodeForError 将目录错误映射为 HTTP 状态码。
func (h *Handler) getStatusCodeForError(err error) int {
	switch {
	case errors.Is(err, ErrSelectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCatalogEmpty):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNoConnectivity),
		errors.Is(err, ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
