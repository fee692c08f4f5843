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

package proxy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"github.com/surfproxy/surfproxyX/internal/process"
)

// Handler provides HTTP handlers for proxy instance operations.
// Handler 提供代理实例操作的 HTTP 处理器。
type Handler struct {
	service *Service
}

// NewHandler creates a new Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// CreateProxyRequest represents the request for creating a proxy instance.
type CreateProxyRequest struct {
	Selection   string `json:"selection" binding:"required"`
	Port        int    `json:"port"`
	AutoRestart bool   `json:"auto_restart"`
}

// CreateProxyResponse represents the response for creating a proxy instance.
type CreateProxyResponse struct {
	ErrorMsg string    `json:"error_msg"`
	Data     *Instance `json:"data"`
}

// ListProxiesResponse represents the response for listing proxy instances.
type ListProxiesResponse struct {
	ErrorMsg string          `json:"error_msg"`
	Data     []*InstanceInfo `json:"data"`
}

// GetProxyResponse represents the response for one proxy instance.
type GetProxyResponse struct {
	ErrorMsg string        `json:"error_msg"`
	Data     *InstanceInfo `json:"data"`
}

// ProxyOpResponse represents the response for a lifecycle operation.
type ProxyOpResponse struct {
	ErrorMsg string `json:"error_msg"`
	Data     string `json:"data"`
}

// GetProxyLogsResponse represents the response for fetching tunnel logs.
type GetProxyLogsResponse struct {
	ErrorMsg string `json:"error_msg"`
	Data     string `json:"data"`
}

// ==================== Proxy Handlers 代理处理器 ====================

// CreateProxy handles POST /api/v1/proxies - creates a proxy instance
// pinned to the best server of a selection.
// CreateProxy 处理 POST /api/v1/proxies - 创建固定到选择项最优服务器的实例。
// @Tags proxies
// @Accept json
// @Param request body CreateProxyRequest true "创建参数"
// @Produce json
// @Success 200 {object} CreateProxyResponse
// @Router /api/v1/proxies [post]
func (h *Handler) CreateProxy(c *gin.Context) {
	var req CreateProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CreateProxyResponse{ErrorMsg: err.Error()})
		return
	}

	inst, err := h.service.Create(c.Request.Context(), &CreateParams{
		Selection:   req.Selection,
		Port:        req.Port,
		AutoRestart: req.AutoRestart,
	})
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), CreateProxyResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, CreateProxyResponse{Data: inst})
}

// ListProxies handles GET /api/v1/proxies - lists all proxy instances.
// ListProxies 处理 GET /api/v1/proxies - 获取全部代理实例。
// @Tags proxies
// @Produce json
// @Success 200 {object} ListProxiesResponse
// @Router /api/v1/proxies [get]
func (h *Handler) ListProxies(c *gin.Context) {
	c.JSON(http.StatusOK, ListProxiesResponse{Data: h.service.List(c.Request.Context())})
}

// GetProxy handles GET /api/v1/proxies/:id - fetches one instance.
// GetProxy 处理 GET /api/v1/proxies/:id - 获取单个实例。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} GetProxyResponse
// @Router /api/v1/proxies/{id} [get]
func (h *Handler) GetProxy(c *gin.Context) {
	info, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), GetProxyResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetProxyResponse{Data: info})
}

// DeleteProxy handles DELETE /api/v1/proxies/:id - stops and removes
// an instance, freeing its port.
// DeleteProxy 处理 DELETE /api/v1/proxies/:id - 停止并删除实例，释放端口。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/{id} [delete]
func (h *Handler) DeleteProxy(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "deleted"})
}

// StartProxy handles POST /api/v1/proxies/:id/start - brings up the tunnel.
// StartProxy 处理 POST /api/v1/proxies/:id/start - 启动隧道。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/{id}/start [post]
func (h *Handler) StartProxy(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Start(c.Request.Context(), id); err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "started"})
}

// StopProxy handles POST /api/v1/proxies/:id/stop - shuts down the tunnel.
// StopProxy 处理 POST /api/v1/proxies/:id/stop - 停止隧道。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/{id}/stop [post]
func (h *Handler) StopProxy(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Stop(c.Request.Context(), id); err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "stopped"})
}

// RestartProxy handles POST /api/v1/proxies/:id/restart - restarts the tunnel.
// RestartProxy 处理 POST /api/v1/proxies/:id/restart - 重启隧道。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/{id}/restart [post]
func (h *Handler) RestartProxy(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Restart(c.Request.Context(), id); err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "restarted"})
}

// TestProxy handles POST /api/v1/proxies/:id/test - dials the check
// target through the instance's SOCKS5 listener.
// TestProxy 处理 POST /api/v1/proxies/:id/test - 通过实例的 SOCKS5 监听
// 连接检查目标。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/{id}/test [post]
func (h *Handler) TestProxy(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Test(c.Request.Context(), id); err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "ok"})
}

// ExportProxyConfig handles GET /api/v1/proxies/:id/config - returns
// the rendered wireproxy configuration of an instance.
// ExportProxyConfig 处理 GET /api/v1/proxies/:id/config - 导出实例的
// wireproxy 配置。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Produce plain
// @Success 200 {string} string
// @Router /api/v1/proxies/{id}/config [get]
func (h *Handler) ExportProxyConfig(c *gin.Context) {
	id := c.Param("id")
	content, err := h.service.ExportConfig(c.Request.Context(), id)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+id+".conf\"")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

// GetProxyLogs handles GET /api/v1/proxies/:id/logs - tails the
// captured wireproxy log of an instance.
// GetProxyLogs 处理 GET /api/v1/proxies/:id/logs - 读取实例日志末尾。
// @Tags proxies
// @Param id path string true "实例 ID"
// @Param lines query int false "行数，默认 100"
// @Produce json
// @Success 200 {object} GetProxyLogsResponse
// @Router /api/v1/proxies/{id}/logs [get]
func (h *Handler) GetProxyLogs(c *gin.Context) {
	id := c.Param("id")
	lines := process.DefaultLogTailLines
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, GetProxyLogsResponse{ErrorMsg: "invalid lines parameter"})
			return
		}
		lines = n
	}

	logs, err := h.service.Logs(c.Request.Context(), id, lines)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), GetProxyLogsResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetProxyLogsResponse{Data: logs})
}

// StopAllProxies handles POST /api/v1/proxies/stop-all - stops every
// running tunnel.
// StopAllProxies 处理 POST /api/v1/proxies/stop-all - 停止所有运行中的隧道。
// @Tags proxies
// @Produce json
// @Success 200 {object} ProxyOpResponse
// @Router /api/v1/proxies/stop-all [post]
func (h *Handler) StopAllProxies(c *gin.Context) {
	if err := h.service.StopAll(c.Request.Context()); err != nil {
		logger.ErrorF(c.Request.Context(), "[Proxy] 停止全部实例出错: %v", err)
		c.JSON(http.StatusInternalServerError, ProxyOpResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProxyOpResponse{Data: "stopped"})
}

// getStatusCodeForError maps proxy errors to HTTP status codes.
// getStatusCodeForError 将代理错误映射为 HTTP 状态码。
func (h *Handler) getStatusCodeForError(err error) int {
	switch {
	case errors.Is(err, ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInstanceAlreadyRunning),
		errors.Is(err, ErrInstanceNotRunning),
		errors.Is(err, ErrPortInUse):
		return http.StatusConflict
	case errors.Is(err, ErrPortOutOfRange),
		errors.Is(err, ErrPrivateKeyNotSet):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoFreePorts):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrCatalogEmpty):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrSelectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSelfTestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
