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

package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP handlers for settings operations.
// Handler 提供设置操作的 HTTP 处理器。
type Handler struct {
	service *Service
}

// NewHandler creates a new Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SettingsResponse represents the response carrying the settings.
type SettingsResponse struct {
	ErrorMsg string       `json:"error_msg"`
	Data     *AppSettings `json:"data"`
}

// GetSettings handles GET /api/v1/settings - returns the current settings.
// GetSettings 处理 GET /api/v1/settings - 返回当前设置。
// @Tags settings
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /api/v1/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, SettingsResponse{Data: h.service.Get()})
}

// UpdateSettings handles PUT /api/v1/settings - applies a partial update.
// UpdateSettings 处理 PUT /api/v1/settings - 应用部分更新。
// @Tags settings
// @Accept json
// @Param request body UpdateRequest true "更新参数"
// @Produce json
// @Success 200 {object} SettingsResponse
// @Router /api/v1/settings [put]
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, SettingsResponse{ErrorMsg: err.Error()})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidEndpoint) || errors.Is(err, ErrInvalidInterval) {
			status = http.StatusBadRequest
		}
		c.JSON(status, SettingsResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{Data: updated})
}
