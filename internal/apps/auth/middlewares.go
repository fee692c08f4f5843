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

// Package auth 提供用户认证相关的中间件
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surfproxy/surfproxyX/internal/db"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"github.com/surfproxy/surfproxyX/internal/otel_trace"
)

// 上下文键常量
const (
	ContextKeyUser = "auth_user"
)

// 错误响应
type ErrorResponse struct {
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data"`
}

// LoginRequired 登录验证中间件
// 验证用户是否已登录，如果未登录则返回 401 错误
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 初始化追踪
		ctx, span := otel_trace.Start(c.Request.Context(), "LoginRequired")
		defer span.End()

		// 从会话获取用户 ID
		userID := GetUserIDFromContext(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				ErrorMsg: "未登录",
				Data:     nil,
			})
			return
		}

		// 从数据库加载用户，确保用户存在且激活
		user, err := FindByID(db.GetDB(ctx), userID)
		if err != nil {
			logger.ErrorF(ctx, "[LoginRequired] 用户不存在: %d, %v", userID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				ErrorMsg: "用户不存在",
				Data:     nil,
			})
			return
		}

		// 检查用户是否激活
		if !user.IsActive {
			logger.InfoF(ctx, "[LoginRequired] 用户已禁用: %d %s", user.ID, user.Username)
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				ErrorMsg: ErrMsgUserInactive,
				Data:     nil,
			})
			return
		}

		logger.InfoF(ctx, "[LoginRequired] 验证通过: %d %s", user.ID, user.Username)

		// 将用户信息存入上下文
		SetUserToContext(c, user)

		// 继续处理请求
		c.Next()
	}
}

// SetUserToContext 将用户信息存入 Gin 上下文
func SetUserToContext(c *gin.Context, user *User) {
	c.Set(ContextKeyUser, user)
}

// GetUserFromContext 从 Gin 上下文获取用户信息
func GetUserFromContext(c *gin.Context) *User {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := value.(*User)
	if !ok {
		return nil
	}
	return user
}
