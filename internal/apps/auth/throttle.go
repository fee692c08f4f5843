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

package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"github.com/surfproxy/surfproxyX/internal/session"
)

// 登录失败限流参数：同一客户端在窗口期内失败达到上限后暂时拒绝登录
const (
	loginFailKeyPrefix = "login_fail:"
	loginFailLimit     = 5
	loginFailWindow    = 15 * time.Minute
)

// loginFailKey 按客户端 IP 构建失败计数键
func loginFailKey(c *gin.Context) string {
	return loginFailKeyPrefix + c.ClientIP()
}

// loginThrottled 判断当前客户端是否已达到失败次数上限
// 会话存储未初始化时限流不生效
func loginThrottled(c *gin.Context) bool {
	if session.Store == nil {
		return false
	}

	value, err := session.Store.Get(c.Request.Context(), loginFailKey(c))
	if err != nil {
		return false
	}

	switch v := value.(type) {
	case int64:
		return v >= loginFailLimit
	case float64: // Redis 存储经 JSON 反序列化后数值为 float64
		return int64(v) >= loginFailLimit
	}
	return false
}

// recordLoginFailure 记录一次登录失败，首次失败时启动窗口计时
func recordLoginFailure(c *gin.Context) {
	if session.Store == nil {
		return
	}

	count, err := session.Store.Incr(c.Request.Context(), loginFailKey(c), loginFailWindow)
	if err != nil {
		logger.WarnF(c.Request.Context(), "[Auth] 记录登录失败次数出错: %v", err)
		return
	}
	if count == loginFailLimit {
		logger.WarnF(c.Request.Context(), "[Auth] 客户端 %s 登录失败已达 %d 次，窗口期内暂停登录", c.ClientIP(), loginFailLimit)
	}
}

// clearLoginFailures 登录成功后清除失败计数
func clearLoginFailures(c *gin.Context) {
	if session.Store == nil {
		return
	}
	if err := session.Store.Delete(c.Request.Context(), loginFailKey(c)); err != nil {
		logger.WarnF(c.Request.Context(), "[Auth] 清除登录失败计数出错: %v", err)
	}
}
