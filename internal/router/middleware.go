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

package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surfproxy/surfproxyX/internal/logger"
)

// loggerMiddleware 记录每个请求的方法、路径、状态码和耗时
// loggerMiddleware logs method, path, status and latency per request.
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			logger.WarnF(c.Request.Context(), "[API] %s %s -> %d (%s) errors=%s",
				c.Request.Method, path, status, latency, c.Errors.String())
			return
		}
		logger.InfoF(c.Request.Context(), "[API] %s %s -> %d (%s)",
			c.Request.Method, path, status, latency)
	}
}
