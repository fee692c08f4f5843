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

// Package router 提供 HTTP 路由配置
// Package router provides HTTP routing configuration
package router

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	_ "github.com/surfproxy/surfproxyX/docs"
	"github.com/surfproxy/surfproxyX/internal/apps/auth"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/apps/dashboard"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/apps/health"
	"github.com/surfproxy/surfproxyX/internal/apps/proxy"
	"github.com/surfproxy/surfproxyX/internal/apps/settings"
	"github.com/surfproxy/surfproxyX/internal/config"
	"github.com/surfproxy/surfproxyX/internal/session"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries the services the HTTP surface exposes. The daemon builds
// them during startup and owns their lifecycle.
// Deps 携带 HTTP 层暴露的服务，由守护进程在启动时构建并管理生命周期。
type Deps struct {
	CatalogService  *catalog.Service
	ProxyService    *proxy.Service
	SettingsService *settings.Service
	EventRepo       *events.Repository
}

// New builds the gin engine with all routes wired. The caller runs it
// on config.Config.App.Addr and shuts it down first during teardown.
// New 构建挂载全部路由的 gin 引擎，由调用方启动并在关停时优先停止。
func New(deps *Deps) *gin.Engine {
	// 运行模式
	// Set run mode
	if config.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())

	// 初始化会话存储（根据配置自动选择内存或 Redis）
	// Initialize session store (auto-select memory or Redis based on config)
	if err := session.InitSessionStore(); err != nil {
		log.Fatalf("[API] 初始化会话存储失败: %v\n", err)
	}
	r.Use(sessions.Sessions(config.Config.App.SessionCookieName, session.GinStore))

	// 补充中间件
	// Add middleware
	r.Use(otelgin.Middleware(config.Config.App.AppName), loggerMiddleware())

	// 构建各应用处理器
	// Build app handlers
	catalogHandler := catalog.NewHandler(deps.CatalogService)
	proxyHandler := proxy.NewHandler(deps.ProxyService)
	settingsHandler := settings.NewHandler(deps.SettingsService)
	overviewService := dashboard.NewOverviewService(deps.ProxyService, deps.CatalogService, deps.EventRepo)
	overviewHandler := dashboard.NewOverviewHandler(overviewService)

	var eventHandler *events.Handler
	if deps.EventRepo != nil {
		eventHandler = events.NewHandler(deps.EventRepo)
	}

	apiGroup := r.Group(config.Config.App.APIPrefix)
	{
		if config.Config.App.Env == "development" {
			// Swagger
			apiGroup.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		}

		// API V1
		apiV1Router := apiGroup.Group("/v1")
		{
			// Health
			apiV1Router.GET("/health", health.Health)

			// Auth
			apiV1Router.POST("/auth/login", auth.Login)
			apiV1Router.POST("/auth/logout", auth.LoginRequired(), auth.Logout)
			apiV1Router.GET("/auth/user-info", auth.LoginRequired(), auth.GetUserInfo)

			// Servers 服务器目录
			serverRouter := apiV1Router.Group("/servers")
			serverRouter.Use(auth.LoginRequired())
			{
				serverRouter.GET("", catalogHandler.ListServers)
				serverRouter.GET("/selections", catalogHandler.GetSelections)
				serverRouter.GET("/best", catalogHandler.GetBestServer)
				serverRouter.GET("/status", catalogHandler.GetCatalogStatus)
				serverRouter.POST("/refresh", catalogHandler.RefreshServers)
			}

			// Proxies 代理实例
			proxyRouter := apiV1Router.Group("/proxies")
			proxyRouter.Use(auth.LoginRequired())
			{
				proxyRouter.POST("", proxyHandler.CreateProxy)
				proxyRouter.GET("", proxyHandler.ListProxies)
				proxyRouter.POST("/stop-all", proxyHandler.StopAllProxies)
				proxyRouter.GET("/:id", proxyHandler.GetProxy)
				proxyRouter.DELETE("/:id", proxyHandler.DeleteProxy)
				proxyRouter.POST("/:id/start", proxyHandler.StartProxy)
				proxyRouter.POST("/:id/stop", proxyHandler.StopProxy)
				proxyRouter.POST("/:id/restart", proxyHandler.RestartProxy)
				proxyRouter.POST("/:id/test", proxyHandler.TestProxy)
				proxyRouter.GET("/:id/config", proxyHandler.ExportProxyConfig)
				proxyRouter.GET("/:id/logs", proxyHandler.GetProxyLogs)
			}

			// Settings 运行时设置
			settingsRouter := apiV1Router.Group("/settings")
			settingsRouter.Use(auth.LoginRequired())
			{
				settingsRouter.GET("", settingsHandler.GetSettings)
				settingsRouter.PUT("", settingsHandler.UpdateSettings)
			}

			// Events 事件历史（无数据库时不挂载）
			// Events history (skipped when no database is configured)
			if eventHandler != nil {
				eventRouter := apiV1Router.Group("/events")
				eventRouter.Use(auth.LoginRequired())
				{
					eventRouter.GET("", eventHandler.ListEvents)
					eventRouter.GET("/:id", eventHandler.GetEvent)
				}
			}

			// Dashboard Overview 仪表盘概览
			overviewRouter := apiV1Router.Group("/dashboard/overview")
			overviewRouter.Use(auth.LoginRequired())
			{
				overviewRouter.GET("", overviewHandler.GetOverviewData)
				overviewRouter.GET("/stats", overviewHandler.GetOverviewStats)
				overviewRouter.GET("/catalog", overviewHandler.GetCatalogSummary)
				overviewRouter.GET("/events", overviewHandler.GetRecentEvents)
			}
		}
	}

	return r
}
