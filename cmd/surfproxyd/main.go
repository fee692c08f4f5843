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

// Package main is the entry point for the SurfProxyX daemon.
// main 包是 SurfProxyX 守护进程的入口点。
//
// surfproxyd is a headless daemon that:
// surfproxyd 是一个无界面守护进程，负责：
// - Fetches and caches the SurfShark server catalog / 拉取并缓存 SurfShark 服务器目录
// - Supervises wireproxy tunnel processes / 监督 wireproxy 隧道进程
// - Exposes a session-authenticated HTTP management API / 暴露带会话认证的 HTTP 管理 API
// - Records tunnel lifecycle events / 记录隧道生命周期事件
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/surfproxy/surfproxyX/internal/apps/auth"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/apps/proxy"
	"github.com/surfproxy/surfproxyX/internal/apps/settings"
	"github.com/surfproxy/surfproxyX/internal/config"
	"github.com/surfproxy/surfproxyX/internal/db"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"github.com/surfproxy/surfproxyX/internal/monitor"
	"github.com/surfproxy/surfproxyX/internal/otel_trace"
	"github.com/surfproxy/surfproxyX/internal/process"
	"github.com/surfproxy/surfproxyX/internal/restart"
	"github.com/surfproxy/surfproxyX/internal/router"
	"github.com/surfproxy/surfproxyX/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Daemon represents the main daemon service that integrates all components
// Daemon 表示集成所有组件的主守护进程服务
type Daemon struct {
	// ctx is the main context for the daemon
	// ctx 是守护进程的主上下文
	ctx context.Context

	// cancel cancels the main context
	// cancel 取消主上下文
	cancel context.CancelFunc

	// httpServer serves the management API
	// httpServer 提供管理 API 服务
	httpServer *http.Server

	// settingsSvc holds the runtime-editable settings
	// settingsSvc 保存运行时可编辑的设置
	settingsSvc *settings.Service

	// catalogSvc serves the SurfShark server catalog
	// catalogSvc 提供 SurfShark 服务器目录
	catalogSvc *catalog.Service

	// proxySvc manages proxy instance lifecycle
	// proxySvc 管理代理实例生命周期
	proxySvc *proxy.Service

	// eventRepo stores tunnel lifecycle events
	// eventRepo 存储隧道生命周期事件
	eventRepo *events.Repository

	// procMonitor polls tunnel liveness and CPU usage
	// procMonitor 轮询隧道存活状态和 CPU 占用
	procMonitor *monitor.ProcessMonitor

	// eventReporter batches monitor events into the event store
	// eventReporter 将监控事件批量写入事件存储
	eventReporter *monitor.EventReporter

	// sched runs the periodic catalog refresh and event cleanup
	// sched 执行定时目录刷新和事件清理
	sched *scheduler.Scheduler

	// restorer brings previously running tunnels back up at boot
	// restorer 在启动时恢复先前运行的隧道
	restorer *restart.BootRestorer

	// errChan receives fatal errors from the HTTP server
	// errChan 接收 HTTP 服务器的致命错误
	errChan chan error

	// wg tracks running goroutines for graceful shutdown
	// wg 跟踪运行中的 goroutine 以实现优雅关闭
	wg sync.WaitGroup

	// running indicates if the daemon is running
	// running 表示守护进程是否正在运行
	running bool

	// mu protects the running state
	// mu 保护运行状态
	mu sync.RWMutex
}

// NewDaemon creates a new Daemon instance
// NewDaemon 创建一个新的 Daemon 实例
func NewDaemon() *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		ctx:     ctx,
		cancel:  cancel,
		errChan: make(chan error, 1),
	}
}

// Run starts the daemon and all its components
// Run 启动守护进程及其所有组件
func (d *Daemon) Run() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running / 守护进程已在运行")
	}
	d.running = true
	d.mu.Unlock()

	cfg := config.Config

	fmt.Println("========================================")
	fmt.Println("  SurfProxyX Daemon Starting...")
	fmt.Println("  SurfProxyX 守护进程正在启动...")
	fmt.Println("========================================")
	fmt.Printf("Version: %s, Commit: %s, Build: %s\n", Version, GitCommit, BuildTime)
	fmt.Printf("Listen Address: %s\n", cfg.App.Addr)
	fmt.Printf("Data Directory: %s\n", cfg.App.DataDir)
	fmt.Printf("Log Level: %s\n", cfg.Log.Level)

	// Step 1: Initialize logger
	// 步骤 1：初始化日志
	fmt.Println("[1/5] Initializing logger... / 初始化日志...")
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w / 初始化日志失败：%w", err, err)
	}

	// Step 2: Initialize database and seed the admin account
	// 步骤 2：初始化数据库并写入默认管理员
	fmt.Println("[2/5] Initializing database... / 初始化数据库...")
	if err := d.initDatabase(); err != nil {
		return err
	}

	// Step 3: Load stores (settings, server catalog, instance registry)
	// 步骤 3：加载存储（设置、服务器目录、实例注册表）
	fmt.Println("[3/5] Loading stores... / 加载存储...")
	registry, err := d.initStores()
	if err != nil {
		return err
	}

	// Step 4: Wire up tunnel supervision
	// 步骤 4：组装隧道监督组件
	fmt.Println("[4/5] Wiring tunnel supervision... / 组装隧道监督组件...")
	if err := d.initSupervision(registry); err != nil {
		return err
	}

	// Step 5: Start HTTP API and background services
	// 步骤 5：启动 HTTP API 和后台服务
	fmt.Println("[5/5] Starting HTTP API and background services... / 启动 HTTP API 和后台服务...")
	if err := d.startServices(); err != nil {
		return err
	}

	fmt.Println("========================================")
	fmt.Println("  Daemon started successfully!")
	fmt.Println("  守护进程启动成功！")
	fmt.Println("========================================")
	fmt.Printf("Management API listening on %s\n", cfg.App.Addr)

	// Wait for context cancellation or a fatal server error
	// 等待上下文取消或服务器致命错误
	select {
	case <-d.ctx.Done():
		return nil
	case err := <-d.errChan:
		return err
	}
}

// initDatabase opens the relational store and seeds the default admin
// initDatabase 打开关系型存储并写入默认管理员
func (d *Daemon) initDatabase() error {
	if err := db.InitDatabase(); err != nil {
		return fmt.Errorf("failed to init database: %w / 初始化数据库失败：%w", err, err)
	}

	if err := db.AutoMigrate(&auth.User{}, &events.ProxyEvent{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w / 迁移数据库失败：%w", err, err)
	}

	if err := auth.EnsureDefaultAdmin(d.ctx, db.GetGlobalDB()); err != nil {
		return fmt.Errorf("failed to seed admin user: %w / 写入默认管理员失败：%w", err, err)
	}

	d.eventRepo = events.NewRepository(db.GetGlobalDB())
	return nil
}

// initStores loads the settings file, the server catalog cache and the
// instance registry from the data directory.
// initStores 从数据目录加载设置文件、服务器目录缓存和实例注册表。
func (d *Daemon) initStores() (*proxy.Registry, error) {
	cfg := config.Config

	for _, dir := range []string{cfg.App.DataDir, cfg.WireProxy.ConfigDir, cfg.WireProxy.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w / 创建目录 %s 失败：%w", dir, err, dir, err)
		}
	}

	d.settingsSvc = settings.NewService(filepath.Join(cfg.App.DataDir, "settings.json"))
	if err := d.settingsSvc.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w / 加载设置失败：%w", err, err)
	}
	if err := d.settingsSvc.ApplyEndpointOverride(d.ctx, cfg.SurfShark.APIEndpoint); err != nil {
		return nil, fmt.Errorf("invalid surfshark.api_endpoint: %w / 配置的 api_endpoint 无效：%w", err, err)
	}

	fetcher := catalog.NewFetcher(
		d.settingsSvc.APIEndpoint,
		time.Duration(cfg.SurfShark.RequestTimeout)*time.Second,
		cfg.SurfShark.FetchRetries,
	)
	cache := catalog.NewCache(filepath.Join(cfg.App.DataDir, "servers.json"))
	d.catalogSvc = catalog.NewService(fetcher, cache)

	// A stale or missing catalog is not fatal, the scheduler retries and
	// the boot restorer waits for readiness.
	// 目录过期或缺失不致命，调度器会重试，启动恢复也会等待目录就绪。
	if result, err := d.catalogSvc.Refresh(d.ctx, false); err != nil {
		fmt.Printf("Catalog not available yet: %v / 目录暂不可用：%v\n", err, err)
	} else {
		fmt.Printf("Catalog loaded: %d server(s) from %s / 目录已加载：%d 台服务器（来源 %s）\n",
			result.Count, result.Source, result.Count, result.Source)
	}

	registry := proxy.NewRegistry(filepath.Join(cfg.App.DataDir, "state.json"))
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("failed to load instance state: %w / 加载实例状态失败：%w", err, err)
	}

	return registry, nil
}

// initSupervision wires the process manager, monitor, event reporter,
// crash restarter and boot restorer around the proxy service.
// initSupervision 围绕代理服务组装进程管理器、监控器、事件上报器、
// 崩溃重启器和启动恢复器。
func (d *Daemon) initSupervision(registry *proxy.Registry) error {
	cfg := config.Config
	gracefulTimeout := time.Duration(cfg.Proxy.GracefulTimeoutSeconds) * time.Second

	procs := process.NewProcessManager()
	procs.SetGracefulTimeout(gracefulTimeout)

	d.procMonitor = monitor.NewProcessMonitor()
	d.procMonitor.SetMonitorInterval(time.Duration(cfg.Proxy.MonitorInterval) * time.Second)
	d.procMonitor.SetCPUWatchdog(cfg.Proxy.CPUKillThreshold,
		time.Duration(cfg.Proxy.CPUKillSustainSeconds)*time.Second)

	d.eventReporter = monitor.NewEventReporter(d.persistMonitorEvents)
	d.procMonitor.SetEventHandler(d.eventReporter.ReportEvent)

	ports := proxy.NewPortAllocator(cfg.Proxy.PortRangeStart, cfg.Proxy.PortRangeEnd)
	d.proxySvc = proxy.NewService(registry, ports, d.catalogSvc, procs, d.procMonitor)
	d.proxySvc.SetDirs(cfg.WireProxy.ConfigDir, cfg.WireProxy.LogDir)
	d.proxySvc.SetBinaryPath(cfg.WireProxy.BinaryPath)
	d.proxySvc.SetPrivateKey(cfg.SurfShark.PrivateKey)
	d.proxySvc.SetCheckTarget(cfg.Proxy.CheckTarget)
	d.proxySvc.SetGracefulTimeout(gracefulTimeout)
	d.proxySvc.SetEventRepository(d.eventRepo)

	restarter := restart.NewAutoRestarter(d.proxySvc.RestartInstance)
	restartCfg := restart.DefaultRestartConfig()
	restartCfg.Enabled = cfg.Proxy.AutoRestartOnCrash || d.settingsSvc.Get().AutoRestartOnCrash
	restarter.SetConfig(restartCfg)
	d.proxySvc.SetRestarter(restarter)

	d.procMonitor.SetCrashHandler(d.proxySvc.HandleCrash)
	d.procMonitor.SetKillHandler(d.proxySvc.HandleResourceKill)

	d.restorer = restart.NewBootRestorer(d.catalogSvc.Ready, d.restoreCandidates, d.proxySvc.Start)
	return nil
}

// startServices starts the HTTP API and all background goroutines
// startServices 启动 HTTP API 和所有后台 goroutine
func (d *Daemon) startServices() error {
	cfg := config.Config

	otel_trace.Init()

	if err := d.procMonitor.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start process monitor: %w / 启动进程监控失败：%w", err, err)
	}
	d.eventReporter.Start()

	d.sched = scheduler.NewScheduler(d.catalogSvc, d.eventRepo, d.settingsSvc)
	if err := d.sched.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w / 启动调度器失败：%w", err, err)
	}

	// Boot restore runs in the background, tunnel starts wait for the
	// catalog and are staggered.
	// 启动恢复在后台运行，隧道启动会等待目录就绪并交错进行。
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.restorer.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WarnF(d.ctx, "[Daemon] 启动恢复未完成: %v", err)
		}
	}()

	engine := router.New(&router.Deps{
		CatalogService:  d.catalogSvc,
		ProxyService:    d.proxySvc,
		SettingsService: d.settingsSvc,
		EventRepo:       d.eventRepo,
	})
	d.httpServer = &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case d.errChan <- fmt.Errorf("http server failed: %w / HTTP 服务器失败：%w", err, err):
			default:
			}
		}
	}()

	return nil
}

// restoreCandidates lists the instances to bring back up at boot,
// honoring the runtime auto-start setting.
// restoreCandidates 列出启动时需要恢复的实例，遵循运行时的自动恢复设置。
func (d *Daemon) restoreCandidates() []string {
	if !d.settingsSvc.Get().AutoStartProxies {
		return nil
	}
	return d.proxySvc.RestoreCandidates()
}

// persistMonitorEvents writes a batch of monitor events to the event store
// persistMonitorEvents 将一批监控事件写入事件存储
func (d *Daemon) persistMonitorEvents(batch []*monitor.ProcessEvent) error {
	if d.eventRepo == nil || len(batch) == 0 {
		return nil
	}

	records := make([]*events.ProxyEvent, 0, len(batch))
	for _, ev := range batch {
		record := &events.ProxyEvent{
			InstanceID: ev.Name,
			Type:       events.EventType(ev.Type),
			PID:        ev.PID,
			Details:    events.EventDetails(ev.Details),
			OccurredAt: ev.Timestamp,
		}
		if port, ok := ev.Details["port"].(int); ok {
			record.Port = port
		}
		records = append(records, record)
	}

	return d.eventRepo.BatchCreateEvents(context.Background(), records)
}

// Shutdown gracefully stops the daemon
// Shutdown 优雅地停止守护进程
func (d *Daemon) Shutdown() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	fmt.Println("========================================")
	fmt.Println("  Shutting down SurfProxyX daemon...")
	fmt.Println("  正在关闭 SurfProxyX 守护进程...")
	fmt.Println("========================================")

	// Step 1: Stop accepting API requests
	// 步骤 1：停止接受 API 请求
	fmt.Println("[1/4] Stopping HTTP API... / 停止 HTTP API...")
	if d.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.httpServer.Shutdown(httpCtx); err != nil {
			fmt.Printf("Warning: Error stopping HTTP server: %v / 警告：停止 HTTP 服务器时出错：%v\n", err, err)
		}
		httpCancel()
	}

	// Step 2: Save instance state and stop all tunnels
	// 步骤 2：保存实例状态并停止所有隧道
	fmt.Println("[2/4] Stopping tunnels... / 停止隧道...")
	if d.proxySvc != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := d.proxySvc.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Warning: Error stopping tunnels: %v / 警告：停止隧道时出错：%v\n", err, err)
		}
		shutdownCancel()
	}

	// Step 3: Stop background services and flush pending events
	// 步骤 3：停止后台服务并落盘待写事件
	fmt.Println("[3/4] Stopping background services... / 停止后台服务...")
	if d.sched != nil {
		d.sched.Stop()
	}
	if d.procMonitor != nil {
		if err := d.procMonitor.Stop(); err != nil {
			fmt.Printf("Warning: Error stopping monitor: %v / 警告：停止监控时出错：%v\n", err, err)
		}
	}
	if d.eventReporter != nil {
		d.eventReporter.Stop()
	}

	// Step 4: Close connections
	// 步骤 4：关闭连接
	fmt.Println("[4/4] Closing connections... / 关闭连接...")
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	otel_trace.Shutdown(closeCtx)
	closeCancel()
	if err := db.CloseDatabase(); err != nil {
		fmt.Printf("Warning: Error closing database: %v / 警告：关闭数据库时出错：%v\n", err, err)
	}
	logger.Sync()

	// Cancel main context to stop all goroutines
	// 取消主上下文以停止所有 goroutine
	d.cancel()

	// Wait for all goroutines to finish (with timeout)
	// 等待所有 goroutine 完成（带超时）
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		fmt.Println("All goroutines stopped / 所有 goroutine 已停止")
	case <-time.After(10 * time.Second):
		fmt.Println("Timeout waiting for goroutines / 等待 goroutine 超时")
	}

	fmt.Println("========================================")
	fmt.Println("  Daemon shutdown complete")
	fmt.Println("  守护进程关闭完成")
	fmt.Println("========================================")
}

// rootCmd is the root command for the daemon CLI
// rootCmd 是守护进程 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "surfproxyd",
	Short: "SurfProxyX - SurfShark wireproxy supervisor daemon",
	Long: `SurfProxyX is a headless daemon that supervises wireproxy tunnels.
SurfProxyX 是一个监督 wireproxy 隧道的无界面守护进程。

It pins each tunnel to a SurfShark WireGuard endpoint and exposes it as a
local SOCKS5 proxy:
它将每条隧道固定到一个 SurfShark WireGuard 端点，并暴露为本地 SOCKS5 代理：
- Fetch and cache the SurfShark server catalog / 拉取并缓存 SurfShark 服务器目录
- Create, start, stop and test proxy instances / 创建、启动、停止和测试代理实例
- Monitor tunnel liveness with crash restart / 监控隧道存活并支持崩溃重启
- Serve a session-authenticated management API / 提供带会话认证的管理 API`,
	RunE: runDaemon,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SurfProxyX Daemon\n")
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// configCmd groups configuration helpers
// configCmd 汇集配置辅助命令
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers / 配置辅助命令",
}

// configInitOutput is the target path for `config init`
// configInitOutput 是 `config init` 的目标路径
var configInitOutput string

// configInitCmd writes a default configuration file
// configInitCmd 写出默认配置文件
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml / 写出默认的 config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configInitOutput); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s / 拒绝覆盖已存在的 %s",
				configInitOutput, configInitOutput)
		}

		data, err := yaml.Marshal(defaultConfigTemplate())
		if err != nil {
			return fmt.Errorf("failed to render default config: %w / 渲染默认配置失败：%w", err, err)
		}
		if err := os.WriteFile(configInitOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w / 写入 %s 失败：%w",
				configInitOutput, err, configInitOutput, err)
		}

		fmt.Printf("Default config written to %s / 默认配置已写入 %s\n", configInitOutput, configInitOutput)
		return nil
	},
}

// configFileTemplate mirrors the config file layout for `config init`
// configFileTemplate 对应 `config init` 输出的配置文件布局
type configFileTemplate struct {
	App struct {
		AppName string `yaml:"app_name"`
		Env     string `yaml:"env"`
		Addr    string `yaml:"addr"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`
	Auth struct {
		DefaultAdminUsername string `yaml:"default_admin_username"`
		DefaultAdminPassword string `yaml:"default_admin_password"`
	} `yaml:"auth"`
	Database struct {
		Type       string `yaml:"type"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"redis"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Telemetry struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"telemetry"`
	SurfShark struct {
		PrivateKey     string `yaml:"private_key"`
		APIEndpoint    string `yaml:"api_endpoint"`
		RequestTimeout int    `yaml:"request_timeout"`
		FetchRetries   int    `yaml:"fetch_retries"`
	} `yaml:"surfshark"`
	WireProxy struct {
		BinaryPath string `yaml:"binary_path"`
		ConfigDir  string `yaml:"config_dir"`
		LogDir     string `yaml:"log_dir"`
	} `yaml:"wireproxy"`
	Proxy struct {
		PortRangeStart         int     `yaml:"port_range_start"`
		PortRangeEnd           int     `yaml:"port_range_end"`
		GracefulTimeoutSeconds int     `yaml:"graceful_timeout_seconds"`
		MonitorInterval        int     `yaml:"monitor_interval_seconds"`
		CPUKillThreshold       float64 `yaml:"cpu_kill_threshold"`
		CPUKillSustainSeconds  int     `yaml:"cpu_kill_sustain_seconds"`
		AutoRestartOnCrash     bool    `yaml:"auto_restart_on_crash"`
		CheckTarget            string  `yaml:"check_target"`
	} `yaml:"proxy"`
	Schedule struct {
		RefreshServersCron string `yaml:"refresh_servers_cron"`
		CleanupEventsCron  string `yaml:"cleanup_events_cron"`
		EventRetentionDays int    `yaml:"event_retention_days"`
	} `yaml:"schedule"`
}

// defaultConfigTemplate returns the config file defaults
// defaultConfigTemplate 返回配置文件默认值
func defaultConfigTemplate() *configFileTemplate {
	var t configFileTemplate

	t.App.AppName = "surfproxyx"
	t.App.Env = "production"
	t.App.Addr = "127.0.0.1:8317"
	t.App.DataDir = "./data"

	t.Auth.DefaultAdminUsername = "admin"
	t.Auth.DefaultAdminPassword = "admin123"

	t.Database.Type = "sqlite"
	t.Database.SQLitePath = "./data/surfproxy.db"

	t.Redis.Enabled = false
	t.Redis.Host = "127.0.0.1"
	t.Redis.Port = 6379

	t.Log.Level = "info"
	t.Log.Format = "console"
	t.Log.Output = "stdout"

	t.Telemetry.Enabled = false
	t.Telemetry.Endpoint = "127.0.0.1:4317"

	t.SurfShark.PrivateKey = ""
	t.SurfShark.APIEndpoint = settings.DefaultAPIEndpoint
	t.SurfShark.RequestTimeout = 15
	t.SurfShark.FetchRetries = 3

	t.WireProxy.BinaryPath = ""
	t.WireProxy.ConfigDir = "./data/configs"
	t.WireProxy.LogDir = "./data/logs"

	t.Proxy.PortRangeStart = 1080
	t.Proxy.PortRangeEnd = 1180
	t.Proxy.GracefulTimeoutSeconds = 5
	t.Proxy.MonitorInterval = 5
	t.Proxy.CPUKillThreshold = 90.0
	t.Proxy.CPUKillSustainSeconds = 30
	t.Proxy.AutoRestartOnCrash = false
	t.Proxy.CheckTarget = "www.google.com:443"

	t.Schedule.RefreshServersCron = "0 */6 * * *"
	t.Schedule.CleanupEventsCron = "0 3 * * *"
	t.Schedule.EventRetentionDays = 30

	return &t
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "config.yaml",
		"output path for the default config / 默认配置的输出路径")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// runDaemon is the main entry point for the daemon service
// runDaemon 是守护进程服务的主入口点
func runDaemon(cmd *cobra.Command, args []string) error {
	daemon := NewDaemon()

	// Setup signal handling for graceful shutdown
	// 设置信号处理以实现优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Run daemon in goroutine
	// 在 goroutine 中运行守护进程
	errChan := make(chan error, 1)
	go func() {
		errChan <- daemon.Run()
	}()

	// Wait for signal or error
	// 等待信号或错误
	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v / 收到信号：%v\n", sig, sig)
		daemon.Shutdown()
	case err := <-errChan:
		if err != nil {
			daemon.Shutdown()
			return err
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
