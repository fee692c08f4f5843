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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/apps/events"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"github.com/surfproxy/surfproxyX/internal/monitor"
	"github.com/surfproxy/surfproxyX/internal/process"
	"github.com/surfproxy/surfproxyX/internal/restart"
	"github.com/surfproxy/surfproxyX/internal/wireproxy"
)

// CreateParams are the inputs for creating a proxy instance.
// CreateParams 是创建代理实例的输入参数。
type CreateParams struct {
	// Selection is a "Country" or "Country - Location" selection string.
	Selection string `json:"selection"`
	// Port pins a specific local port, 0 allocates from the range.
	Port int `json:"port"`
	// AutoRestart enables crash restart for this instance.
	AutoRestart bool `json:"auto_restart"`
}

// Service owns proxy instance lifecycle: creation, tunnel start/stop,
// crash handling and state persistence.
// Service 负责代理实例生命周期：创建、隧道启停、崩溃处理与状态持久化。
type Service struct {
	registry *Registry
	ports    *PortAllocator
	catalog  *catalog.Service
	procs    *process.ProcessManager
	mon      *monitor.ProcessMonitor

	restarter *restart.AutoRestarter
	eventRepo *events.Repository

	configDir       string
	logDir          string
	binaryPath      string
	privateKey      string
	checkTarget     string
	gracefulTimeout time.Duration

	// opMu serializes lifecycle operations, concurrent start/stop on
	// the same instance would race the process manager bookkeeping.
	// opMu 串行化生命周期操作，同一实例的并发启停会与进程管理器竞态。
	opMu chanMutex
}

// chanMutex is a mutex that can be acquired with a context.
// chanMutex 是可携带 context 获取的互斥锁。
type chanMutex chan struct{}

func newChanMutex() chanMutex { return make(chanMutex, 1) }

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }

// NewService creates a proxy Service. Wiring that depends on the
// daemon (restarter, event repository, directories, credentials) is
// attached through the setters before first use.
// NewService 创建代理 Service。依赖守护进程的部分（重启器、事件仓库、
// 目录、凭据）在首次使用前通过 setter 注入。
func NewService(registry *Registry, ports *PortAllocator, catalogSvc *catalog.Service,
	procs *process.ProcessManager, mon *monitor.ProcessMonitor) *Service {
	return &Service{
		registry:        registry,
		ports:           ports,
		catalog:         catalogSvc,
		procs:           procs,
		mon:             mon,
		gracefulTimeout: process.DefaultGracefulTimeout,
		opMu:            newChanMutex(),
	}
}

// SetDirs sets the tunnel config and log directories.
func (s *Service) SetDirs(configDir, logDir string) {
	s.configDir = configDir
	s.logDir = logDir
}

// SetBinaryPath sets an explicit wireproxy binary path, empty means autodetect.
func (s *Service) SetBinaryPath(path string) {
	s.binaryPath = path
}

// SetPrivateKey sets the WireGuard private key used for all tunnels.
func (s *Service) SetPrivateKey(key string) {
	s.privateKey = key
}

// SetCheckTarget sets the host:port dialed during the SOCKS5 self test.
func (s *Service) SetCheckTarget(target string) {
	s.checkTarget = target
}

// SetGracefulTimeout sets the SIGTERM-to-SIGKILL escalation window.
func (s *Service) SetGracefulTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.gracefulTimeout = timeout
	}
}

// SetRestarter attaches the crash restarter.
func (s *Service) SetRestarter(r *restart.AutoRestarter) {
	s.restarter = r
}

// SetEventRepository attaches the event store for lifecycle records.
func (s *Service) SetEventRepository(repo *events.Repository) {
	s.eventRepo = repo
}

// ==================== Lifecycle Operations 生命周期操作 ====================

// Create registers a new proxy instance pinned to the lowest-load
// server of the selection. The tunnel is not started.
// Create 注册一个新的代理实例，固定到选择项中负载最低的服务器，
// 不会启动隧道。
func (s *Service) Create(ctx context.Context, params *CreateParams) (*Instance, error) {
	if err := s.opMu.lock(ctx); err != nil {
		return nil, err
	}
	defer s.opMu.unlock()

	server, err := s.catalog.BestServer(params.Selection)
	if err != nil {
		return nil, err
	}

	claimed := s.registry.ClaimedPorts()
	port := params.Port
	if port != 0 {
		if err = s.ports.Claim(port, claimed); err != nil {
			return nil, err
		}
	} else {
		if port, err = s.ports.Allocate(claimed); err != nil {
			return nil, err
		}
	}

	inst := &Instance{
		ID:          NewInstanceID(),
		Selection:   params.Selection,
		Country:     server.Country,
		Location:    server.Location,
		Port:        port,
		Server:      *server,
		Status:      StatusStopped,
		AutoRestart: params.AutoRestart,
		CreatedAt:   time.Now(),
	}
	s.registry.Add(inst)

	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.InfoF(ctx, "[Proxy] 创建实例 %s: %s (端口 %d, 服务器 %s)",
		inst.ID, inst.Selection, inst.Port, server.ConnectionName)
	s.recordEvent(ctx, inst, events.EventCreated, events.EventDetails{
		"connection_name": server.ConnectionName,
		"load":            server.Load,
	})
	return inst.Clone(), nil
}

// Start brings up the tunnel of an instance.
// Start 启动实例的隧道。
func (s *Service) Start(ctx context.Context, id string) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()
	return s.startLocked(ctx, id, true)
}

// startLocked performs the actual tunnel start, opMu must be held.
// resetHistory distinguishes user starts (which wipe the crash restart
// budget) from restarter-driven starts (which must not).
// startLocked 执行实际启动，需持有 opMu。resetHistory 区分用户启动
// （重置崩溃重启预算）与重启器驱动的启动（不可重置）。
func (s *Service) startLocked(ctx context.Context, id string, resetHistory bool) error {
	inst, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if s.procs.IsRunning(id) {
		return ErrInstanceAlreadyRunning
	}
	if s.privateKey == "" {
		return ErrPrivateKeyNotSet
	}

	binary, err := wireproxy.FindBinary(s.binaryPath)
	if err != nil {
		return err
	}

	tunnel := &wireproxy.TunnelParams{
		PrivateKey:    s.privateKey,
		PeerPublicKey: inst.Server.PubKey,
		EndpointHost:  inst.Server.ConnectionName,
		BindAddress:   fmt.Sprintf("127.0.0.1:%d", inst.Port),
	}
	configPath, err := wireproxy.WriteConfig(s.configDir, id, tunnel)
	if err != nil {
		return err
	}

	_ = s.registry.Update(id, func(i *Instance) {
		i.Status = StatusStarting
		i.ConnectionAttempts++
		i.ConfigPath = configPath
		i.LastError = ""
	})

	startParams := &process.StartParams{
		BinaryPath: binary,
		ConfigPath: configPath,
		BindPort:   inst.Port,
		LogDir:     s.logDir,
	}
	if err = s.procs.StartProcess(ctx, id, startParams); err != nil {
		_ = wireproxy.RemoveConfig(configPath)
		_ = s.registry.Update(id, func(i *Instance) {
			i.Status = StatusError
			i.LastError = err.Error()
			i.ConfigPath = ""
		})
		if saveErr := s.saveStateLocked(); saveErr != nil {
			logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", saveErr)
		}
		logger.ErrorF(ctx, "[Proxy] 启动实例 %s 失败: %v", id, err)
		return err
	}

	pid := 0
	if info, statErr := s.procs.GetStatus(ctx, id); statErr == nil {
		pid = info.PID
	}

	// TrackProcess both registers fresh tunnels and replaces the entry
	// of a restarted one, the manual stop flag starts cleared.
	// TrackProcess 既注册新隧道也替换重启隧道的条目，手动停止标记清零。
	s.mon.TrackProcess(id, pid, inst.Port, startParams)

	if resetHistory && s.restarter != nil {
		s.restarter.ResetRestartCount(id)
	}

	_ = s.registry.Update(id, func(i *Instance) {
		i.Status = StatusRunning
		i.StartTime = time.Now()
	})
	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.InfoF(ctx, "[Proxy] 实例 %s 已启动 (PID %d, socks5://127.0.0.1:%d)", id, pid, inst.Port)

	// Probe connectivity once the WireGuard handshake has had time to
	// complete. A failed probe is recorded but does not kill the tunnel,
	// the endpoint may just be slow to come up.
	// 握手完成后探测连通性。探测失败只记录不杀隧道，端点可能只是启动慢。
	go s.runSelfTest(id, inst.Port)

	return nil
}

// runSelfTest verifies the freshly started tunnel forwards traffic.
func (s *Service) runSelfTest(id string, port int) {
	time.Sleep(DefaultSelfTestDelay)
	ctx := context.Background()

	if !s.procs.IsRunning(id) {
		return
	}
	if err := SelfTest(ctx, port, s.checkTarget, DefaultSelfTestTimeout); err != nil {
		logger.WarnF(ctx, "[Proxy] 实例 %s 自检失败: %v", id, err)
		_ = s.registry.Update(id, func(i *Instance) {
			i.LastError = err.Error()
		})
		return
	}
	logger.InfoF(ctx, "[Proxy] 实例 %s 自检通过 (%s)", id, s.checkTarget)
}

// Stop shuts down the tunnel of an instance. The instance keeps its
// port and configuration for a later start.
// Stop 关闭实例的隧道，实例保留端口和配置以便再次启动。
func (s *Service) Stop(ctx context.Context, id string) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()
	return s.stopLocked(ctx, id)
}

func (s *Service) stopLocked(ctx context.Context, id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}
	if !s.procs.IsRunning(id) {
		return ErrInstanceNotRunning
	}

	// Mark first so the monitor never mistakes this exit for a crash.
	// 先标记，监控器才不会把这次退出误判为崩溃。
	s.mon.MarkManuallyStopped(id)

	err := s.procs.StopProcess(ctx, id, &process.StopParams{
		Graceful:     true,
		Timeout:      s.gracefulTimeout,
		RemoveConfig: true,
	})
	if err != nil && !errors.Is(err, process.ErrProcessNotRunning) {
		s.mon.ClearManuallyStopped(id)
		return err
	}

	s.mon.UntrackProcess(id)

	_ = s.registry.Update(id, func(i *Instance) {
		i.Status = StatusStopped
		i.StartTime = time.Time{}
		i.ConfigPath = ""
	})
	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.InfoF(ctx, "[Proxy] 实例 %s 已停止", id)
	return nil
}

// Restart stops and starts an instance's tunnel.
// Restart 重启实例的隧道。
func (s *Service) Restart(ctx context.Context, id string) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()

	inst, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	if err = s.stopLocked(ctx, id); err != nil && !errors.Is(err, ErrInstanceNotRunning) {
		return err
	}
	if err = s.startLocked(ctx, id, true); err != nil {
		return err
	}

	s.recordEvent(ctx, inst, events.EventRestarted, events.EventDetails{"manual": true})
	return nil
}

// Delete stops and removes an instance. Its event history is kept.
// Delete 停止并删除实例，事件历史予以保留。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()

	inst, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	if s.procs.IsRunning(id) {
		if err = s.stopLocked(ctx, id); err != nil && !errors.Is(err, ErrInstanceNotRunning) {
			return err
		}
	}

	s.mon.ForgetProcess(id)
	s.procs.RemoveProcess(id)
	_ = wireproxy.RemoveConfig(inst.ConfigPath)

	if err = s.registry.Remove(id); err != nil {
		return err
	}
	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.InfoF(ctx, "[Proxy] 实例 %s 已删除 (端口 %d 释放)", id, inst.Port)
	s.recordEvent(ctx, inst, events.EventDeleted, nil)
	return nil
}

// ==================== Queries 查询 ====================

// Get returns one instance with live process details overlaid.
// Get 返回单个实例并叠加实时进程信息。
func (s *Service) Get(ctx context.Context, id string) (*InstanceInfo, error) {
	inst, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return s.toInfo(ctx, inst), nil
}

// List returns all instances with live process details overlaid.
func (s *Service) List(ctx context.Context) []*InstanceInfo {
	instances := s.registry.List()
	out := make([]*InstanceInfo, 0, len(instances))
	for _, inst := range instances {
		out = append(out, s.toInfo(ctx, inst))
	}
	return out
}

// CountByStatus summarizes instances per lifecycle status.
// CountByStatus 按生命周期状态统计实例数。
func (s *Service) CountByStatus(ctx context.Context) map[InstanceStatus]int {
	counts := make(map[InstanceStatus]int)
	for _, info := range s.List(ctx) {
		counts[info.Status]++
	}
	return counts
}

// toInfo merges registry and process manager views of an instance.
func (s *Service) toInfo(ctx context.Context, inst *Instance) *InstanceInfo {
	info := &InstanceInfo{
		ID:                 inst.ID,
		Selection:          inst.Selection,
		Country:            inst.Country,
		Location:           inst.Location,
		Port:               inst.Port,
		SocksAddress:       fmt.Sprintf("socks5://127.0.0.1:%d", inst.Port),
		ConnectionName:     inst.Server.ConnectionName,
		Load:               inst.Server.Load,
		Status:             inst.Status,
		AutoRestart:        inst.AutoRestart,
		CreatedAt:          inst.CreatedAt,
		ConnectionAttempts: inst.ConnectionAttempts,
		LastError:          inst.LastError,
	}
	if !inst.StartTime.IsZero() {
		t := inst.StartTime
		info.StartTime = &t
	}

	procInfo, err := s.procs.GetStatus(ctx, inst.ID)
	if err != nil {
		return info
	}

	switch procInfo.Status {
	case process.StatusRunning:
		info.Status = StatusRunning
		info.PID = procInfo.PID
		info.UptimeSeconds = procInfo.Uptime.Seconds()
		info.CPUUsage = procInfo.CPUUsage
		info.MemoryUsage = procInfo.MemoryUsage
		// Prefer the monitor's sampled CPU, GetStatus alone cannot
		// compute a rate.
		// 优先使用监控器采样的 CPU，单次 GetStatus 无法计算速率。
		if tracked := s.mon.GetTrackedProcess(inst.ID); tracked != nil {
			info.CPUUsage = tracked.CPUUsage
		}
	case process.StatusStarting:
		info.Status = StatusStarting
	case process.StatusError:
		info.Status = StatusError
		if info.LastError == "" {
			info.LastError = procInfo.LastError
		}
	}
	return info
}

// ExportConfig renders the tunnel configuration of an instance without
// touching its runtime state.
// ExportConfig 渲染实例的隧道配置，不影响其运行状态。
func (s *Service) ExportConfig(ctx context.Context, id string) ([]byte, error) {
	inst, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if s.privateKey == "" {
		return nil, ErrPrivateKeyNotSet
	}
	return wireproxy.Generate(&wireproxy.TunnelParams{
		PrivateKey:    s.privateKey,
		PeerPublicKey: inst.Server.PubKey,
		EndpointHost:  inst.Server.ConnectionName,
		BindAddress:   fmt.Sprintf("127.0.0.1:%d", inst.Port),
	})
}

// Test runs the SOCKS5 connectivity check for a running instance.
// Test 对运行中的实例执行 SOCKS5 连通性检查。
func (s *Service) Test(ctx context.Context, id string) error {
	inst, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if !s.procs.IsRunning(id) {
		return ErrInstanceNotRunning
	}
	return SelfTest(ctx, inst.Port, s.checkTarget, DefaultSelfTestTimeout)
}

// Logs returns the tail of an instance's wireproxy log.
// Logs 返回实例 wireproxy 日志的末尾若干行。
func (s *Service) Logs(ctx context.Context, id string, lines int) (string, error) {
	if _, err := s.registry.Get(id); err != nil {
		return "", err
	}
	return process.ReadProcessLogs(s.logDir, id, lines)
}

// ==================== Bulk and Daemon Hooks 批量与守护进程钩子 ====================

// StopAll stops every running tunnel on user request. The stopped
// instances are not boot restore candidates afterwards.
// StopAll 应用户请求停止所有运行中的隧道，停止后不再是启动恢复候选。
func (s *Service) StopAll(ctx context.Context) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()

	for _, inst := range s.registry.List() {
		if s.procs.IsRunning(inst.ID) {
			s.mon.MarkManuallyStopped(inst.ID)
		}
	}

	err := s.procs.StopAll(ctx)

	for _, inst := range s.registry.List() {
		if !s.procs.IsRunning(inst.ID) {
			s.mon.ForgetProcess(inst.ID)
			_ = s.registry.Update(inst.ID, func(i *Instance) {
				if i.Status == StatusRunning || i.Status == StatusStarting {
					i.Status = StatusStopped
				}
				i.StartTime = time.Time{}
				i.ConfigPath = ""
			})
		}
	}
	if saveErr := s.saveStateLocked(); saveErr != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", saveErr)
	}
	return err
}

// Shutdown stops all tunnels for daemon exit. The running set is saved
// first so the next boot restores exactly these tunnels.
// Shutdown 在守护进程退出时停止所有隧道。先保存运行集，下次启动时
// 精确恢复这些隧道。
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()

	if err := s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	for _, inst := range s.registry.List() {
		if s.procs.IsRunning(inst.ID) {
			s.mon.MarkManuallyStopped(inst.ID)
		}
	}
	return s.procs.StopAll(ctx)
}

// SaveState flushes the registry with fresh Running flags.
func (s *Service) SaveState() error {
	return s.saveStateLocked()
}

// saveStateLocked refreshes the Running flags and persists the registry.
func (s *Service) saveStateLocked() error {
	for _, inst := range s.registry.List() {
		running := s.procs.IsRunning(inst.ID)
		_ = s.registry.Update(inst.ID, func(i *Instance) {
			i.Running = running
		})
	}
	return s.registry.Save()
}

// RestoreCandidates lists the instances to bring back up at boot.
func (s *Service) RestoreCandidates() []string {
	return s.registry.RestoreCandidates()
}

// HandleCrash reacts to a crash detected by the monitor: the rendered
// config is removed, the instance flagged and, when it opted in, handed
// to the restarter. Config files never outlive their process, a restart
// renders a fresh one.
// HandleCrash 响应监控器检测到的崩溃：删除已渲染的配置，标记实例，
// 若实例开启了自动重启则交给重启器处理。配置文件不得在进程死后残留，
// 重启会重新渲染。
func (s *Service) HandleCrash(proc *monitor.TrackedProcess) {
	ctx := context.Background()
	inst, err := s.registry.Get(proc.Name)
	if err != nil {
		return
	}

	if err = wireproxy.RemoveConfig(inst.ConfigPath); err != nil {
		logger.WarnF(ctx, "[Proxy] 清理实例 %s 配置文件失败: %v", proc.Name, err)
	}

	_ = s.registry.Update(proc.Name, func(i *Instance) {
		i.Status = StatusError
		i.StartTime = time.Time{}
		i.ConfigPath = ""
		i.LastError = fmt.Sprintf("tunnel process died unexpectedly (pid %d)", proc.PID)
	})
	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.WarnF(ctx, "[Proxy] 实例 %s 崩溃 (PID %d)", proc.Name, proc.PID)

	if !inst.AutoRestart || s.restarter == nil {
		return
	}
	go func() {
		if err := s.restarter.OnProcessCrashed(proc); err != nil {
			logger.ErrorF(context.Background(), "[Proxy] 实例 %s 崩溃重启失败: %v", proc.Name, err)
		}
	}()
}

// HandleResourceKill reacts to the CPU watchdog: the runaway tunnel is
// force killed and the instance flagged, no automatic restart.
// HandleResourceKill 响应 CPU 看门狗：强制终止失控隧道并标记实例，
// 不做自动重启。
func (s *Service) HandleResourceKill(proc *monitor.TrackedProcess, cpuUsage float64) {
	ctx := context.Background()

	// Marking first keeps the liveness poll from reporting the kill as
	// a crash and re-spawning what we just put down.
	// 先标记，存活轮询才不会把这次终止当成崩溃再拉起来。
	s.mon.MarkManuallyStopped(proc.Name)

	err := s.procs.StopProcess(ctx, proc.Name, &process.StopParams{
		Graceful:     false,
		RemoveConfig: true,
	})
	if err != nil && !errors.Is(err, process.ErrProcessNotRunning) {
		logger.ErrorF(ctx, "[Proxy] 终止失控实例 %s 失败: %v", proc.Name, err)
	}
	s.mon.ForgetProcess(proc.Name)

	_ = s.registry.Update(proc.Name, func(i *Instance) {
		i.Status = StatusError
		i.StartTime = time.Time{}
		i.ConfigPath = ""
		i.LastError = fmt.Sprintf("killed by resource watchdog at %.1f%% cpu", cpuUsage)
	})
	if err = s.saveStateLocked(); err != nil {
		logger.WarnF(ctx, "[Proxy] 保存实例状态失败: %v", err)
	}

	logger.WarnF(ctx, "[Proxy] 实例 %s 因 CPU %.1f%% 被看门狗终止", proc.Name, cpuUsage)
}

// RestartInstance is the restart.StartFunc used by the auto restarter
// and the boot restorer. It does not reset the crash restart budget.
// RestartInstance 是自动重启器和启动恢复器使用的 restart.StartFunc，
// 不重置崩溃重启预算。
func (s *Service) RestartInstance(ctx context.Context, id string) error {
	if err := s.opMu.lock(ctx); err != nil {
		return err
	}
	defer s.opMu.unlock()

	inst, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if err = s.startLocked(ctx, id, false); err != nil {
		return err
	}
	s.recordEvent(ctx, inst, events.EventRestarted, events.EventDetails{"manual": false})
	return nil
}

// recordEvent persists a lifecycle event, nil repository means events
// are disabled.
// recordEvent 持久化生命周期事件，仓库为 nil 时表示事件记录未启用。
func (s *Service) recordEvent(ctx context.Context, inst *Instance, eventType events.EventType, details events.EventDetails) {
	if s.eventRepo == nil {
		return
	}
	event := &events.ProxyEvent{
		InstanceID: inst.ID,
		Type:       eventType,
		Port:       inst.Port,
		Selection:  inst.Selection,
		Details:    details,
		OccurredAt: time.Now(),
	}
	if err := s.eventRepo.CreateEvent(ctx, event); err != nil {
		logger.WarnF(ctx, "[Proxy] 记录事件 %s/%s 失败: %v", inst.ID, eventType, err)
	}
}
