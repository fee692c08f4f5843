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

// Package monitor provides liveness and resource monitoring for wireproxy tunnels.
// monitor 包提供 wireproxy 隧道的存活与资源监控功能。
//
// This package provides:
// 此包提供：
// - Periodic liveness polling / 周期性存活轮询
// - Manual stop marking / 手动停止标记
// - CPU watchdog with sustained-load kill / 持续高负载的 CPU 看门狗
// - Process event generation / 进程事件生成
package monitor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/surfproxy/surfproxyX/internal/process"
)

// DefaultMonitorInterval is the default interval for liveness polling
// DefaultMonitorInterval 是存活轮询的默认间隔
const DefaultMonitorInterval = 5 * time.Second

// DefaultConsecutiveFailThreshold is the number of consecutive failed checks
// before a crash is declared
// DefaultConsecutiveFailThreshold 是判定崩溃前的连续失败检查次数
// A local signal-0 probe miss is definitive, one failed check is enough.
// 本地 signal-0 探测失败即是定论，一次失败检查就足够。
const DefaultConsecutiveFailThreshold = 1

// DefaultCPUKillThreshold is the CPU percentage above which the watchdog engages
// DefaultCPUKillThreshold 是看门狗介入的 CPU 百分比阈值
const DefaultCPUKillThreshold = 90.0

// DefaultCPUSustainDuration is how long the CPU must stay above the threshold
// before the tunnel is killed
// DefaultCPUSustainDuration 是触发终止前 CPU 必须持续超过阈值的时长
const DefaultCPUSustainDuration = 30 * time.Second

// ProcessStatus represents the status of a monitored tunnel
// ProcessStatus 表示被监控隧道的状态
type ProcessStatus string

const (
	StatusRunning ProcessStatus = "running"
	StatusStopped ProcessStatus = "stopped"
	StatusUnknown ProcessStatus = "unknown"
)

// TrackedProcess represents a tunnel process being tracked by the monitor
// TrackedProcess 表示被监控器跟踪的隧道进程
type TrackedProcess struct {
	PID              int                  `json:"pid"`
	Name             string               `json:"name"`
	Port             int                  `json:"port"`
	Status           ProcessStatus        `json:"status"`
	ManuallyStopped  bool                 `json:"manually_stopped"`  // 是否手动停止 / Whether manually stopped
	ConsecutiveFails int                  `json:"consecutive_fails"` // 连续检查失败次数 / Consecutive check failures
	CPUUsage         float64              `json:"cpu_usage"`
	LastCheck        time.Time            `json:"last_check"`
	StartParams      *process.StartParams `json:"start_params"`

	// CPU watchdog sampling state / CPU 看门狗采样状态
	lastCPUTicks  uint64
	lastCPUSample time.Time
	cpuHighSince  time.Time
}

// ProcessEventType represents the type of process event
// ProcessEventType 表示进程事件类型
type ProcessEventType string

const (
	EventStarted      ProcessEventType = "started"
	EventStopped      ProcessEventType = "stopped"
	EventCrashed      ProcessEventType = "crashed"
	EventRestarted    ProcessEventType = "restarted"
	EventResourceKill ProcessEventType = "resource_kill"
)

// ProcessEvent represents a tunnel lifecycle event
// ProcessEvent 表示隧道生命周期事件
type ProcessEvent struct {
	Type      ProcessEventType       `json:"type"`
	PID       int                    `json:"pid"`
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
}

// ProcessEventHandler is called when process events occur
// ProcessEventHandler 在进程事件发生时被调用
type ProcessEventHandler func(event *ProcessEvent)

// CrashHandler is called when a tunnel crash is detected
// CrashHandler 在检测到隧道崩溃时被调用
type CrashHandler func(proc *TrackedProcess)

// KillHandler is called when the CPU watchdog decides a tunnel must die
// KillHandler 在 CPU 看门狗判定隧道必须被终止时调用
type KillHandler func(proc *TrackedProcess, cpuUsage float64)

// ProcessMonitor polls wireproxy tunnels and detects status changes
// ProcessMonitor 轮询 wireproxy 隧道并检测状态变化
type ProcessMonitor struct {
	trackedProcesses         map[string]*TrackedProcess // key: instance name
	monitorInterval          time.Duration
	consecutiveFailThreshold int
	cpuKillThreshold         float64
	cpuSustainDuration       time.Duration
	eventHandler             ProcessEventHandler
	crashHandler             CrashHandler
	killHandler              KillHandler
	ctx                      context.Context
	cancel                   context.CancelFunc
	running                  bool
	mu                       sync.RWMutex
}

// NewProcessMonitor creates a new ProcessMonitor instance
// NewProcessMonitor 创建一个新的 ProcessMonitor 实例
func NewProcessMonitor() *ProcessMonitor {
	return &ProcessMonitor{
		trackedProcesses:         make(map[string]*TrackedProcess),
		monitorInterval:          DefaultMonitorInterval,
		consecutiveFailThreshold: DefaultConsecutiveFailThreshold,
		cpuKillThreshold:         DefaultCPUKillThreshold,
		cpuSustainDuration:       DefaultCPUSustainDuration,
	}
}

// SetMonitorInterval sets the polling interval
// SetMonitorInterval 设置轮询间隔
func (m *ProcessMonitor) SetMonitorInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval > 0 {
		m.monitorInterval = interval
	}
}

// SetConsecutiveFailThreshold sets the consecutive failure threshold
// SetConsecutiveFailThreshold 设置连续失败阈值
func (m *ProcessMonitor) SetConsecutiveFailThreshold(threshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if threshold > 0 {
		m.consecutiveFailThreshold = threshold
	}
}

// SetCPUWatchdog configures the CPU kill threshold and sustain duration
// SetCPUWatchdog 配置 CPU 终止阈值与持续时长
func (m *ProcessMonitor) SetCPUWatchdog(threshold float64, sustain time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if threshold > 0 {
		m.cpuKillThreshold = threshold
	}
	if sustain > 0 {
		m.cpuSustainDuration = sustain
	}
}

// SetEventHandler sets the event handler callback
// SetEventHandler 设置事件处理回调
func (m *ProcessMonitor) SetEventHandler(handler ProcessEventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHandler = handler
}

// SetCrashHandler sets the crash handler callback
// SetCrashHandler 设置崩溃处理回调
func (m *ProcessMonitor) SetCrashHandler(handler CrashHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crashHandler = handler
}

// SetKillHandler sets the resource kill callback
// SetKillHandler 设置资源终止回调
func (m *ProcessMonitor) SetKillHandler(handler KillHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killHandler = handler
}

// Start starts the process monitor
// Start 启动进程监控器
func (m *ProcessMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	fmt.Printf("[ProcessMonitor] Starting with interval: %v / 启动，间隔：%v\n", m.monitorInterval, m.monitorInterval)

	go m.monitorLoop()

	return nil
}

// Stop stops the process monitor
// Stop 停止进程监控器
func (m *ProcessMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}
	m.running = false

	fmt.Println("[ProcessMonitor] Stopped / 已停止")
	return nil
}

// monitorLoop runs the polling loop
// monitorLoop 运行轮询循环
func (m *ProcessMonitor) monitorLoop() {
	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkAllProcesses()
		}
	}
}

// checkAllProcesses checks liveness and CPU load of all tracked tunnels
// checkAllProcesses 检查所有被跟踪隧道的存活与 CPU 负载
func (m *ProcessMonitor) checkAllProcesses() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for name, proc := range m.trackedProcesses {
		// Skip if manually stopped / 如果手动停止则跳过
		if proc.ManuallyStopped {
			continue
		}

		// Check if process is alive / 检查进程是否存活
		alive := isProcessAlive(proc.PID)
		proc.LastCheck = now

		if alive {
			proc.Status = StatusRunning
			proc.ConsecutiveFails = 0
			m.sampleCPU(proc, now)
			continue
		}

		// Process is not running / 进程未运行
		proc.ConsecutiveFails++
		fmt.Printf("[ProcessMonitor] Tunnel %s (PID: %d) not alive, consecutive fails: %d / 隧道 %s（PID：%d）不存活，连续失败：%d\n",
			name, proc.PID, proc.ConsecutiveFails, name, proc.PID, proc.ConsecutiveFails)

		// Fire exactly once per death, later checks stay quiet until the
		// PID is refreshed by a restart.
		// 每次死亡只触发一次，PID 被重启刷新前后续检查保持静默。
		if proc.ConsecutiveFails == m.consecutiveFailThreshold {
			proc.Status = StatusStopped

			// Generate crash event / 生成崩溃事件
			event := &ProcessEvent{
				Type:      EventCrashed,
				PID:       proc.PID,
				Name:      proc.Name,
				Timestamp: now,
				Details: map[string]interface{}{
					"consecutive_fails": proc.ConsecutiveFails,
					"port":              proc.Port,
				},
			}
			m.notifyEvent(event)

			// Notify crash handler / 通知崩溃处理器
			if m.crashHandler != nil {
				// Make a copy to avoid race conditions / 复制以避免竞态条件
				procCopy := *proc
				go m.crashHandler(&procCopy)
			}
		}
	}
}

// sampleCPU updates the CPU usage estimate and drives the watchdog
// sampleCPU 更新 CPU 使用率估计并驱动看门狗
// CPU usage is the tick delta between two polls divided by wall time.
// CPU 使用率为两次轮询间的 tick 增量除以墙钟时间。
func (m *ProcessMonitor) sampleCPU(proc *TrackedProcess, now time.Time) {
	ticks, err := process.ReadCPUTicks(proc.PID)
	if err != nil {
		// Metrics unavailable on this platform, watchdog stays dormant
		// 当前平台无法采集指标，看门狗保持休眠
		return
	}

	if proc.lastCPUSample.IsZero() {
		proc.lastCPUTicks = ticks
		proc.lastCPUSample = now
		return
	}

	elapsed := now.Sub(proc.lastCPUSample).Seconds()
	if elapsed <= 0 {
		return
	}

	cpuSeconds := process.TicksToSeconds(ticks - proc.lastCPUTicks)
	proc.CPUUsage = cpuSeconds / elapsed * 100
	proc.lastCPUTicks = ticks
	proc.lastCPUSample = now

	if !m.advanceWatchdog(proc, now) {
		return
	}

	sustained := now.Sub(proc.cpuHighSince)
	fmt.Printf("[ProcessMonitor] Tunnel %s CPU %.1f%% above %.1f%% for %v, requesting kill / 隧道 %s CPU %.1f%% 超过 %.1f%% 达 %v，请求终止\n",
		proc.Name, proc.CPUUsage, m.cpuKillThreshold, sustained.Round(time.Second),
		proc.Name, proc.CPUUsage, m.cpuKillThreshold, sustained.Round(time.Second))

	event := &ProcessEvent{
		Type:      EventResourceKill,
		PID:       proc.PID,
		Name:      proc.Name,
		Timestamp: now,
		Details: map[string]interface{}{
			"cpu_usage":         proc.CPUUsage,
			"threshold":         m.cpuKillThreshold,
			"sustained_seconds": sustained.Seconds(),
			"port":              proc.Port,
		},
	}
	m.notifyEvent(event)

	if m.killHandler != nil {
		procCopy := *proc
		cpu := proc.CPUUsage
		go m.killHandler(&procCopy, cpu)
	}

	// Reset so a surviving process gets a fresh sustain window
	// 重置计时，存活进程将获得新的持续窗口
	proc.cpuHighSince = time.Time{}
}

// advanceWatchdog advances the sustained-load state machine and reports
// whether the kill threshold has been held long enough
// advanceWatchdog 推进持续负载状态机，返回是否已超阈值足够长时间
func (m *ProcessMonitor) advanceWatchdog(proc *TrackedProcess, now time.Time) bool {
	if proc.CPUUsage < m.cpuKillThreshold {
		proc.cpuHighSince = time.Time{}
		return false
	}

	if proc.cpuHighSince.IsZero() {
		proc.cpuHighSince = now
		return false
	}

	return now.Sub(proc.cpuHighSince) >= m.cpuSustainDuration
}

// notifyEvent notifies the event handler
// notifyEvent 通知事件处理器
func (m *ProcessMonitor) notifyEvent(event *ProcessEvent) {
	if m.eventHandler != nil {
		go m.eventHandler(event)
	}
}

// TrackProcess starts tracking a tunnel process
// TrackProcess 开始跟踪一个隧道进程
func (m *ProcessMonitor) TrackProcess(name string, pid, port int, startParams *process.StartParams) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proc := &TrackedProcess{
		PID:              pid,
		Name:             name,
		Port:             port,
		Status:           StatusRunning,
		ManuallyStopped:  false,
		ConsecutiveFails: 0,
		LastCheck:        time.Now(),
		StartParams:      startParams,
	}

	m.trackedProcesses[name] = proc
	fmt.Printf("[ProcessMonitor] Tracking tunnel: %s (PID: %d, port: %d) / 跟踪隧道：%s（PID：%d，端口：%d）\n",
		name, pid, port, name, pid, port)

	// Generate started event / 生成启动事件
	event := &ProcessEvent{
		Type:      EventStarted,
		PID:       pid,
		Name:      name,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"port": port,
		},
	}
	m.notifyEvent(event)
}

// UntrackProcess stops tracking a tunnel and emits a stopped event
// UntrackProcess 停止跟踪隧道并发出停止事件
func (m *ProcessMonitor) UntrackProcess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		// Generate stopped event / 生成停止事件
		event := &ProcessEvent{
			Type:      EventStopped,
			PID:       proc.PID,
			Name:      name,
			Timestamp: time.Now(),
			Details: map[string]interface{}{
				"manually_stopped": proc.ManuallyStopped,
				"port":             proc.Port,
			},
		}
		m.notifyEvent(event)

		delete(m.trackedProcesses, name)
		fmt.Printf("[ProcessMonitor] Untracked tunnel: %s / 取消跟踪隧道：%s\n", name, name)
	}
}

// ForgetProcess removes a tunnel from tracking without emitting any event
// ForgetProcess 从跟踪中移除隧道且不发出任何事件
// Used when the crash was already reported through another path.
// 用于崩溃已经通过其他路径上报的场景。
func (m *ProcessMonitor) ForgetProcess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.trackedProcesses[name]; exists {
		delete(m.trackedProcesses, name)
		fmt.Printf("[ProcessMonitor] Forgot tunnel: %s / 移除隧道跟踪：%s\n", name, name)
	}
}

// MarkManuallyStopped marks a tunnel as manually stopped
// MarkManuallyStopped 将隧道标记为手动停止
func (m *ProcessMonitor) MarkManuallyStopped(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		proc.ManuallyStopped = true
		fmt.Printf("[ProcessMonitor] Marked tunnel as manually stopped: %s / 将隧道标记为手动停止：%s\n", name, name)
	}
}

// ClearManuallyStopped clears the manually stopped flag
// ClearManuallyStopped 清除手动停止标记
func (m *ProcessMonitor) ClearManuallyStopped(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		proc.ManuallyStopped = false
		fmt.Printf("[ProcessMonitor] Cleared manually stopped flag: %s / 清除手动停止标记：%s\n", name, name)
	}
}

// UpdateProcessPID updates the PID of a tracked tunnel after a restart
// UpdateProcessPID 在重启后更新被跟踪隧道的 PID
func (m *ProcessMonitor) UpdateProcessPID(name string, newPID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		proc.PID = newPID
		proc.Status = StatusRunning
		proc.ConsecutiveFails = 0
		proc.lastCPUTicks = 0
		proc.lastCPUSample = time.Time{}
		proc.cpuHighSince = time.Time{}
		fmt.Printf("[ProcessMonitor] Updated tunnel PID: %s -> %d / 更新隧道 PID：%s -> %d\n", name, newPID, name, newPID)
	}
}

// GetTrackedProcess returns a tracked tunnel by name
// GetTrackedProcess 按名称返回跟踪的隧道
func (m *ProcessMonitor) GetTrackedProcess(name string) *TrackedProcess {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		// Return a copy / 返回副本
		procCopy := *proc
		return &procCopy
	}
	return nil
}

// GetAllTrackedProcesses returns all tracked tunnels
// GetAllTrackedProcesses 返回所有跟踪的隧道
func (m *ProcessMonitor) GetAllTrackedProcesses() []*TrackedProcess {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var processes []*TrackedProcess
	for _, proc := range m.trackedProcesses {
		procCopy := *proc
		processes = append(processes, &procCopy)
	}
	return processes
}

// IsManuallyStopped checks if a tunnel is marked as manually stopped
// IsManuallyStopped 检查隧道是否被标记为手动停止
func (m *ProcessMonitor) IsManuallyStopped(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if proc, exists := m.trackedProcesses[name]; exists {
		return proc.ManuallyStopped
	}
	return false
}

// isProcessAlive checks if a process with the given PID is alive
// isProcessAlive 检查给定 PID 的进程是否存活
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0 to check
	// 在 Unix 上，FindProcess 总是成功，所以我们需要发送信号 0 来检查
	if runtime.GOOS != "windows" {
		err = proc.Signal(syscall.Signal(0))
		return err == nil
	}

	return proc.Signal(syscall.Signal(0)) == nil
}
