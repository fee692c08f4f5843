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

// Package restart provides automatic tunnel restart functionality.
// restart 包提供隧道自动重启功能。
//
// This package provides:
// 此包提供：
// - Automatic restart on tunnel crash / 隧道崩溃时自动重启
// - Restart count limiting / 重启次数限制
// - Cooldown period management / 冷却时间管理
// - Boot-time restore of previously running tunnels / 启动时恢复先前运行的隧道
package restart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/surfproxy/surfproxyX/internal/monitor"
	"github.com/surfproxy/surfproxyX/internal/process"
)

// Default configuration values
// 默认配置值
const (
	DefaultRestartDelay   = 10 * time.Second // 默认重启延迟 / Default restart delay
	DefaultMaxRestarts    = 3                // 默认最大重启次数 / Default max restarts
	DefaultTimeWindow     = 5 * time.Minute  // 默认时间窗口 / Default time window
	DefaultCooldownPeriod = 30 * time.Minute // 默认冷却时间 / Default cooldown period
)

// RestartConfig holds the restart configuration
// RestartConfig 保存重启配置
type RestartConfig struct {
	Enabled        bool          `json:"enabled"`         // 是否启用自动重启 / Enable auto restart
	RestartDelay   time.Duration `json:"restart_delay"`   // 重启延迟 / Restart delay
	MaxRestarts    int           `json:"max_restarts"`    // 最大重启次数 / Max restart count
	TimeWindow     time.Duration `json:"time_window"`     // 时间窗口 / Time window
	CooldownPeriod time.Duration `json:"cooldown_period"` // 冷却时间 / Cooldown period
}

// DefaultRestartConfig returns the default restart configuration
// DefaultRestartConfig 返回默认重启配置
// Crash restart ships disabled, a tunnel that keeps dying usually has a
// broken upstream and respawning it churns ports for nothing.
// 崩溃重启默认关闭，反复死亡的隧道通常是上游损坏，反复拉起只会空耗端口。
func DefaultRestartConfig() *RestartConfig {
	return &RestartConfig{
		Enabled:        false,
		RestartDelay:   DefaultRestartDelay,
		MaxRestarts:    DefaultMaxRestarts,
		TimeWindow:     DefaultTimeWindow,
		CooldownPeriod: DefaultCooldownPeriod,
	}
}

// RestartHistory tracks restart history for a tunnel
// RestartHistory 跟踪隧道的重启历史
type RestartHistory struct {
	ProcessName   string      `json:"process_name"`
	RestartCount  int         `json:"restart_count"`
	LastRestart   time.Time   `json:"last_restart"`
	WindowStart   time.Time   `json:"window_start"`
	CooldownUntil time.Time   `json:"cooldown_until"`
	RestartTimes  []time.Time `json:"restart_times"` // 重启时间列表 / List of restart times
}

// StartFunc performs the actual tunnel start for a restart attempt
// StartFunc 执行重启尝试中的实际隧道启动
// A restart renders a fresh tunnel config, so the owning service does
// the start rather than the process manager directly.
// 重启需要渲染新的隧道配置，因此由持有该实例的服务执行启动而非进程管理器。
type StartFunc func(ctx context.Context, name string) error

// RestartCallback is called when a restart attempt finishes
// RestartCallback 在重启尝试结束时被调用
type RestartCallback func(processName string, success bool, err error)

// AutoRestarter handles automatic tunnel restart on crash
// AutoRestarter 处理隧道崩溃时的自动重启
type AutoRestarter struct {
	startFunc      StartFunc
	config         *RestartConfig
	restartHistory map[string]*RestartHistory
	callback       RestartCallback
	mu             sync.RWMutex
}

// NewAutoRestarter creates a new AutoRestarter instance
// NewAutoRestarter 创建一个新的 AutoRestarter 实例
func NewAutoRestarter(startFunc StartFunc) *AutoRestarter {
	return &AutoRestarter{
		startFunc:      startFunc,
		config:         DefaultRestartConfig(),
		restartHistory: make(map[string]*RestartHistory),
	}
}

// SetConfig sets the restart configuration
// SetConfig 设置重启配置
func (r *AutoRestarter) SetConfig(config *RestartConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = config
	fmt.Printf("[AutoRestarter] Config updated: enabled=%v, delay=%v, maxRestarts=%d, window=%v, cooldown=%v / 配置已更新\n",
		config.Enabled, config.RestartDelay, config.MaxRestarts, config.TimeWindow, config.CooldownPeriod)
}

// SetCallback sets the restart callback
// SetCallback 设置重启回调
func (r *AutoRestarter) SetCallback(callback RestartCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = callback
}

// OnProcessCrashed handles a tunnel crash event
// OnProcessCrashed 处理隧道崩溃事件
func (r *AutoRestarter) OnProcessCrashed(proc *monitor.TrackedProcess) error {
	r.mu.Lock()
	config := r.config
	r.mu.Unlock()

	if !config.Enabled {
		fmt.Printf("[AutoRestarter] Auto restart disabled, skipping restart for %s / 自动重启已禁用，跳过 %s 的重启\n",
			proc.Name, proc.Name)
		return nil
	}

	// Check if should restart / 检查是否应该重启
	if !r.ShouldRestart(proc) {
		fmt.Printf("[AutoRestarter] Restart limit reached or in cooldown for %s / %s 已达重启限制或在冷却中\n",
			proc.Name, proc.Name)
		return fmt.Errorf("restart limit reached or in cooldown / 已达重启限制或在冷却中")
	}

	// Wait for restart delay / 等待重启延迟
	fmt.Printf("[AutoRestarter] Waiting %v before restarting %s / 等待 %v 后重启 %s\n",
		config.RestartDelay, proc.Name, config.RestartDelay, proc.Name)
	time.Sleep(config.RestartDelay)

	// Re-check enabled after delay: config may have been set to disabled
	// (e.g. the instance was deleted meanwhile).
	// 延迟后再次检查是否启用：配置可能已被设为禁用（例如实例已被删除）。
	r.mu.Lock()
	stillEnabled := r.config.Enabled
	r.mu.Unlock()
	if !stillEnabled {
		fmt.Printf("[AutoRestarter] Auto restart disabled after delay, skipping restart for %s / 延迟后自动重启已禁用，跳过 %s 的重启\n",
			proc.Name, proc.Name)
		return nil
	}

	// Perform restart / 执行重启
	return r.DoRestart(context.Background(), proc)
}

// ShouldRestart checks if a tunnel should be restarted
// ShouldRestart 检查隧道是否应该重启
func (r *AutoRestarter) ShouldRestart(proc *monitor.TrackedProcess) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.config.Enabled {
		return false
	}

	// A user-initiated stop is never restarted / 用户主动停止的隧道绝不重启
	if proc.ManuallyStopped {
		return false
	}

	history, exists := r.restartHistory[proc.Name]
	if !exists {
		// No history, can restart / 无历史，可以重启
		return true
	}

	now := time.Now()

	// Check if in cooldown / 检查是否在冷却中
	if now.Before(history.CooldownUntil) {
		fmt.Printf("[AutoRestarter] Tunnel %s is in cooldown until %v / 隧道 %s 在冷却中直到 %v\n",
			proc.Name, history.CooldownUntil, proc.Name, history.CooldownUntil)
		return false
	}

	// Check if cooldown has passed and reset counter / 检查冷却是否已过并重置计数器
	if now.After(history.CooldownUntil) && history.CooldownUntil.After(history.WindowStart) {
		// Cooldown passed, reset counter / 冷却已过，重置计数器
		r.resetHistoryLocked(proc.Name)
		return true
	}

	// Count restarts within time window / 计算时间窗口内的重启次数
	windowStart := now.Add(-r.config.TimeWindow)
	restartsInWindow := 0
	for _, t := range history.RestartTimes {
		if t.After(windowStart) {
			restartsInWindow++
		}
	}

	// Check if max restarts reached / 检查是否达到最大重启次数
	if restartsInWindow >= r.config.MaxRestarts {
		// Enter cooldown / 进入冷却
		history.CooldownUntil = now.Add(r.config.CooldownPeriod)
		fmt.Printf("[AutoRestarter] Max restarts (%d) reached for %s, entering cooldown until %v / %s 已达最大重启次数（%d），进入冷却直到 %v\n",
			r.config.MaxRestarts, proc.Name, history.CooldownUntil, proc.Name, r.config.MaxRestarts, history.CooldownUntil)
		return false
	}

	return true
}

// DoRestart performs the actual restart
// DoRestart 执行实际的重启
func (r *AutoRestarter) DoRestart(ctx context.Context, proc *monitor.TrackedProcess) error {
	r.mu.Lock()
	callback := r.callback
	startFunc := r.startFunc
	r.mu.Unlock()

	if startFunc == nil {
		return errors.New("restart: no start function configured")
	}

	fmt.Printf("[AutoRestarter] Restarting tunnel %s... / 正在重启隧道 %s...\n", proc.Name, proc.Name)

	err := startFunc(ctx, proc.Name)
	if err != nil {
		if errors.Is(err, process.ErrProcessAlreadyRunning) {
			fmt.Printf("[AutoRestarter] Tunnel %s already running, treating as success / 隧道 %s 已在运行，视为成功\n", proc.Name, proc.Name)
			if callback != nil {
				callback(proc.Name, true, nil)
			}
			return nil
		}
		r.recordRestart(proc.Name)
		fmt.Printf("[AutoRestarter] Failed to restart %s: %v / 重启 %s 失败：%v\n", proc.Name, err, proc.Name, err)
		if callback != nil {
			callback(proc.Name, false, err)
		}
		return err
	}

	r.recordRestart(proc.Name)
	fmt.Printf("[AutoRestarter] Successfully restarted %s / 成功重启 %s\n", proc.Name, proc.Name)
	if callback != nil {
		callback(proc.Name, true, nil)
	}

	return nil
}

// recordRestart records a restart in history
// recordRestart 在历史中记录重启
func (r *AutoRestarter) recordRestart(processName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	history, exists := r.restartHistory[processName]
	if !exists {
		history = &RestartHistory{
			ProcessName:  processName,
			WindowStart:  now,
			RestartTimes: make([]time.Time, 0),
		}
		r.restartHistory[processName] = history
	}

	history.RestartCount++
	history.LastRestart = now
	history.RestartTimes = append(history.RestartTimes, now)

	// Clean up old restart times / 清理旧的重启时间
	windowStart := now.Add(-r.config.TimeWindow)
	var newTimes []time.Time
	for _, t := range history.RestartTimes {
		if t.After(windowStart) {
			newTimes = append(newTimes, t)
		}
	}
	history.RestartTimes = newTimes

	fmt.Printf("[AutoRestarter] Recorded restart for %s, count in window: %d / 记录 %s 的重启，窗口内次数：%d\n",
		processName, len(history.RestartTimes), processName, len(history.RestartTimes))
}

// ResetRestartCount resets the restart count for a tunnel
// ResetRestartCount 重置隧道的重启计数
func (r *AutoRestarter) ResetRestartCount(processName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetHistoryLocked(processName)
}

// resetHistoryLocked resets history (must be called with lock held)
// resetHistoryLocked 重置历史（必须在持有锁的情况下调用）
func (r *AutoRestarter) resetHistoryLocked(processName string) {
	if history, exists := r.restartHistory[processName]; exists {
		history.RestartCount = 0
		history.RestartTimes = make([]time.Time, 0)
		history.WindowStart = time.Now()
		history.CooldownUntil = time.Time{}
		fmt.Printf("[AutoRestarter] Reset restart count for %s / 重置 %s 的重启计数\n", processName, processName)
	}
}

// GetRestartHistory returns the restart history for a tunnel
// GetRestartHistory 返回隧道的重启历史
func (r *AutoRestarter) GetRestartHistory(processName string) *RestartHistory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if history, exists := r.restartHistory[processName]; exists {
		// Return a copy / 返回副本
		historyCopy := *history
		historyCopy.RestartTimes = make([]time.Time, len(history.RestartTimes))
		copy(historyCopy.RestartTimes, history.RestartTimes)
		return &historyCopy
	}
	return nil
}

// GetConfig returns the current configuration
// GetConfig 返回当前配置
func (r *AutoRestarter) GetConfig() *RestartConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	configCopy := *r.config
	return &configCopy
}

// IsInCooldown checks if a tunnel is in cooldown
// IsInCooldown 检查隧道是否在冷却中
func (r *AutoRestarter) IsInCooldown(processName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if history, exists := r.restartHistory[processName]; exists {
		return time.Now().Before(history.CooldownUntil)
	}
	return false
}

// IsEnabled returns whether auto restart is enabled
// IsEnabled 返回是否启用了自动重启
func (r *AutoRestarter) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Enabled
}
