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

// Package process provides wireproxy subprocess lifecycle management.
// process 包提供 wireproxy 子进程生命周期管理功能。
//
// This package provides:
// 此包提供：
// - Start, Stop methods for tunnel processes / 隧道进程的启动、停止方法
// - Immediate-death detection after spawn / 启动后的立即死亡检测
// - Graceful shutdown with timeout escalation / 带超时升级的优雅关闭
// - Per-process log capture and tailing / 按进程的日志捕获与读取
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Common errors for process management
// 进程管理的常见错误
var (
	// ErrProcessNotFound indicates the process was not found
	// ErrProcessNotFound 表示进程未找到
	ErrProcessNotFound = errors.New("process not found")

	// ErrProcessAlreadyRunning indicates the process is already running
	// ErrProcessAlreadyRunning 表示进程已在运行
	ErrProcessAlreadyRunning = errors.New("process is already running")

	// ErrProcessNotRunning indicates the process is not running
	// ErrProcessNotRunning 表示进程未运行
	ErrProcessNotRunning = errors.New("process is not running")

	// ErrStartFailed indicates the process failed to start
	// ErrStartFailed 表示进程启动失败
	ErrStartFailed = errors.New("process failed to start")

	// ErrDiedImmediately indicates the process exited right after spawn
	// ErrDiedImmediately 表示进程在启动后立即退出
	ErrDiedImmediately = errors.New("process exited immediately after start")

	// ErrStopTimeout indicates the process stop timed out
	// ErrStopTimeout 表示进程停止超时
	ErrStopTimeout = errors.New("process stop timed out")

	// ErrMetricsUnsupported indicates metrics are unavailable on this platform
	// ErrMetricsUnsupported 表示当前平台不支持指标采集
	ErrMetricsUnsupported = errors.New("process metrics not supported on this platform")
)

// ProcessStatus represents the status of a managed process
// ProcessStatus 表示托管进程的状态
type ProcessStatus string

const (
	// StatusRunning indicates the process is running
	// StatusRunning 表示进程正在运行
	StatusRunning ProcessStatus = "running"

	// StatusStopped indicates the process is stopped
	// StatusStopped 表示进程已停止
	StatusStopped ProcessStatus = "stopped"

	// StatusStarting indicates the process is starting
	// StatusStarting 表示进程正在启动
	StatusStarting ProcessStatus = "starting"

	// StatusStopping indicates the process is stopping
	// StatusStopping 表示进程正在停止
	StatusStopping ProcessStatus = "stopping"

	// StatusError indicates the process encountered an error
	// StatusError 表示进程遇到错误
	StatusError ProcessStatus = "error"
)

// Default configuration values
// 默认配置值
const (
	// DefaultGracefulTimeout is the default timeout for graceful shutdown
	// DefaultGracefulTimeout 是优雅关闭的默认超时时间
	DefaultGracefulTimeout = 5 * time.Second

	// DefaultStartupGrace is how long the process must survive after spawn
	// DefaultStartupGrace 是启动后进程必须存活的时长
	DefaultStartupGrace = 500 * time.Millisecond

	// DefaultStopPollInterval is the polling step while waiting for exit
	// DefaultStopPollInterval 是等待退出时的轮询步长
	DefaultStopPollInterval = 500 * time.Millisecond

	// DefaultStopConcurrency bounds how many processes StopAll stops at once
	// DefaultStopConcurrency 限制 StopAll 的并发停止数量
	DefaultStopConcurrency = 4

	// DefaultLogTailLines is the default number of log lines to return
	// DefaultLogTailLines 是默认返回的日志行数
	DefaultLogTailLines = 100
)

// ManagedProcess represents a process managed by the ProcessManager
// ManagedProcess 表示由 ProcessManager 管理的进程
type ManagedProcess struct {
	// Name is the instance name owning the process
	// Name 是持有该进程的实例名称
	Name string `json:"name"`

	// PID is the process ID
	// PID 是进程 ID
	PID int `json:"pid"`

	// Status is the current status of the process
	// Status 是进程的当前状态
	Status ProcessStatus `json:"status"`

	// StartTime is when the process was started
	// StartTime 是进程启动的时间
	StartTime time.Time `json:"start_time"`

	// Uptime is the duration the process has been running
	// Uptime 是进程运行的持续时间
	Uptime time.Duration `json:"uptime"`

	// CPUUsage is the CPU usage percentage (0-100)
	// CPUUsage 是 CPU 使用率百分比（0-100）
	CPUUsage float64 `json:"cpu_usage"`

	// MemoryUsage is the memory usage in bytes
	// MemoryUsage 是内存使用量（字节）
	MemoryUsage int64 `json:"memory_usage"`

	// BindPort is the local SOCKS5 port the tunnel listens on
	// BindPort 是隧道监听的本地 SOCKS5 端口
	BindPort int `json:"bind_port"`

	// ConfigPath is the tunnel config file backing the process
	// ConfigPath 是该进程使用的隧道配置文件
	ConfigPath string `json:"config_path"`

	// LogFile is where stdout and stderr are captured
	// LogFile 是标准输出和标准错误的捕获文件
	LogFile string `json:"log_file"`

	// LastError is the last error encountered
	// LastError 是最后遇到的错误
	LastError string `json:"last_error,omitempty"`

	// cmd is the underlying exec.Cmd (internal use)
	// cmd 是底层的 exec.Cmd（内部使用）
	cmd *exec.Cmd

	// mu protects the process state
	// mu 保护进程状态
	mu sync.RWMutex
}

// snapshot builds a ProcessInfo copy, caller must hold at least a read lock
// snapshot 构建 ProcessInfo 副本，调用者需持有读锁
func (p *ManagedProcess) snapshot() *ProcessInfo {
	return &ProcessInfo{
		Name:        p.Name,
		PID:         p.PID,
		Status:      p.Status,
		StartTime:   p.StartTime,
		Uptime:      p.Uptime,
		CPUUsage:    p.CPUUsage,
		MemoryUsage: p.MemoryUsage,
		BindPort:    p.BindPort,
		ConfigPath:  p.ConfigPath,
		LogFile:     p.LogFile,
		LastError:   p.LastError,
	}
}

// ProcessInfo contains information about a process for external use
// ProcessInfo 包含用于外部使用的进程信息
type ProcessInfo struct {
	Name        string        `json:"name"`
	PID         int           `json:"pid"`
	Status      ProcessStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	Uptime      time.Duration `json:"uptime"`
	CPUUsage    float64       `json:"cpu_usage"`
	MemoryUsage int64         `json:"memory_usage"`
	BindPort    int           `json:"bind_port"`
	ConfigPath  string        `json:"config_path"`
	LogFile     string        `json:"log_file"`
	LastError   string        `json:"last_error,omitempty"`
}

// StartParams contains parameters for starting a process
// StartParams 包含启动进程的参数
type StartParams struct {
	// BinaryPath is the wireproxy executable to run
	// BinaryPath 是要运行的 wireproxy 可执行文件
	BinaryPath string `json:"binary_path"`

	// ConfigPath is the rendered tunnel config file
	// ConfigPath 是渲染好的隧道配置文件
	ConfigPath string `json:"config_path"`

	// BindPort is the local SOCKS5 port, recorded for status reporting
	// BindPort 是本地 SOCKS5 端口，记录用于状态上报
	BindPort int `json:"bind_port"`

	// LogDir is where the process log file is created
	// LogDir 是进程日志文件的创建目录
	LogDir string `json:"log_dir"`

	// Environment variables to set
	// 要设置的环境变量
	Environment map[string]string `json:"environment,omitempty"`
}

// StopParams contains parameters for stopping a process
// StopParams 包含停止进程的参数
type StopParams struct {
	// Graceful indicates whether to attempt graceful shutdown first
	// Graceful 表示是否首先尝试优雅关闭
	Graceful bool `json:"graceful"`

	// Timeout is the timeout for graceful shutdown (defaults to DefaultGracefulTimeout)
	// Timeout 是优雅关闭的超时时间（默认为 DefaultGracefulTimeout）
	Timeout time.Duration `json:"timeout,omitempty"`

	// RemoveConfig deletes the tunnel config file once the process is gone
	// RemoveConfig 表示进程退出后删除隧道配置文件
	RemoveConfig bool `json:"remove_config"`
}

// ProcessEventHandler is a callback for process events
// ProcessEventHandler 是进程事件的回调
type ProcessEventHandler func(name string, event ProcessEvent, info *ProcessInfo)

// ProcessEvent represents a process lifecycle event
// ProcessEvent 表示进程生命周期事件
type ProcessEvent string

const (
	// EventStarted indicates the process has started
	// EventStarted 表示进程已启动
	EventStarted ProcessEvent = "started"

	// EventStopped indicates the process has stopped on request
	// EventStopped 表示进程已按请求停止
	EventStopped ProcessEvent = "stopped"

	// EventCrashed indicates the process has exited unexpectedly
	// EventCrashed 表示进程意外退出
	EventCrashed ProcessEvent = "crashed"
)

// ProcessManager manages wireproxy process lifecycle
// ProcessManager 管理 wireproxy 进程生命周期
type ProcessManager struct {
	// processes stores managed processes by instance name
	// processes 按实例名称存储托管进程
	processes sync.Map

	// gracefulTimeout is the timeout for graceful shutdown
	// gracefulTimeout 是优雅关闭的超时时间
	gracefulTimeout time.Duration

	// stopConcurrency bounds parallel stops in StopAll
	// stopConcurrency 限制 StopAll 的并行停止数量
	stopConcurrency int

	// eventHandler is called when process events occur
	// eventHandler 在进程事件发生时被调用
	eventHandler ProcessEventHandler

	// mu protects manager state
	// mu 保护管理器状态
	mu sync.RWMutex
}

// NewProcessManager creates a new ProcessManager instance
// NewProcessManager 创建一个新的 ProcessManager 实例
func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		gracefulTimeout: DefaultGracefulTimeout,
		stopConcurrency: DefaultStopConcurrency,
	}
}

// SetGracefulTimeout sets the graceful shutdown timeout
// SetGracefulTimeout 设置优雅关闭超时时间
func (m *ProcessManager) SetGracefulTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timeout > 0 {
		m.gracefulTimeout = timeout
	}
}

// SetStopConcurrency sets the StopAll worker bound
// SetStopConcurrency 设置 StopAll 的并发上限
func (m *ProcessManager) SetStopConcurrency(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.stopConcurrency = n
	}
}

// SetEventHandler sets the event handler callback
// SetEventHandler 设置事件处理回调
func (m *ProcessManager) SetEventHandler(handler ProcessEventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHandler = handler
}

// notifyEvent notifies the event handler of a process event
// notifyEvent 通知事件处理程序进程事件
func (m *ProcessManager) notifyEvent(name string, event ProcessEvent, proc *ManagedProcess) {
	m.mu.RLock()
	handler := m.eventHandler
	m.mu.RUnlock()

	if handler != nil {
		proc.mu.RLock()
		info := proc.snapshot()
		proc.mu.RUnlock()
		handler(name, event, info)
	}
}

// StartProcess spawns a wireproxy process for an instance
// StartProcess 为实例启动一个 wireproxy 进程
// The child is placed in its own process group and must survive
// DefaultStartupGrace before the start is considered successful.
// 子进程被放入独立进程组，且必须存活 DefaultStartupGrace 之后才算启动成功。
func (m *ProcessManager) StartProcess(ctx context.Context, name string, params *StartParams) error {
	if params == nil {
		return errors.New("start params is nil")
	}
	if params.BinaryPath == "" {
		return fmt.Errorf("%w: binary path is empty", ErrStartFailed)
	}
	if params.ConfigPath == "" {
		return fmt.Errorf("%w: config path is empty", ErrStartFailed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Check if process already exists and is running
	// 检查进程是否已存在且正在运行
	if existing, ok := m.processes.Load(name); ok {
		proc := existing.(*ManagedProcess)
		proc.mu.RLock()
		status := proc.Status
		proc.mu.RUnlock()

		if status == StatusRunning || status == StatusStarting {
			return ErrProcessAlreadyRunning
		}
	}

	// Create managed process / 创建托管进程
	proc := &ManagedProcess{
		Name:       name,
		Status:     StatusStarting,
		BindPort:   params.BindPort,
		ConfigPath: params.ConfigPath,
	}
	m.processes.Store(name, proc)

	// Set up log capture / 设置日志捕获
	logDir := params.LogDir
	if logDir == "" {
		logDir = filepath.Dir(params.ConfigPath)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return m.failStart(proc, fmt.Sprintf("create log directory failed: %v / 创建日志目录失败：%v", err, err))
	}

	logFile := filepath.Join(logDir, name+".log")
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return m.failStart(proc, fmt.Sprintf("create log file failed: %v / 创建日志文件失败：%v", err, err))
	}

	// Build command / 构建命令
	// The child must outlive the request context, so no CommandContext here.
	// 子进程需要在请求上下文结束后继续存活，因此不使用 CommandContext。
	cmd := buildCommand(params)
	cmd.Stdout = logWriter
	cmd.Stderr = logWriter

	// Start the process / 启动进程
	if err := cmd.Start(); err != nil {
		logWriter.Close()
		return m.failStart(proc, fmt.Sprintf("spawn failed: %v / 启动进程失败：%v", err, err))
	}

	proc.mu.Lock()
	proc.cmd = cmd
	proc.PID = cmd.Process.Pid
	proc.StartTime = time.Now()
	proc.LogFile = logFile
	proc.mu.Unlock()

	// Reap the child in the background so exits are observed promptly
	// 后台回收子进程，确保及时观察到退出
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		logWriter.Close()
	}()

	// Fail fast when the process dies within the startup grace period,
	// typically a bad config or an unusable binary.
	// 若进程在启动宽限期内死亡则快速失败，通常是配置错误或二进制不可用。
	select {
	case <-waitErr:
		logs := collectLogTail(logFile, DefaultLogTailLines)
		_ = m.failStart(proc, fmt.Sprintf("exited immediately. Logs:\n%s / 进程立即退出。日志：\n%s", logs, logs))
		return fmt.Errorf("%w: %s", ErrDiedImmediately, strings.TrimSpace(logs))
	case <-time.After(DefaultStartupGrace):
	}

	// Process started successfully / 进程启动成功
	proc.mu.Lock()
	proc.Status = StatusRunning
	proc.LastError = ""
	proc.mu.Unlock()

	m.notifyEvent(name, EventStarted, proc)

	// Watch for unexpected exits / 监视意外退出
	go m.reapProcess(name, proc, waitErr)

	return nil
}

// failStart records a startup failure on the managed process
// failStart 在托管进程上记录启动失败
func (m *ProcessManager) failStart(proc *ManagedProcess, reason string) error {
	proc.mu.Lock()
	proc.Status = StatusError
	proc.LastError = reason
	proc.PID = 0
	proc.mu.Unlock()
	return fmt.Errorf("%w: %s", ErrStartFailed, reason)
}

// reapProcess waits for the child to exit and updates bookkeeping
// reapProcess 等待子进程退出并更新状态
// An exit while StatusRunning is a crash, exits during StopProcess are
// finalized by the stop path itself.
// 在 StatusRunning 期间退出视为崩溃，StopProcess 过程中的退出由停止路径处理。
func (m *ProcessManager) reapProcess(name string, proc *ManagedProcess, waitErr <-chan error) {
	err := <-waitErr

	proc.mu.Lock()
	if proc.Status != StatusRunning {
		// Stop already in progress, nothing to record
		// 停止流程已在进行，无需记录
		proc.mu.Unlock()
		return
	}
	proc.Status = StatusStopped
	proc.PID = 0
	if err != nil {
		proc.LastError = fmt.Sprintf("process exited unexpectedly: %v / 进程意外退出：%v", err, err)
	} else {
		proc.LastError = "process exited unexpectedly / 进程意外退出"
	}
	proc.mu.Unlock()

	m.notifyEvent(name, EventCrashed, proc)
}

// StopProcess stops a wireproxy process
// StopProcess 停止 wireproxy 进程
// Sends SIGTERM to the process group, polls for exit until the graceful
// timeout, then escalates to SIGKILL.
// 向进程组发送 SIGTERM，在优雅超时内轮询退出，超时后升级为 SIGKILL。
func (m *ProcessManager) StopProcess(ctx context.Context, name string, params *StopParams) error {
	value, ok := m.processes.Load(name)
	if !ok {
		return ErrProcessNotFound
	}
	proc := value.(*ManagedProcess)

	timeout := m.gracefulTimeout
	graceful := true
	removeConfig := false
	if params != nil {
		if params.Timeout > 0 {
			timeout = params.Timeout
		}
		graceful = params.Graceful
		removeConfig = params.RemoveConfig
	}

	proc.mu.Lock()
	if proc.Status != StatusRunning && proc.Status != StatusStarting {
		configPath := proc.ConfigPath
		proc.mu.Unlock()
		if removeConfig {
			m.removeConfigFile(configPath)
		}
		return ErrProcessNotRunning
	}
	proc.Status = StatusStopping
	pid := proc.PID
	configPath := proc.ConfigPath
	proc.mu.Unlock()

	if pid > 0 {
		if graceful {
			// Terminate the whole group so forked children die too
			// 终止整个进程组，确保 fork 出的子进程一并退出
			if err := killProcessGroup(pid, syscall.SIGTERM); err != nil {
				_ = sendSignal(pid, syscall.SIGTERM)
			}

			// Wait for the process to exit gracefully / 等待进程优雅退出
			deadline := time.Now().Add(timeout)
			for time.Now().Before(deadline) && isProcessAlive(pid) {
				select {
				case <-ctx.Done():
					proc.mu.Lock()
					proc.Status = StatusRunning
					proc.mu.Unlock()
					return ctx.Err()
				case <-time.After(DefaultStopPollInterval):
				}
			}
		}

		// Force kill anything still alive / 强制杀死仍然存活的进程
		if isProcessAlive(pid) {
			if err := killProcessGroup(pid, syscall.SIGKILL); err != nil {
				_ = sendSignal(pid, syscall.SIGKILL)
			}

			// A SIGKILL cannot be ignored, give the kernel a moment
			// SIGKILL 无法被忽略，稍等内核回收
			killDeadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(killDeadline) && isProcessAlive(pid) {
				time.Sleep(100 * time.Millisecond)
			}
			if isProcessAlive(pid) {
				return fmt.Errorf("%w: pid %d survived SIGKILL", ErrStopTimeout, pid)
			}
		}
	}

	proc.mu.Lock()
	proc.Status = StatusStopped
	proc.PID = 0
	proc.Uptime = 0
	proc.mu.Unlock()

	if removeConfig {
		m.removeConfigFile(configPath)
	}

	m.notifyEvent(name, EventStopped, proc)
	return nil
}

// removeConfigFile removes a rendered tunnel config, missing files are fine
// removeConfigFile 删除渲染的隧道配置，文件不存在时忽略
func (m *ProcessManager) removeConfigFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Printf("[ProcessManager] Failed to remove config %s: %v / 删除配置文件 %s 失败：%v\n", path, err, path, err)
	}
}

// GetStatus returns the status of a managed process
// GetStatus 返回托管进程的状态
func (m *ProcessManager) GetStatus(ctx context.Context, name string) (*ProcessInfo, error) {
	value, ok := m.processes.Load(name)
	if !ok {
		return nil, ErrProcessNotFound
	}

	proc := value.(*ManagedProcess)
	proc.mu.Lock()
	defer proc.mu.Unlock()

	// Update metrics if running / 如果正在运行则更新指标
	if proc.Status == StatusRunning && proc.PID > 0 {
		if isProcessAlive(proc.PID) {
			proc.Uptime = time.Since(proc.StartTime)
			cpu, mem := getProcessMetrics(proc.PID)
			proc.CPUUsage = cpu
			proc.MemoryUsage = mem
		} else {
			// Process died / 进程已死亡
			proc.Status = StatusStopped
		}
	}

	return proc.snapshot(), nil
}

// ListProcesses returns information about all managed processes
// ListProcesses 返回所有托管进程的信息
func (m *ProcessManager) ListProcesses() []*ProcessInfo {
	var processes []*ProcessInfo

	m.processes.Range(func(key, value interface{}) bool {
		proc := value.(*ManagedProcess)
		proc.mu.RLock()
		info := proc.snapshot()
		proc.mu.RUnlock()
		processes = append(processes, info)
		return true
	})

	return processes
}

// RemoveProcess removes a process from management (does not stop it)
// RemoveProcess 从管理中移除进程（不停止它）
func (m *ProcessManager) RemoveProcess(name string) {
	m.processes.Delete(name)
}

// IsRunning checks if a process is running
// IsRunning 检查进程是否正在运行
func (m *ProcessManager) IsRunning(name string) bool {
	value, ok := m.processes.Load(name)
	if !ok {
		return false
	}

	proc := value.(*ManagedProcess)
	proc.mu.RLock()
	defer proc.mu.RUnlock()

	return proc.Status == StatusRunning && proc.PID > 0 && isProcessAlive(proc.PID)
}

// StopAll stops all managed processes through a bounded worker pool
// StopAll 通过有界工作池停止所有托管进程
func (m *ProcessManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	concurrency := m.stopConcurrency
	m.mu.RUnlock()

	var names []string
	m.processes.Range(func(key, value interface{}) bool {
		proc := value.(*ManagedProcess)
		proc.mu.RLock()
		status := proc.Status
		proc.mu.RUnlock()
		if status == StatusRunning || status == StatusStarting {
			names = append(names, key.(string))
		}
		return true
	})

	if len(names) == 0 {
		return nil
	}

	var (
		wg      sync.WaitGroup
		sem     = make(chan struct{}, concurrency)
		errMu   sync.Mutex
		lastErr error
	)

	for _, name := range names {
		wg.Add(1)
		sem <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.StopProcess(ctx, name, &StopParams{Graceful: true, RemoveConfig: true}); err != nil &&
				!errors.Is(err, ErrProcessNotRunning) {
				errMu.Lock()
				lastErr = err
				errMu.Unlock()
			}
		}(name)
	}

	wg.Wait()
	return lastErr
}

// Helper functions / 辅助函数

// buildCommand builds the wireproxy command line
// buildCommand 构建 wireproxy 命令行
func buildCommand(params *StartParams) *exec.Cmd {
	cmd := exec.Command(params.BinaryPath, "-c", params.ConfigPath)

	// Detach into an own process group so daemon restarts and signal
	// storms aimed at us never take the tunnels down with them.
	// 放入独立进程组，守护进程重启或针对本进程的信号不会波及隧道。
	setProcGroupAttr(cmd)

	cmd.Dir = filepath.Dir(params.ConfigPath)
	cmd.Env = os.Environ()
	for k, v := range params.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	return cmd
}

// isProcessAlive checks if a process with the given PID is alive
// isProcessAlive 检查给定 PID 的进程是否存活
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0 to check
	// 在 Unix 上，FindProcess 总是成功，所以我们需要发送信号 0 来检查
	if runtime.GOOS != "windows" {
		err = process.Signal(syscall.Signal(0))
		return err == nil
	}

	// On Windows, we need a different approach
	// 在 Windows 上，我们需要不同的方法
	return checkProcessWindows(pid)
}

// checkProcessWindows checks if a process is alive on Windows
// checkProcessWindows 在 Windows 上检查进程是否存活
func checkProcessWindows(pid int) bool {
	// Use tasklist command to check if process exists
	// 使用 tasklist 命令检查进程是否存在
	cmd := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(output), strconv.Itoa(pid))
}

// sendSignal sends a signal to a single process
// sendSignal 向单个进程发送信号
func sendSignal(pid int, sig syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		// On Windows, we can only kill the process
		// 在 Windows 上，我们只能终止进程
		if sig == syscall.SIGKILL || sig == syscall.SIGTERM {
			return process.Kill()
		}
		return nil
	}

	return process.Signal(sig)
}

// getProcessMetrics gets CPU and memory usage for a process
// getProcessMetrics 获取进程的 CPU 和内存使用率
func getProcessMetrics(pid int) (cpuUsage float64, memoryUsage int64) {
	switch runtime.GOOS {
	case "linux":
		return getProcessMetricsLinux(pid)
	case "darwin":
		return getProcessMetricsDarwin(pid)
	case "windows":
		return getProcessMetricsWindows(pid)
	}
	return 0, 0
}

// getProcessMetricsLinux gets process metrics on Linux
// getProcessMetricsLinux 在 Linux 上获取进程指标
func getProcessMetricsLinux(pid int) (cpuUsage float64, memoryUsage int64) {
	// Read /proc/[pid]/statm for memory info
	// 读取 /proc/[pid]/statm 获取内存信息
	statmPath := fmt.Sprintf("/proc/%d/statm", pid)
	statmData, err := os.ReadFile(statmPath)
	if err != nil {
		return 0, 0
	}

	statmFields := strings.Fields(string(statmData))
	if len(statmFields) >= 2 {
		// RSS is in pages, convert to bytes (assuming 4KB pages)
		// RSS 以页为单位，转换为字节（假设 4KB 页）
		rss, _ := strconv.ParseInt(statmFields[1], 10, 64)
		memoryUsage = rss * 4096
	}

	// Instantaneous CPU usage needs two samples, the monitor does the
	// sampling through ReadCPUTicks.
	// 瞬时 CPU 使用率需要两次采样，由监控器通过 ReadCPUTicks 完成。
	return 0, memoryUsage
}

// getProcessMetricsDarwin gets process metrics on macOS
// getProcessMetricsDarwin 在 macOS 上获取进程指标
func getProcessMetricsDarwin(pid int) (cpuUsage float64, memoryUsage int64) {
	// Use ps command to get process info
	// 使用 ps 命令获取进程信息
	cmd := exec.Command("ps", "-o", "rss=,pcpu=", "-p", strconv.Itoa(pid))
	output, err := cmd.Output()
	if err != nil {
		return 0, 0
	}

	fields := strings.Fields(string(output))
	if len(fields) >= 2 {
		// RSS is in KB, convert to bytes
		// RSS 以 KB 为单位，转换为字节
		rss, _ := strconv.ParseInt(fields[0], 10, 64)
		memoryUsage = rss * 1024

		// CPU percentage
		// CPU 百分比
		cpu, _ := strconv.ParseFloat(fields[1], 64)
		cpuUsage = cpu
	}

	return cpuUsage, memoryUsage
}

// getProcessMetricsWindows gets process metrics on Windows
// getProcessMetricsWindows 在 Windows 上获取进程指标
func getProcessMetricsWindows(pid int) (cpuUsage float64, memoryUsage int64) {
	// Use wmic command to get process info
	// 使用 wmic 命令获取进程信息
	cmd := exec.Command("wmic", "process", "where", fmt.Sprintf("ProcessId=%d", pid), "get", "WorkingSetSize", "/value")
	output, err := cmd.Output()
	if err != nil {
		return 0, 0
	}

	// Parse output / 解析输出
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "WorkingSetSize=") {
			value := strings.TrimPrefix(line, "WorkingSetSize=")
			value = strings.TrimSpace(value)
			mem, _ := strconv.ParseInt(value, 10, 64)
			memoryUsage = mem
		}
	}

	return 0, memoryUsage
}

// clockTicksPerSecond is the kernel USER_HZ value, 100 on every
// mainstream Linux build
// clockTicksPerSecond 是内核 USER_HZ 值，主流 Linux 上为 100
const clockTicksPerSecond = 100

// ReadCPUTicks returns the cumulative CPU time of a process in clock ticks
// ReadCPUTicks 返回进程累计 CPU 时间（时钟滴答数）
// Only supported on Linux, other platforms return ErrMetricsUnsupported.
// 仅支持 Linux，其他平台返回 ErrMetricsUnsupported。
func ReadCPUTicks(pid int) (uint64, error) {
	if runtime.GOOS != "linux" {
		return 0, ErrMetricsUnsupported
	}

	statPath := fmt.Sprintf("/proc/%d/stat", pid)
	statData, err := os.ReadFile(statPath)
	if err != nil {
		return 0, err
	}

	// The comm field may contain spaces, fields after the closing paren
	// are position-stable.
	// comm 字段可能包含空格，右括号之后的字段位置固定。
	text := string(statData)
	idx := strings.LastIndexByte(text, ')')
	if idx < 0 || idx+2 > len(text) {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	fields := strings.Fields(text[idx+2:])

	// After the comm split: utime is field 11, stime is field 12
	// 截断 comm 后：utime 是第 11 个字段，stime 是第 12 个
	if len(fields) < 13 {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, err
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, err
	}
	return utime + stime, nil
}

// TicksToSeconds converts clock ticks to seconds
// TicksToSeconds 将时钟滴答数转换为秒
func TicksToSeconds(ticks uint64) float64 {
	return float64(ticks) / clockTicksPerSecond
}

// collectLogTail collects the last N lines from a log file
// collectLogTail 从日志文件收集最后 N 行
func collectLogTail(logFile string, lines int) string {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Sprintf("failed to open log file: %v / 打开日志文件失败：%v", err, err)
	}
	defer file.Close()

	// Read all lines / 读取所有行
	var allLines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}

	// Get last N lines / 获取最后 N 行
	start := 0
	if len(allLines) > lines {
		start = len(allLines) - lines
	}

	return strings.Join(allLines[start:], "\n")
}

// ReadProcessLogs reads the captured log of one instance
// ReadProcessLogs 读取某个实例的捕获日志
func ReadProcessLogs(logDir, name string, lines int) (string, error) {
	if lines <= 0 {
		lines = DefaultLogTailLines
	}

	logFile := filepath.Join(logDir, name+".log")
	if _, err := os.Stat(logFile); err != nil {
		return "", fmt.Errorf("no log file for %s: %w / 实例 %s 没有日志文件：%v", name, err, name, err)
	}

	return collectLogTail(logFile, lines), nil
}
