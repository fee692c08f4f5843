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

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// writeScript writes an executable shell script used as a stand-in binary
// writeScript 写入一个可执行 shell 脚本作为替身二进制
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// writeConfig writes a placeholder tunnel config file
// writeConfig 写入占位隧道配置文件
func writeConfig(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("[Interface]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
}

// For any log file with M lines and any tail size N, collectLogTail returns
// exactly min(M, N) lines ending with the last written line.
// 对于任何 M 行的日志文件和任意尾部大小 N，collectLogTail 恰好返回
// min(M, N) 行，且以最后写入的行结尾。
func TestProperty_LogTailReturnsLastLines(t *testing.T) {
	dir := t.TempDir()
	seq := 0

	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 300).Draw(rt, "total")
		tail := rapid.IntRange(1, 150).Draw(rt, "tail")

		seq++
		logFile := filepath.Join(dir, fmt.Sprintf("tail-%d.log", seq))

		var b strings.Builder
		for i := 1; i <= total; i++ {
			fmt.Fprintf(&b, "line-%d\n", i)
		}
		if err := os.WriteFile(logFile, []byte(b.String()), 0o644); err != nil {
			rt.Fatalf("write log: %v", err)
		}

		got := collectLogTail(logFile, tail)
		lines := strings.Split(got, "\n")

		want := total
		if tail < want {
			want = tail
		}
		if len(lines) != want {
			rt.Fatalf("tail returned %d lines, want %d", len(lines), want)
		}
		if lines[len(lines)-1] != fmt.Sprintf("line-%d", total) {
			rt.Errorf("last line = %q, want line-%d", lines[len(lines)-1], total)
		}
	})
}

// Mutating a ManagedProcess after taking a snapshot must not change the snapshot.
// 生成快照后修改 ManagedProcess 不应影响快照内容。
func TestProperty_SnapshotIsolation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		proc := &ManagedProcess{
			Name:       rapid.StringMatching(`proxy-[a-f0-9]{8}`).Draw(rt, "name"),
			PID:        rapid.IntRange(1, 65535).Draw(rt, "pid"),
			Status:     StatusRunning,
			BindPort:   rapid.IntRange(1024, 65535).Draw(rt, "port"),
			ConfigPath: "/tmp/proxy.conf",
		}

		proc.mu.RLock()
		info := proc.snapshot()
		proc.mu.RUnlock()

		origPID := info.PID
		origName := info.Name

		proc.mu.Lock()
		proc.PID = 0
		proc.Name = "mutated"
		proc.Status = StatusStopped
		proc.mu.Unlock()

		if info.PID != origPID || info.Name != origName || info.Status != StatusRunning {
			rt.Errorf("snapshot changed after mutation: %+v", info)
		}
	})
}

// TestStartProcess_ParamValidation tests start parameter validation
// TestStartProcess_ParamValidation 测试启动参数校验
func TestStartProcess_ParamValidation(t *testing.T) {
	m := NewProcessManager()
	ctx := context.Background()

	if err := m.StartProcess(ctx, "p1", nil); err == nil {
		t.Error("nil params should fail")
	}

	err := m.StartProcess(ctx, "p1", &StartParams{ConfigPath: "/tmp/x.conf"})
	if !errors.Is(err, ErrStartFailed) {
		t.Errorf("empty binary path: got %v, want ErrStartFailed", err)
	}

	err = m.StartProcess(ctx, "p1", &StartParams{BinaryPath: "/usr/bin/true"})
	if !errors.Is(err, ErrStartFailed) {
		t.Errorf("empty config path: got %v, want ErrStartFailed", err)
	}
}

// TestStartProcess_MissingBinary tests spawn failure handling
// TestStartProcess_MissingBinary 测试启动失败处理
func TestStartProcess_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	m := NewProcessManager()

	cfg := writeConfig(t, dir, "p1.conf")
	err := m.StartProcess(context.Background(), "p1", &StartParams{
		BinaryPath: filepath.Join(dir, "no-such-binary"),
		ConfigPath: cfg,
		LogDir:     dir,
	})
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("got %v, want ErrStartFailed", err)
	}

	info, err := m.GetStatus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if info.Status != StatusError {
		t.Errorf("status = %s, want %s", info.Status, StatusError)
	}
	if info.LastError == "" {
		t.Error("LastError should be recorded")
	}
}

// TestStartProcess_ImmediateExit tests the startup grace period check
// TestStartProcess_ImmediateExit 测试启动宽限期检测
func TestStartProcess_ImmediateExit(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	m := NewProcessManager()

	bin := writeScript(t, dir, "dying.sh", "echo tunnel handshake refused >&2\nexit 3\n")
	cfg := writeConfig(t, dir, "p1.conf")

	err := m.StartProcess(context.Background(), "p1", &StartParams{
		BinaryPath: bin,
		ConfigPath: cfg,
		LogDir:     dir,
	})
	if !errors.Is(err, ErrDiedImmediately) {
		t.Fatalf("got %v, want ErrDiedImmediately", err)
	}
	if !strings.Contains(err.Error(), "tunnel handshake refused") {
		t.Errorf("error should carry captured log output, got: %v", err)
	}
}

// TestStartStopLifecycle tests a full start and graceful stop cycle
// TestStartStopLifecycle 测试完整的启动与优雅停止周期
func TestStartStopLifecycle(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	m := NewProcessManager()

	var (
		mu     sync.Mutex
		events []ProcessEvent
	)
	m.SetEventHandler(func(name string, event ProcessEvent, info *ProcessInfo) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})

	// Script that exits cleanly on SIGTERM / 收到 SIGTERM 后干净退出的脚本
	bin := writeScript(t, dir, "tunnel.sh", "trap 'exit 0' TERM\nwhile true; do sleep 0.1; done\n")
	cfg := writeConfig(t, dir, "p1.conf")

	err := m.StartProcess(context.Background(), "p1", &StartParams{
		BinaryPath: bin,
		ConfigPath: cfg,
		BindPort:   1080,
		LogDir:     dir,
	})
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	if !m.IsRunning("p1") {
		t.Fatal("process should be running")
	}

	info, err := m.GetStatus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if info.Status != StatusRunning || info.PID <= 0 {
		t.Errorf("unexpected status: %+v", info)
	}
	if info.BindPort != 1080 {
		t.Errorf("bind port = %d, want 1080", info.BindPort)
	}

	// Starting again while running must fail / 运行中再次启动必须失败
	err = m.StartProcess(context.Background(), "p1", &StartParams{
		BinaryPath: bin,
		ConfigPath: cfg,
		LogDir:     dir,
	})
	if !errors.Is(err, ErrProcessAlreadyRunning) {
		t.Errorf("double start: got %v, want ErrProcessAlreadyRunning", err)
	}

	err = m.StopProcess(context.Background(), "p1", &StopParams{Graceful: true, RemoveConfig: true})
	if err != nil {
		t.Fatalf("StopProcess: %v", err)
	}

	if m.IsRunning("p1") {
		t.Error("process should be stopped")
	}
	if _, err := os.Stat(cfg); !os.IsNotExist(err) {
		t.Error("config file should be removed after stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 || events[0] != EventStarted {
		t.Fatalf("unexpected events: %v", events)
	}
	for _, e := range events {
		if e == EventCrashed {
			t.Errorf("graceful stop must not raise a crash event, got %v", events)
		}
	}
}

// TestCrashDetection tests that unexpected exits raise a crash event
// TestCrashDetection 测试意外退出触发崩溃事件
func TestCrashDetection(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	m := NewProcessManager()

	crashed := make(chan *ProcessInfo, 1)
	m.SetEventHandler(func(name string, event ProcessEvent, info *ProcessInfo) {
		if event == EventCrashed {
			select {
			case crashed <- info:
			default:
			}
		}
	})

	// Survives the grace period, then dies / 撑过宽限期后死亡
	bin := writeScript(t, dir, "flaky.sh", "sleep 0.8\nexit 1\n")
	cfg := writeConfig(t, dir, "p1.conf")

	err := m.StartProcess(context.Background(), "p1", &StartParams{
		BinaryPath: bin,
		ConfigPath: cfg,
		LogDir:     dir,
	})
	if err != nil {
		t.Fatalf("StartProcess: %v", err)
	}

	select {
	case info := <-crashed:
		if info.Name != "p1" {
			t.Errorf("crash event for %q, want p1", info.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("crash event not delivered")
	}

	info, err := m.GetStatus(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if info.Status != StatusStopped {
		t.Errorf("status = %s, want %s", info.Status, StatusStopped)
	}
	if !strings.Contains(info.LastError, "unexpectedly") {
		t.Errorf("LastError = %q, should mention unexpected exit", info.LastError)
	}
}

// TestStopAll tests bounded parallel shutdown of every process
// TestStopAll 测试所有进程的有界并行停止
func TestStopAll(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	m := NewProcessManager()
	m.SetStopConcurrency(2)

	bin := writeScript(t, dir, "tunnel.sh", "trap 'exit 0' TERM\nwhile true; do sleep 0.1; done\n")

	var configs []string
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("p%d", i)
		cfg := writeConfig(t, dir, name+".conf")
		configs = append(configs, cfg)
		err := m.StartProcess(context.Background(), name, &StartParams{
			BinaryPath: bin,
			ConfigPath: cfg,
			LogDir:     dir,
		})
		if err != nil {
			t.Fatalf("start %s: %v", name, err)
		}
	}

	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	for i := 0; i < 3; i++ {
		if m.IsRunning(fmt.Sprintf("p%d", i)) {
			t.Errorf("p%d still running after StopAll", i)
		}
	}
	for _, cfg := range configs {
		if _, err := os.Stat(cfg); !os.IsNotExist(err) {
			t.Errorf("config %s should be removed", cfg)
		}
	}
}

// TestStopProcess_NotFound tests stop error paths
// TestStopProcess_NotFound 测试停止的错误路径
func TestStopProcess_NotFound(t *testing.T) {
	m := NewProcessManager()

	err := m.StopProcess(context.Background(), "ghost", nil)
	if !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("got %v, want ErrProcessNotFound", err)
	}
}

// TestRemoveProcess tests that removal drops the bookkeeping entry
// TestRemoveProcess 测试移除后记录被删除
func TestRemoveProcess(t *testing.T) {
	m := NewProcessManager()
	m.processes.Store("p1", &ManagedProcess{Name: "p1", Status: StatusStopped})

	if _, err := m.GetStatus(context.Background(), "p1"); err != nil {
		t.Fatalf("GetStatus before removal: %v", err)
	}

	m.RemoveProcess("p1")

	if _, err := m.GetStatus(context.Background(), "p1"); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("got %v, want ErrProcessNotFound", err)
	}
}

// TestReadProcessLogs tests per-instance log reading
// TestReadProcessLogs 测试按实例读取日志
func TestReadProcessLogs(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadProcessLogs(dir, "ghost", 10); err == nil {
		t.Error("missing log file should return an error")
	}

	logFile := filepath.Join(dir, "p1.log")
	if err := os.WriteFile(logFile, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := ReadProcessLogs(dir, "p1", 2)
	if err != nil {
		t.Fatalf("ReadProcessLogs: %v", err)
	}
	if out != "two\nthree" {
		t.Errorf("got %q, want %q", out, "two\nthree")
	}
}

// TestReadCPUTicks tests cumulative CPU time reading on Linux
// TestReadCPUTicks 测试 Linux 上的累计 CPU 时间读取
func TestReadCPUTicks(t *testing.T) {
	if runtime.GOOS != "linux" {
		if _, err := ReadCPUTicks(os.Getpid()); !errors.Is(err, ErrMetricsUnsupported) {
			t.Errorf("got %v, want ErrMetricsUnsupported", err)
		}
		return
	}

	if _, err := ReadCPUTicks(os.Getpid()); err != nil {
		t.Errorf("own pid: %v", err)
	}

	if _, err := ReadCPUTicks(99999999); err == nil {
		t.Error("nonexistent pid should fail")
	}
}

// TestIsProcessAlive tests liveness detection edge cases
// TestIsProcessAlive 测试存活探测的边界情况
func TestIsProcessAlive(t *testing.T) {
	if isProcessAlive(0) || isProcessAlive(-1) {
		t.Error("non-positive PIDs are never alive")
	}
	if !isProcessAlive(os.Getpid()) {
		t.Error("own pid should be alive")
	}
}
