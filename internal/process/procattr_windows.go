//go:build windows
// +build windows

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
	"os"
	"os/exec"
	"syscall"
)

// setProcGroupAttr creates the child in a new process group on Windows
// setProcGroupAttr 在 Windows 上将子进程放入新的进程组
func setProcGroupAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup terminates the process on Windows
// killProcessGroup 在 Windows 上终止进程
// There is no group signalling, SIGTERM and SIGKILL both map to Kill.
// Windows 没有进程组信号，SIGTERM 和 SIGKILL 均映射为 Kill。
func killProcessGroup(pid int, sig syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
		return process.Kill()
	}
	return nil
}
