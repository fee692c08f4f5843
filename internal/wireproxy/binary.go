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

package wireproxy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// 错误定义 / error definitions
var (
	ErrBinaryNotFound      = errors.New("wireproxy: binary not found in any search location")
	ErrBinaryNotRegular    = errors.New("wireproxy: path is not a regular file")
	ErrBinaryNotExecutable = errors.New("wireproxy: file is not executable")
	ErrBinaryTooSmall      = errors.New("wireproxy: file is too small to be a real binary")
	ErrBinaryBadMagic      = errors.New("wireproxy: file is not a recognized executable format")
)

// MinBinarySize 真实 wireproxy 二进制的最小体积
// A stripped wireproxy build is several megabytes, anything under 1MB
// is a wrapper script or a broken download.
const MinBinarySize = 1 << 20

// binaryName wireproxy 可执行文件名
const binaryName = "wireproxy"

// FindBinary 按优先级定位 wireproxy 二进制
// 查找顺序：显式配置、PATH、工作目录、常见安装目录、程序所在目录
// FindBinary resolves the wireproxy binary to run. An explicitly
// configured path is trusted first and validated, then PATH, the
// working directory, well-known install dirs and finally the directory
// holding our own executable.
func FindBinary(configured string) (string, error) {
	if configured != "" {
		if err := ValidateBinary(configured); err != nil {
			return "", fmt.Errorf("configured binary %s rejected: %w", configured, err)
		}
		return configured, nil
	}

	// PATH 查找
	if path, err := exec.LookPath(binaryName); err == nil {
		if ValidateBinary(path) == nil {
			return path, nil
		}
	}

	for _, dir := range searchDirs() {
		candidate := filepath.Join(dir, executableName())
		if ValidateBinary(candidate) == nil {
			return candidate, nil
		}
	}

	return "", ErrBinaryNotFound
}

// searchDirs 返回待探测的目录列表
func searchDirs() []string {
	dirs := make([]string, 0, 5)

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	if runtime.GOOS != "windows" {
		dirs = append(dirs, "/usr/local/bin", "/usr/bin", "/opt/wireproxy")
	}

	// 程序自身所在目录
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	return dirs
}

// executableName 带平台后缀的可执行文件名
func executableName() string {
	if runtime.GOOS == "windows" {
		return binaryName + ".exe"
	}
	return binaryName
}

// ValidateBinary 校验候选文件确实是可运行的 wireproxy 二进制
// 检查项：普通文件、可执行权限、最小体积、可执行文件魔数
// ValidateBinary rejects paths that are not a plausible native binary
// so we fail before spawning instead of at spawn time.
func ValidateBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return ErrBinaryNotRegular
	}

	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return ErrBinaryNotExecutable
	}

	if info.Size() < MinBinarySize {
		return ErrBinaryTooSmall
	}

	return checkMagic(path)
}

// checkMagic 读取文件头并校验 ELF / PE / Mach-O 魔数
func checkMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err = f.Read(head); err != nil {
		return ErrBinaryBadMagic
	}

	// ELF
	if head[0] == 0x7F && head[1] == 'E' && head[2] == 'L' && head[3] == 'F' {
		return nil
	}
	// PE
	if head[0] == 'M' && head[1] == 'Z' {
		return nil
	}
	// Mach-O，大小端各两种变体，加上 universal 格式
	magic := binary.BigEndian.Uint32(head)
	switch magic {
	case 0xFEEDFACE, 0xFEEDFACF, 0xCEFAEDFE, 0xCFFAEDFE, 0xCAFEBABE:
		return nil
	}

	return ErrBinaryBadMagic
}
