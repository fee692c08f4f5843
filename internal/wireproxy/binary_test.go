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
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeBinary 写一个带指定魔数、体积超过下限的假二进制
func writeFakeBinary(t *testing.T, dir, name string, magic []byte) string {
	t.Helper()

	content := make([]byte, MinBinarySize+16)
	copy(content, magic)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o755))
	return path
}

func TestValidateBinaryAcceptsELF(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy", []byte{0x7F, 'E', 'L', 'F'})
	assert.NoError(t, ValidateBinary(path))
}

func TestValidateBinaryAcceptsPE(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy.exe", []byte{'M', 'Z', 0x90, 0x00})
	assert.NoError(t, ValidateBinary(path))
}

func TestValidateBinaryAcceptsMachO(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy", []byte{0xFE, 0xED, 0xFA, 0xCF})
	assert.NoError(t, ValidateBinary(path))
}

func TestValidateBinaryRejectsSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wireproxy")
	require.NoError(t, os.WriteFile(path, []byte{0x7F, 'E', 'L', 'F'}, 0o755))

	assert.ErrorIs(t, ValidateBinary(path), ErrBinaryTooSmall)
}

func TestValidateBinaryRejectsBadMagic(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy", []byte{0x00, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, ValidateBinary(path), ErrBinaryBadMagic)
}

func TestValidateBinaryRejectsScript(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy", []byte("#!/bin/sh"))
	assert.ErrorIs(t, ValidateBinary(path), ErrBinaryBadMagic)
}

func TestValidateBinaryRejectsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	dir := t.TempDir()
	content := make([]byte, MinBinarySize+16)
	copy(content, []byte{0x7F, 'E', 'L', 'F'})
	path := filepath.Join(dir, "wireproxy")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	assert.ErrorIs(t, ValidateBinary(path), ErrBinaryNotExecutable)
}

func TestValidateBinaryRejectsDirectory(t *testing.T) {
	assert.ErrorIs(t, ValidateBinary(t.TempDir()), ErrBinaryNotRegular)
}

func TestValidateBinaryMissingFile(t *testing.T) {
	err := ValidateBinary(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, os.IsNotExist(err))
}

func TestFindBinaryConfiguredPath(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir(), "wireproxy", []byte{0x7F, 'E', 'L', 'F'})

	found, err := FindBinary(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindBinaryConfiguredPathInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wireproxy")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o755))

	_, err := FindBinary(path)
	assert.ErrorIs(t, err, ErrBinaryTooSmall)
}
