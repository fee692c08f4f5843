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
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surfproxy/surfproxyX/internal/apps/catalog"
	"github.com/surfproxy/surfproxyX/internal/monitor"
	"github.com/surfproxy/surfproxyX/internal/process"
)

var testServers = []catalog.Server{
	{Country: "Germany", Location: "Berlin", Load: 50, PubKey: "pk-de-1", ConnectionName: "de-ber-1.prod.surfshark.com"},
	{Country: "Germany", Location: "Berlin", Load: 10, PubKey: "pk-de-2", ConnectionName: "de-ber-2.prod.surfshark.com"},
	{Country: "Japan", Location: "Tokyo", Load: 30, PubKey: "pk-jp-1", ConnectionName: "jp-tok-1.prod.surfshark.com"},
}

// setupService builds a Service over a catalog preloaded from a cache
// file, so nothing touches the network.
// setupService 基于缓存文件预加载的目录构建 Service，不触网。
func setupService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	cache := catalog.NewCache(filepath.Join(dir, "servers.json"))
	require.NoError(t, cache.Save(testServers))

	fetcher := catalog.NewFetcher(func() string { return "" }, 0, 1)
	catSvc := catalog.NewService(fetcher, cache)
	_, err := catSvc.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.True(t, catSvc.Ready())

	registry := NewRegistry(filepath.Join(dir, "state.json"))
	require.NoError(t, registry.Load())

	base := pickFreePort(t)
	ports := NewPortAllocator(base, base+50)

	svc := NewService(registry, ports, catSvc, process.NewProcessManager(), monitor.NewProcessMonitor())
	svc.SetDirs(filepath.Join(dir, "configs"), filepath.Join(dir, "logs"))
	svc.SetCheckTarget("127.0.0.1:1")
	return svc, dir
}

func TestService_Create(t *testing.T) {
	svc, dir := setupService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany"})
	require.NoError(t, err)

	assert.Len(t, inst.ID, instanceIDLength)
	assert.Equal(t, "Germany", inst.Country)
	assert.Equal(t, StatusStopped, inst.Status)
	assert.NotZero(t, inst.Port)
	// The lowest-load German server is pinned.
	assert.Equal(t, "de-ber-2.prod.surfshark.com", inst.Server.ConnectionName)
	assert.Equal(t, 10, inst.Server.Load)

	// State was flushed to disk.
	_, err = os.Stat(filepath.Join(dir, "state.json"))
	assert.NoError(t, err)

	infos := svc.List(ctx)
	require.Len(t, infos, 1)
	assert.Equal(t, inst.ID, infos[0].ID)
	assert.Equal(t, StatusStopped, infos[0].Status)
}

func TestService_Create_UnknownSelection(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), &CreateParams{Selection: "Atlantis"})
	assert.ErrorIs(t, err, catalog.ErrSelectionNotFound)
}

func TestService_Create_ExplicitPortAndDuplicate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	port := pickFreePort(t)
	inst, err := svc.Create(ctx, &CreateParams{Selection: "Japan", Port: port})
	require.NoError(t, err)
	assert.Equal(t, port, inst.Port)

	// Same port again is rejected even though the first instance is stopped.
	_, err = svc.Create(ctx, &CreateParams{Selection: "Germany", Port: port})
	assert.ErrorIs(t, err, ErrPortInUse)

	// Out-of-bounds port is rejected.
	_, err = svc.Create(ctx, &CreateParams{Selection: "Germany", Port: 80})
	assert.ErrorIs(t, err, ErrPortOutOfRange)
}

func TestService_Create_DistinctPorts(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany - Berlin"})
		require.NoError(t, err)
		assert.False(t, seen[inst.Port], "port %d allocated twice", inst.Port)
		seen[inst.Port] = true
	}
}

func TestService_Start_Errors(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Start(ctx, "missing"), ErrInstanceNotFound)

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Japan"})
	require.NoError(t, err)

	// No private key configured yet.
	assert.ErrorIs(t, svc.Start(ctx, inst.ID), ErrPrivateKeyNotSet)
}

func TestService_StopAndTest_NotRunning(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Stop(ctx, inst.ID), ErrInstanceNotRunning)
	assert.ErrorIs(t, svc.Test(ctx, inst.ID), ErrInstanceNotRunning)
	assert.ErrorIs(t, svc.Stop(ctx, "missing"), ErrInstanceNotFound)
}

func TestService_Delete_FreesPort(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	port := pickFreePort(t)
	inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany", Port: port})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, inst.ID))
	_, err = svc.Get(ctx, inst.ID)
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	// The port is claimable again.
	again, err := svc.Create(ctx, &CreateParams{Selection: "Germany", Port: port})
	require.NoError(t, err)
	assert.Equal(t, port, again.Port)
}

func TestService_ExportConfig(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Japan"})
	require.NoError(t, err)

	// No key configured.
	_, err = svc.ExportConfig(ctx, inst.ID)
	assert.ErrorIs(t, err, ErrPrivateKeyNotSet)

	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	svc.SetPrivateKey(key)

	content, err := svc.ExportConfig(ctx, inst.ID)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "PrivateKey = "+key)
	assert.Contains(t, text, "PublicKey = pk-jp-1")
	assert.Contains(t, text, "jp-tok-1.prod.surfshark.com:51820")
	assert.Contains(t, text, "BindAddress = 127.0.0.1:")

	_, err = svc.ExportConfig(ctx, "missing")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestService_StatePersistsAcrossRestart(t *testing.T) {
	svc, dir := setupService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany", AutoRestart: true})
	require.NoError(t, err)

	// A new registry over the same state file sees the instance.
	fresh := NewRegistry(filepath.Join(dir, "state.json"))
	require.NoError(t, fresh.Load())
	got, err := fresh.Get(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.Port, got.Port)
	assert.True(t, got.AutoRestart)
	assert.Equal(t, inst.Server.ConnectionName, got.Server.ConnectionName)
}

func TestService_HandleCrash_RemovesConfigFile(t *testing.T) {
	svc, dir := setupService(t)
	ctx := context.Background()

	inst, err := svc.Create(ctx, &CreateParams{Selection: "Germany"})
	require.NoError(t, err)

	// Simulate a running tunnel with a rendered config on disk.
	configPath := filepath.Join(dir, "configs", inst.ID+".conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("[Interface]\nPrivateKey = secret\n"), 0o600))
	require.NoError(t, svc.registry.Update(inst.ID, func(i *Instance) {
		i.Status = StatusRunning
		i.ConfigPath = configPath
	}))

	svc.HandleCrash(&monitor.TrackedProcess{Name: inst.ID, PID: 4242})

	// The rendered config holds the private key and must not outlive
	// the process.
	_, err = os.Stat(configPath)
	assert.True(t, os.IsNotExist(err), "config file should be removed after a crash")

	got, err := svc.registry.Get(inst.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Empty(t, got.ConfigPath)
	assert.Contains(t, got.LastError, "died unexpectedly")
}

func TestService_CountByStatus(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateParams{Selection: "Germany"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateParams{Selection: "Japan"})
	require.NoError(t, err)

	counts := svc.CountByStatus(ctx)
	assert.Equal(t, 2, counts[StatusStopped])
	assert.Equal(t, 0, counts[StatusRunning])
}
