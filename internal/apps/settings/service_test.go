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

package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestDefaults(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, svc.Load())

	got := svc.Get()
	assert.True(t, got.AutoStartProxies)
	assert.False(t, got.AutoRestartOnCrash)
	assert.Equal(t, DefaultAPIEndpoint, got.APIEndpoint)
	assert.Equal(t, DefaultRefreshIntervalHours, got.RefreshIntervalHours)
	assert.Equal(t, DefaultEventRetentionDays, got.EventRetentionDays)
}

func TestUpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	svc := NewService(path)
	require.NoError(t, svc.Load())
	ctx := context.Background()

	updated, err := svc.Update(ctx, &UpdateRequest{
		AutoStartProxies:   boolPtr(false),
		AutoRestartOnCrash: boolPtr(true),
		EventRetentionDays: intPtr(7),
	})
	require.NoError(t, err)
	assert.False(t, updated.AutoStartProxies)
	assert.True(t, updated.AutoRestartOnCrash)
	assert.Equal(t, 7, updated.EventRetentionDays)
	// Untouched fields keep their values.
	assert.Equal(t, DefaultAPIEndpoint, updated.APIEndpoint)

	// A fresh service over the same file sees the update.
	fresh := NewService(path)
	require.NoError(t, fresh.Load())
	assert.False(t, fresh.Get().AutoStartProxies)
	assert.Equal(t, 7, fresh.Get().EventRetentionDays)
}

func TestUpdateValidation(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "settings.json"))
	ctx := context.Background()

	_, err := svc.Update(ctx, &UpdateRequest{APIEndpoint: strPtr("ftp://example.com")})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	_, err = svc.Update(ctx, &UpdateRequest{RefreshIntervalHours: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Update(ctx, &UpdateRequest{EventRetentionDays: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	// A failed update leaves the settings untouched.
	assert.Equal(t, DefaultAPIEndpoint, svc.Get().APIEndpoint)
	assert.Equal(t, DefaultRefreshIntervalHours, svc.Get().RefreshIntervalHours)

	updated, err := svc.Update(ctx, &UpdateRequest{APIEndpoint: strPtr("https://mirror.example.com/clusters")})
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/clusters", updated.APIEndpoint)
	assert.Equal(t, "https://mirror.example.com/clusters", svc.APIEndpoint())
}

func TestApplyEndpointOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	svc := NewService(path)
	require.NoError(t, svc.Load())
	ctx := context.Background()

	// An empty override keeps the stored endpoint.
	require.NoError(t, svc.ApplyEndpointOverride(ctx, ""))
	assert.Equal(t, DefaultAPIEndpoint, svc.APIEndpoint())

	// A configured override replaces the stored endpoint and persists.
	require.NoError(t, svc.ApplyEndpointOverride(ctx, "https://mirror.example.com/clusters"))
	assert.Equal(t, "https://mirror.example.com/clusters", svc.APIEndpoint())

	fresh := NewService(path)
	require.NoError(t, fresh.Load())
	assert.Equal(t, "https://mirror.example.com/clusters", fresh.APIEndpoint())

	// An invalid override is rejected and leaves the endpoint untouched.
	err := svc.ApplyEndpointOverride(ctx, "not-a-url")
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	assert.Equal(t, "https://mirror.example.com/clusters", svc.APIEndpoint())
}

func TestLoadFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"auto_start_proxies": false}`), 0o600))

	svc := NewService(path)
	require.NoError(t, svc.Load())

	got := svc.Get()
	assert.False(t, got.AutoStartProxies)
	assert.Equal(t, DefaultAPIEndpoint, got.APIEndpoint)
	assert.Equal(t, DefaultEventRetentionDays, got.EventRetentionDays)
}
