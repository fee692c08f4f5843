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

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// setupCatalogRouter 构建带目录路由的测试引擎
func setupCatalogRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewHandler(svc)
	api := r.Group("/api/v1")
	{
		api.GET("/servers", h.ListServers)
		api.GET("/servers/selections", h.GetSelections)
		api.GET("/servers/best", h.GetBestServer)
		api.GET("/servers/status", h.GetCatalogStatus)
		api.POST("/servers/refresh", h.RefreshServers)
	}
	return r
}

// newCacheBackedService 构建一个从缓存加载、不触网的服务
func newCacheBackedService(t *testing.T) *Service {
	cache := newTestCache(t)
	if err := cache.Save(fixtureServers()); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	fetcher := NewFetcher(func() string { return "http://127.0.0.1:1" }, time.Second, 1)
	svc := NewService(fetcher, cache)
	if _, err := svc.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh from cache failed: %v", err)
	}
	return svc
}

func performGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestListServersEndpoint 测试 GET /api/v1/servers
func TestListServersEndpoint(t *testing.T) {
	router := setupCatalogRouter(newCacheBackedService(t))

	w := performGet(router, "/api/v1/servers")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ErrorMsg != "" {
		t.Errorf("Unexpected error_msg: %s", resp.ErrorMsg)
	}
	if len(resp.Data) != 3 {
		t.Errorf("Expected 3 servers, got %d", len(resp.Data))
	}
}

// TestListServersEndpointWithSelection 测试按选择项过滤
func TestListServersEndpointWithSelection(t *testing.T) {
	router := setupCatalogRouter(newCacheBackedService(t))

	w := performGet(router, "/api/v1/servers?selection=UK")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Location != "London" {
		t.Errorf("Expected only London for UK, got %+v", resp.Data)
	}

	// 未知选择项应返回 404
	w = performGet(router, "/api/v1/servers?selection=Atlantis")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown selection, got %d", w.Code)
	}
	var errResp ListServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp.ErrorMsg == "" {
		t.Error("Expected non-empty error_msg for unknown selection")
	}
}

// TestGetSelectionsEndpoint 测试 GET /api/v1/servers/selections
func TestGetSelectionsEndpoint(t *testing.T) {
	router := setupCatalogRouter(newCacheBackedService(t))

	w := performGet(router, "/api/v1/servers/selections")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp GetSelectionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := []string{"UK", "USA", "USA - Los Angeles", "USA - New York"}
	if !reflect.DeepEqual(resp.Data, want) {
		t.Errorf("Selections = %v, want %v", resp.Data, want)
	}
}

// TestGetBestServerEndpoint 测试 GET /api/v1/servers/best
func TestGetBestServerEndpoint(t *testing.T) {
	router := setupCatalogRouter(newCacheBackedService(t))

	w := performGet(router, "/api/v1/servers/best?selection=USA")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp GetBestServerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil || resp.Data.Location != "New York" {
		t.Errorf("Expected New York as best USA server, got %+v", resp.Data)
	}

	// 缺少 selection 参数应返回 400
	w = performGet(router, "/api/v1/servers/best")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without selection, got %d", w.Code)
	}
}

// TestGetCatalogStatusEndpoint 测试 GET /api/v1/servers/status
func TestGetCatalogStatusEndpoint(t *testing.T) {
	router := setupCatalogRouter(newCacheBackedService(t))

	w := performGet(router, "/api/v1/servers/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp GetCatalogStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil {
		t.Fatal("Expected status data")
	}
	if resp.Data.Count != 3 || resp.Data.Countries != 2 || resp.Data.Locations != 3 {
		t.Errorf("Unexpected status: %+v", resp.Data)
	}
}

// TestRefreshServersEndpoint verifies POST /api/v1/servers/refresh
// forces a fetch from the vendor API.
// TestRefreshServersEndpoint 验证刷新接口强制拉取。
func TestRefreshServersEndpoint(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(vendorPayload))
	}))
	defer mockServer.Close()

	svc := NewService(newTestFetcher(mockServer, 1), newTestCache(t))
	router := setupCatalogRouter(svc)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/servers/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RefreshServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil || resp.Data.Count != 3 || resp.Data.Source != SourceAPI {
		t.Errorf("Unexpected refresh result: %+v", resp.Data)
	}
}

// TestRefreshServersEndpointFailure 验证接口失联时刷新返回 502
func TestRefreshServersEndpointFailure(t *testing.T) {
	// 探测目标保持可达，接口本身失联
	probeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer probeServer.Close()

	fetcher := NewFetcher(func() string { return deadEndpoint(t) }, time.Second, 1)
	fetcher.SetProbeTarget(probeServer.Listener.Addr().String())

	svc := NewService(fetcher, newTestCache(t))
	router := setupCatalogRouter(svc)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/servers/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var resp RefreshServersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ErrorMsg == "" {
		t.Error("Expected non-empty error_msg")
	}
}
