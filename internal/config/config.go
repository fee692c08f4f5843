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

package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var Config *configModel

func init() {
	// 加载配置文件路径
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 设置配置文件
	viper.SetConfigFile(configPath)
	viper.SetEnvPrefix("SURFPROXY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件，文件不存在时使用默认值
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			log.Printf("[Config] config file %s not found, using defaults\n", configPath)
		} else {
			log.Fatalf("[Config] read config failed: %v\n", err)
		}
	}

	// 解析配置到结构体
	var c configModel
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("[Config] parse config failed: %v\n", err)
	}

	// 设置默认值
	setDefaults(&c)

	// 设置全局配置
	Config = &c
}

// setDefaults 设置配置默认值
func setDefaults(c *configModel) {
	// 应用默认配置
	if c.App.AppName == "" {
		c.App.AppName = "surfproxyx"
	}
	if c.App.Env == "" {
		c.App.Env = "production"
	}
	if c.App.Addr == "" {
		c.App.Addr = "127.0.0.1:8317"
	}
	if c.App.APIPrefix == "" {
		c.App.APIPrefix = "/api"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "./data"
	}
	if c.App.SessionCookieName == "" {
		c.App.SessionCookieName = "surfproxy_session"
	}
	if c.App.SessionAge == 0 {
		c.App.SessionAge = 86400 * 7
	}

	// 数据库默认配置
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = filepath.Join(c.App.DataDir, "surfproxy.db")
	}

	// 认证默认配置
	if c.Auth.DefaultAdminUsername == "" {
		c.Auth.DefaultAdminUsername = "admin"
	}
	if c.Auth.DefaultAdminPassword == "" {
		c.Auth.DefaultAdminPassword = "admin123"
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 10
	}

	// 日志默认配置
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.FilePath == "" {
		c.Log.FilePath = filepath.Join(c.App.DataDir, "logs", "surfproxy.log")
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 100
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 7
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}

	// SurfShark 默认配置
	if c.SurfShark.RequestTimeout == 0 {
		c.SurfShark.RequestTimeout = 15
	}
	if c.SurfShark.FetchRetries == 0 {
		c.SurfShark.FetchRetries = 3
	}

	// wireproxy 默认配置
	if c.WireProxy.ConfigDir == "" {
		c.WireProxy.ConfigDir = filepath.Join(c.App.DataDir, "configs")
	}
	if c.WireProxy.LogDir == "" {
		c.WireProxy.LogDir = filepath.Join(c.App.DataDir, "logs")
	}

	// 代理实例默认配置
	if c.Proxy.PortRangeStart == 0 {
		c.Proxy.PortRangeStart = 1080
	}
	if c.Proxy.PortRangeEnd == 0 {
		c.Proxy.PortRangeEnd = 1180
	}
	if c.Proxy.GracefulTimeoutSeconds == 0 {
		c.Proxy.GracefulTimeoutSeconds = 5
	}
	if c.Proxy.MonitorInterval == 0 {
		c.Proxy.MonitorInterval = 5
	}
	if c.Proxy.CPUKillThreshold == 0 {
		c.Proxy.CPUKillThreshold = 90.0
	}
	if c.Proxy.CPUKillSustainSeconds == 0 {
		c.Proxy.CPUKillSustainSeconds = 30
	}
	if c.Proxy.CheckTarget == "" {
		c.Proxy.CheckTarget = "www.google.com:443"
	}

	// 定时任务默认配置
	if c.Schedule.RefreshServersCron == "" {
		c.Schedule.RefreshServersCron = "0 */6 * * *"
	}
	if c.Schedule.CleanupEventsCron == "" {
		c.Schedule.CleanupEventsCron = "0 3 * * *"
	}
	if c.Schedule.EventRetentionDays == 0 {
		c.Schedule.EventRetentionDays = 30
	}
	if c.Schedule.RefreshIntervalHours == 0 {
		c.Schedule.RefreshIntervalHours = 6
	}
	if c.Schedule.CleanupIntervalHours == 0 {
		c.Schedule.CleanupIntervalHours = 24
	}

	// 工作默认配置
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 5
	}
}

// GetDatabaseType 获取数据库类型
func GetDatabaseType() string {
	return Config.Database.Type
}

// GetSQLitePath 获取 SQLite 文件路径
func GetSQLitePath() string {
	return Config.Database.SQLitePath
}

// GetAuthConfig 获取认证配置
func GetAuthConfig() AuthConfig {
	return Config.Auth
}

// GetDataDir 获取数据目录
func GetDataDir() string {
	return Config.App.DataDir
}

// IsRedisEnabled 检查 Redis 是否启用
func IsRedisEnabled() bool {
	return Config.Redis.Enabled
}

// IsTelemetryEnabled 检查链路追踪是否启用
func IsTelemetryEnabled() bool {
	return Config.Telemetry.Enabled
}
