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

type configModel struct {
	App       AppConfig       `mapstructure:"app"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	SurfShark SurfSharkConfig `mapstructure:"surfshark"`
	WireProxy WireProxyConfig `mapstructure:"wireproxy"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// AppConfig 应用基本配置
type AppConfig struct {
	AppName           string `mapstructure:"app_name"`
	Env               string `mapstructure:"env"`
	Addr              string `mapstructure:"addr"`
	APIPrefix         string `mapstructure:"api_prefix"`
	DataDir           string `mapstructure:"data_dir"`
	SessionCookieName string `mapstructure:"session_cookie_name"`
	SessionSecret     string `mapstructure:"session_secret"`
	SessionDomain     string `mapstructure:"session_domain"`
	SessionAge        int    `mapstructure:"session_age"`
	SessionHttpOnly   bool   `mapstructure:"session_http_only"`
	SessionSecure     bool   `mapstructure:"session_secure"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	DefaultAdminUsername string `mapstructure:"default_admin_username"`
	DefaultAdminPassword string `mapstructure:"default_admin_password"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string `mapstructure:"type"`        // sqlite, mysql, postgres
	SQLitePath      string `mapstructure:"sqlite_path"` // SQLite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConn     int    `mapstructure:"max_idle_conn"`
	MaxOpenConn     int    `mapstructure:"max_open_conn"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConn  int    `mapstructure:"min_idle_conn"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// TelemetryConfig 链路追踪配置
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// SurfSharkConfig SurfShark 凭据与接口配置
// SurfShark credentials and API access configuration.
type SurfSharkConfig struct {
	// PrivateKey 本机 WireGuard 私钥（base64）
	PrivateKey string `mapstructure:"private_key"`
	// APIEndpoint 覆盖服务器列表接口地址（留空时使用运行时设置）
	APIEndpoint    string `mapstructure:"api_endpoint"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	FetchRetries   int    `mapstructure:"fetch_retries"`
}

// WireProxyConfig wireproxy 可执行文件配置
type WireProxyConfig struct {
	// BinaryPath 显式指定二进制路径，留空时走自动探测
	BinaryPath string `mapstructure:"binary_path"`
	ConfigDir  string `mapstructure:"config_dir"`
	LogDir     string `mapstructure:"log_dir"`
}

// ProxyConfig 代理实例运行配置
type ProxyConfig struct {
	PortRangeStart         int     `mapstructure:"port_range_start"`
	PortRangeEnd           int     `mapstructure:"port_range_end"`
	GracefulTimeoutSeconds int     `mapstructure:"graceful_timeout_seconds"`
	MonitorInterval        int     `mapstructure:"monitor_interval_seconds"`
	CPUKillThreshold       float64 `mapstructure:"cpu_kill_threshold"`
	CPUKillSustainSeconds  int     `mapstructure:"cpu_kill_sustain_seconds"`
	AutoRestartOnCrash     bool    `mapstructure:"auto_restart_on_crash"`
	CheckTarget            string  `mapstructure:"check_target"`
}

// ScheduleConfig 定时任务配置
type ScheduleConfig struct {
	RefreshServersCron   string `mapstructure:"refresh_servers_cron"`
	CleanupEventsCron    string `mapstructure:"cleanup_events_cron"`
	EventRetentionDays   int    `mapstructure:"event_retention_days"`
	RefreshIntervalHours int    `mapstructure:"refresh_interval_hours"`
	CleanupIntervalHours int    `mapstructure:"cleanup_interval_hours"`
}

// WorkerConfig 工作配置
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}
