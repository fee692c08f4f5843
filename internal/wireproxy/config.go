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

// Package wireproxy 负责 wireproxy 二进制的定位和隧道配置文件的生成
// Package wireproxy locates the external wireproxy binary and renders
// the INI tunnel configuration it consumes. A rendered config carries
// the WireGuard interface, one peer and one local SOCKS5 listener.
package wireproxy

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// 错误定义 / error definitions
var (
	ErrPrivateKeyMissing = errors.New("wireproxy: private key is empty")
	ErrPrivateKeyInvalid = errors.New("wireproxy: private key is not a valid base64 WireGuard key")
	ErrPublicKeyMissing  = errors.New("wireproxy: peer public key is empty")
	ErrEndpointMissing   = errors.New("wireproxy: peer endpoint is empty")
	ErrBindAddrMissing   = errors.New("wireproxy: socks5 bind address is empty")
)

// 隧道配置默认值，与 SurfShark WireGuard 网络参数一致
// Tunnel defaults matching the SurfShark WireGuard network layout.
const (
	DefaultInterfaceAddress = "10.14.0.2/16"
	DefaultDNS              = "162.252.172.57, 149.154.159.92"
	DefaultAllowedIPs       = "0.0.0.0/0, ::/0"
	DefaultListenPort       = 51820
	DefaultKeepalive        = 25
)

// wireGuardKeyLen WireGuard 密钥解码后的字节长度
const wireGuardKeyLen = 32

func init() {
	// 输出 "Key = value" 而非按节对齐，与 wg-quick 配置的惯用格式一致
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

// TunnelParams 单条隧道的完整参数
// TunnelParams holds everything needed to render one tunnel config.
type TunnelParams struct {
	// PrivateKey 本机 WireGuard 私钥（base64）
	PrivateKey string
	// Address 接口地址，留空时使用 DefaultInterfaceAddress
	Address string
	// DNS 逗号分隔的 DNS 列表，留空时使用 DefaultDNS
	DNS string
	// PeerPublicKey 服务器公钥（base64）
	PeerPublicKey string
	// EndpointHost 服务器连接域名，未含端口
	EndpointHost string
	// EndpointPort 服务器端口，0 时使用 DefaultListenPort
	EndpointPort int
	// BindAddress 本地 SOCKS5 监听地址，如 127.0.0.1:1080
	BindAddress string
}

// validate 校验参数完整性
func (p *TunnelParams) validate() error {
	if p.PrivateKey == "" {
		return ErrPrivateKeyMissing
	}
	if err := ValidateKey(p.PrivateKey); err != nil {
		return err
	}
	if p.PeerPublicKey == "" {
		return ErrPublicKeyMissing
	}
	if p.EndpointHost == "" {
		return ErrEndpointMissing
	}
	if p.BindAddress == "" {
		return ErrBindAddrMissing
	}
	return nil
}

// ValidateKey 校验 base64 编码的 WireGuard 密钥
// ValidateKey checks that a base64 string decodes to a 32 byte key.
func ValidateKey(key string) error {
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(decoded) != wireGuardKeyLen {
		return ErrPrivateKeyInvalid
	}
	return nil
}

// Generate 渲染隧道配置文件内容
// Generate renders the INI document wireproxy consumes.
func Generate(params *TunnelParams) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	address := params.Address
	if address == "" {
		address = DefaultInterfaceAddress
	}
	dns := params.DNS
	if dns == "" {
		dns = DefaultDNS
	}
	port := params.EndpointPort
	if port == 0 {
		port = DefaultListenPort
	}

	cfg := ini.Empty()

	iface, err := cfg.NewSection("Interface")
	if err != nil {
		return nil, err
	}
	if _, err = iface.NewKey("PrivateKey", params.PrivateKey); err != nil {
		return nil, err
	}
	if _, err = iface.NewKey("Address", address); err != nil {
		return nil, err
	}
	if _, err = iface.NewKey("DNS", dns); err != nil {
		return nil, err
	}

	peer, err := cfg.NewSection("Peer")
	if err != nil {
		return nil, err
	}
	if _, err = peer.NewKey("PublicKey", params.PeerPublicKey); err != nil {
		return nil, err
	}
	if _, err = peer.NewKey("Endpoint", fmt.Sprintf("%s:%d", params.EndpointHost, port)); err != nil {
		return nil, err
	}
	if _, err = peer.NewKey("AllowedIPs", DefaultAllowedIPs); err != nil {
		return nil, err
	}
	if _, err = peer.NewKey("PersistentKeepalive", fmt.Sprintf("%d", DefaultKeepalive)); err != nil {
		return nil, err
	}

	socks, err := cfg.NewSection("Socks5")
	if err != nil {
		return nil, err
	}
	if _, err = socks.NewKey("BindAddress", params.BindAddress); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err = cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteConfig 将隧道配置写入磁盘并返回路径
// 配置包含私钥，目录 0700、文件 0600
// WriteConfig renders and persists the config under dir, named after
// the instance. The file embeds the private key, hence 0600.
func WriteConfig(dir, name string, params *TunnelParams) (string, error) {
	content, err := Generate(params)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("wireproxy: create config dir failed: %w", err)
	}

	path := filepath.Join(dir, name+".conf")
	if err = os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("wireproxy: write config failed: %w", err)
	}
	return path, nil
}

// RemoveConfig 删除已生成的配置文件，文件不存在时视为成功
func RemoveConfig(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Parse 解析磁盘上的隧道配置
// Parse reads a rendered config back, key lookup is case-insensitive.
func Parse(path string) (*TunnelParams, error) {
	cfg, err := ini.InsensitiveLoad(path)
	if err != nil {
		return nil, fmt.Errorf("wireproxy: load config failed: %w", err)
	}

	iface := cfg.Section("interface")
	peer := cfg.Section("peer")
	socks := cfg.Section("socks5")

	params := &TunnelParams{
		PrivateKey:    iface.Key("privatekey").String(),
		Address:       iface.Key("address").String(),
		DNS:           iface.Key("dns").String(),
		PeerPublicKey: peer.Key("publickey").String(),
		BindAddress:   socks.Key("bindaddress").String(),
	}

	endpoint := peer.Key("endpoint").String()
	if endpoint != "" {
		host, portStr := splitHostPort(endpoint)
		params.EndpointHost = host
		if portStr != "" {
			if n, convErr := strconv.Atoi(portStr); convErr == nil {
				params.EndpointPort = n
			}
		}
	}

	if err = params.validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// splitHostPort 拆分 host:port，端口缺失时返回空串
func splitHostPort(endpoint string) (host, port string) {
	for i := len(endpoint) - 1; i >= 0; i-- {
		if endpoint[i] == ':' {
			return endpoint[:i], endpoint[i+1:]
		}
	}
	return endpoint, ""
}
