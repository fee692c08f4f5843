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

package restart

import (
	"context"
	"fmt"
	"time"
)

// Boot restore defaults
// 启动恢复默认值
const (
	// DefaultCatalogWaitAttempts is how many times to poll for catalog readiness
	// DefaultCatalogWaitAttempts 是轮询目录就绪的最大次数
	DefaultCatalogWaitAttempts = 60

	// DefaultCatalogWaitInterval is the pause between readiness polls
	// DefaultCatalogWaitInterval 是两次就绪轮询之间的间隔
	DefaultCatalogWaitInterval = 1 * time.Second

	// DefaultStartStagger is the pause between consecutive tunnel starts
	// DefaultStartStagger 是连续启动两条隧道之间的间隔
	DefaultStartStagger = 3 * time.Second
)

// BootRestorer brings previously running tunnels back up after a daemon restart
// BootRestorer 在守护进程重启后恢复先前运行的隧道
// Starts wait for the server catalog because rendering a tunnel config
// needs the server's public key and endpoint.
// 启动前等待服务器目录就绪，因为渲染隧道配置需要服务器公钥和端点。
type BootRestorer struct {
	// readyFunc reports whether the server catalog can serve lookups
	// readyFunc 报告服务器目录是否可以提供查询
	readyFunc func() bool

	// listFunc returns the instance names that should be brought back up
	// listFunc 返回应当被恢复的实例名称
	listFunc func() []string

	// startFunc starts one tunnel by instance name
	// startFunc 按实例名称启动一条隧道
	startFunc StartFunc

	waitAttempts int
	waitInterval time.Duration
	stagger      time.Duration
}

// NewBootRestorer creates a BootRestorer with default pacing
// NewBootRestorer 创建一个使用默认节奏的 BootRestorer
func NewBootRestorer(readyFunc func() bool, listFunc func() []string, startFunc StartFunc) *BootRestorer {
	return &BootRestorer{
		readyFunc:    readyFunc,
		listFunc:     listFunc,
		startFunc:    startFunc,
		waitAttempts: DefaultCatalogWaitAttempts,
		waitInterval: DefaultCatalogWaitInterval,
		stagger:      DefaultStartStagger,
	}
}

// SetPacing overrides the readiness polling and stagger intervals
// SetPacing 覆盖就绪轮询与交错启动的间隔
func (b *BootRestorer) SetPacing(waitAttempts int, waitInterval, stagger time.Duration) {
	if waitAttempts > 0 {
		b.waitAttempts = waitAttempts
	}
	if waitInterval > 0 {
		b.waitInterval = waitInterval
	}
	if stagger >= 0 {
		b.stagger = stagger
	}
}

// Run restores every listed tunnel, pacing the starts
// Run 恢复所有列出的隧道并控制启动节奏
// Individual start failures are logged and skipped, one broken tunnel
// must not block the rest.
// 单个启动失败会被记录并跳过，一条损坏的隧道不能阻塞其余隧道。
func (b *BootRestorer) Run(ctx context.Context) error {
	names := b.listFunc()
	if len(names) == 0 {
		fmt.Println("[BootRestore] No tunnels to restore / 没有需要恢复的隧道")
		return nil
	}

	fmt.Printf("[BootRestore] Restoring %d tunnel(s) / 正在恢复 %d 条隧道\n", len(names), len(names))

	if !b.waitForCatalog(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Proceed anyway, per-tunnel starts will surface the failure
		// 仍然继续，每条隧道的启动会暴露失败
		fmt.Println("[BootRestore] Server catalog not ready, attempting restore anyway / 服务器目录未就绪，仍尝试恢复")
	}

	restored := 0
	for i, name := range names {
		if i > 0 && b.stagger > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.stagger):
			}
		}

		if err := b.startFunc(ctx, name); err != nil {
			fmt.Printf("[BootRestore] Failed to restore %s: %v / 恢复 %s 失败：%v\n", name, err, name, err)
			continue
		}
		restored++
		fmt.Printf("[BootRestore] Restored %s / 已恢复 %s\n", name, name)
	}

	fmt.Printf("[BootRestore] Done, %d/%d tunnel(s) restored / 完成，已恢复 %d/%d 条隧道\n",
		restored, len(names), restored, len(names))
	return nil
}

// waitForCatalog polls until the catalog is ready or attempts run out
// waitForCatalog 轮询直到目录就绪或尝试次数耗尽
func (b *BootRestorer) waitForCatalog(ctx context.Context) bool {
	for attempt := 0; attempt < b.waitAttempts; attempt++ {
		if b.readyFunc() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.waitInterval):
		}
	}
	return b.readyFunc()
}
