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
	"os"
	"sort"
	"sync"
	"time"

	"github.com/surfproxy/surfproxyX/internal/jsonfile"
)

// Registry is the in-memory set of proxy instances backed by a JSON
// state file. Every mutation is flushed to disk so a daemon restart
// can rebuild the full instance set.
// Registry 是由 JSON 状态文件支撑的内存实例集合。每次变更都会落盘，
// 守护进程重启后可以完整重建实例集。
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	statePath string
}

// NewRegistry creates a Registry persisting to statePath.
func NewRegistry(statePath string) *Registry {
	return &Registry{
		instances: make(map[string]*Instance),
		statePath: statePath,
	}
}

// Load reads the state file into memory. A missing file means a fresh
// install and is not an error.
// Load 将状态文件读入内存，文件不存在视为全新安装。
func (r *Registry) Load() error {
	var env StateEnvelope
	if err := jsonfile.Load(r.statePath, &env); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]*Instance, len(env.Instances))
	for _, inst := range env.Instances {
		// Whatever was running before is stopped now, the Running flag
		// only marks it as a boot restore candidate.
		// 之前运行的实例此刻已停止，Running 标记仅表示它是启动恢复候选。
		inst.Status = StatusStopped
		r.instances[inst.ID] = inst
	}
	return nil
}

// Save writes the current instance set to the state file atomically.
// Save 原子地将当前实例集写入状态文件。
func (r *Registry) Save() error {
	r.mu.RLock()
	env := &StateEnvelope{
		Instances: make([]*Instance, 0, len(r.instances)),
		SavedAt:   time.Now(),
		Version:   StateVersion,
	}
	for _, inst := range r.instances {
		env.Instances = append(env.Instances, inst.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(env.Instances, func(i, j int) bool {
		return env.Instances[i].CreatedAt.Before(env.Instances[j].CreatedAt)
	})
	return jsonfile.Save(r.statePath, env)
}

// Add inserts a new instance.
func (r *Registry) Add(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.ID] = inst
}

// Get returns a copy of an instance by ID.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return inst.Clone(), nil
}

// Update applies fn to an instance under the registry lock.
// Update 在注册表锁内对实例应用 fn。
func (r *Registry) Update(id string, fn func(*Instance)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return ErrInstanceNotFound
	}
	fn(inst)
	return nil
}

// Remove deletes an instance by ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; !ok {
		return ErrInstanceNotFound
	}
	delete(r.instances, id)
	return nil
}

// List returns copies of all instances ordered by creation time.
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// ClaimedPorts returns the ports held by all instances. An instance
// keeps its port while stopped, stop and start must not move it.
// ClaimedPorts 返回所有实例占用的端口。实例停止时仍保留端口，
// 停止再启动不会换端口。
func (r *Registry) ClaimedPorts() map[int]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	claimed := make(map[int]bool, len(r.instances))
	for _, inst := range r.instances {
		claimed[inst.Port] = true
	}
	return claimed
}

// RestoreCandidates returns the IDs of instances that had a live tunnel
// when the state was last saved, in creation order.
// RestoreCandidates 按创建顺序返回上次保存时仍在运行的实例 ID。
func (r *Registry) RestoreCandidates() []string {
	var ids []string
	for _, inst := range r.List() {
		if inst.Running {
			ids = append(ids, inst.ID)
		}
	}
	return ids
}
