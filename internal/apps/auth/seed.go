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

package auth

import (
	"context"
	"errors"

	"github.com/surfproxy/surfproxyX/internal/config"
	"github.com/surfproxy/surfproxyX/internal/logger"
	"gorm.io/gorm"
)

// EnsureDefaultAdmin 初始化默认管理员用户
// 仅在首次启动时（用户表为空）从配置创建默认用户
// EnsureDefaultAdmin seeds the default admin user from config on first
// boot. It is a no-op once any user exists.
func EnsureDefaultAdmin(ctx context.Context, database *gorm.DB) error {
	if database == nil {
		return errors.New("auth: 数据库连接未初始化")
	}

	authConfig := config.GetAuthConfig()

	// 检查是否已存在用户
	var count int64
	if err := database.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.InfoF(ctx, "[Auth] 用户表已有数据，跳过默认管理员初始化")
		return nil
	}

	// 双重检查：同名用户已存在则跳过
	var existing User
	err := database.WithContext(ctx).Where("username = ?", authConfig.DefaultAdminUsername).First(&existing).Error
	if err == nil {
		logger.InfoF(ctx, "[Auth] 管理员用户 '%s' 已存在，跳过创建", authConfig.DefaultAdminUsername)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	adminUser := &User{
		Username: authConfig.DefaultAdminUsername,
		Nickname: "系统管理员",
		IsActive: true,
	}
	if err := adminUser.SetPassword(authConfig.DefaultAdminPassword, authConfig.BcryptCost); err != nil {
		return err
	}
	if err := adminUser.Create(database.WithContext(ctx)); err != nil {
		return err
	}

	logger.InfoF(ctx, "[Auth] 成功创建默认管理员用户: %s", authConfig.DefaultAdminUsername)
	return nil
}
