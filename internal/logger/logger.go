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

// Package logger 提供全局结构化日志
// Package logger provides the global structured logger. Log records are
// written through otelzap so they attach to the active trace span.
package logger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/surfproxy/surfproxyX/internal/config"
)

var global *otelzap.Logger

func init() {
	// 未显式初始化时提供一个可用的兜底 logger
	l, _ := zap.NewProduction(zap.AddCallerSkip(1))
	global = otelzap.New(l)
}

// Init 根据配置初始化全局 logger
// Init builds the global logger from config. Output may be stdout, file
// or both; file output rotates through lumberjack.
func Init(cfg config.LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	var syncers []zapcore.WriteSyncer
	if cfg.Output == "stdout" || cfg.Output == "both" {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return err
		}
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}))
	}
	if len(syncers) == 0 {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	global = otelzap.New(l, otelzap.WithMinLevel(level))
	return nil
}

// L 返回底层 zap logger
func L() *zap.Logger {
	return global.Logger
}

// DebugF 格式化输出 Debug 日志
func DebugF(ctx context.Context, format string, args ...interface{}) {
	global.Sugar().DebugfContext(ctx, format, args...)
}

// InfoF 格式化输出 Info 日志
func InfoF(ctx context.Context, format string, args ...interface{}) {
	global.Sugar().InfofContext(ctx, format, args...)
}

// WarnF 格式化输出 Warn 日志
func WarnF(ctx context.Context, format string, args ...interface{}) {
	global.Sugar().WarnfContext(ctx, format, args...)
}

// ErrorF 格式化输出 Error 日志
func ErrorF(ctx context.Context, format string, args ...interface{}) {
	global.Sugar().ErrorfContext(ctx, format, args...)
}

// Sync 刷新缓冲日志，进程退出前调用
func Sync() {
	_ = global.Sync()
}
