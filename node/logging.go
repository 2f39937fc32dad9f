// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnv selects the log level at process start, mirroring the usual
// level names (debug, info, warn, error).
const LogLevelEnv = "QUDAG_LOG"

// NewLogger builds the production logger at the level named by QUDAG_LOG,
// defaulting to info when unset or unparseable.
func NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := os.Getenv(LogLevelEnv); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
