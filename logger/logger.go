// Package logger wires up the package-level zap logger ncatool and the nca
// package's Orchestrator use for warnings and diagnostics, adapted from the
// teacher's logger/logger.go (which logs to a file next to a GUI working
// folder; ncatool is a CLI, so this logs to stderr by default and only to a
// file when one is configured).
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var logger *zap.Logger

func newLogger(logPath string, debug bool) {
	config := zap.NewDevelopmentConfig()
	if !debug {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if logPath != "" {
		config.OutputPaths = []string{logPath}
		config.ErrorOutputPaths = []string{logPath}
	} else {
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
	}

	var err error
	logger, err = config.Build()
	if err != nil {
		fmt.Printf("failed to create logger - %v\n", err)
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

// GetSugar returns the package-level sugared logger, building it on first
// use. logPath may be empty (log to stderr).
func GetSugar(logPath string, debug bool) *zap.SugaredLogger {
	if logger == nil {
		newLogger(logPath, debug)
	}
	return logger.Sugar()
}

// Defer flushes buffered log entries; call with defer from main.
func Defer() {
	if logger != nil {
		logger.Sync()
	}
}
