// Package logging provides config-driven categorized file-based logging for valet.
// Logs are written to .valet/logs/ with a separate file per category.
// Logging is controlled by debug_mode in .valet/config.json - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Boot/initialization
	CategorySession  Category = "session"  // Session FSM, registry, events
	CategoryAI       Category = "ai"       // AI collaborator calls
	CategoryWorkflow Category = "workflow" // Workflow parsing and execution
	CategoryPatch    Category = "patch"    // Patch engine operations
	CategoryVault    Category = "vault"    // Vault document reads/writes
	CategoryScaffold Category = "scaffold" // Project scaffolding
)

// Logger wraps a zap sugared logger bound to one category file.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	enabled   bool
	level     zapcore.Level
)

// Initialize sets up the logging directory. Should be called once at startup
// with the vault path and the logging portion of the loaded config.
// When debugMode is false every logger is a silent no-op.
func Initialize(vaultPath string, debugMode bool, levelName string) error {
	if vaultPath == "" {
		return fmt.Errorf("vault path required")
	}

	enabled = debugMode
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = zapcore.InfoLevel
	}

	if !enabled {
		return nil
	}

	logsDir = filepath.Join(vaultPath, ".valet", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("valet logging initialized")
	boot.Info("logs directory: %s", logsDir)
	return nil
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := newLogger(category)
	loggers[category] = l
	return l
}

func newLogger(category Category) *Logger {
	if !enabled {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	path := filepath.Join(logsDir, string(category)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] cannot open %s: %v\n", path, err)
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(f),
		level,
	)
	z := zap.New(core).Named(string(category))
	return &Logger{category: category, sugar: z.Sugar()}
}

// Debug logs a debug-level message with printf formatting.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info-level message with printf formatting.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warn-level message with printf formatting.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error-level message with printf formatting.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries for all categories.
func Sync() {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	for _, l := range loggers {
		_ = l.sugar.Sync()
	}
}
