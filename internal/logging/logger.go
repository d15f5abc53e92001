// Package logging provides config-driven categorized logging for the onboarding server.
// Every category shares one zap core; categories can be switched off individually
// and the level/format come from the logging section of the config file.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config resolution
	CategoryStore   Category = "store"   // Document store backends
	CategoryProfile Category = "profile" // Profile Store operations
	CategoryTools   Category = "tools"   // Tool invocations
	CategoryHTTP    Category = "http"    // HTTP surface, transports
	CategoryWidget  Category = "widget"  // Widget resource and sync client
	CategoryAudit   Category = "audit"   // Profile mutation audit trail
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string // json, console
	Categories map[string]bool
	Output     string // stderr, stdout or a file path
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    *zap.Logger = zap.NewNop()
	cfg     Config
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared zap logger. It may be called more than once;
// cached category loggers are dropped so they pick up the new core.
func Initialize(c Config) error {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(c.Level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
	}

	var zc zap.Config
	if strings.EqualFold(c.Format, "console") || strings.EqualFold(c.Format, "text") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel
	if c.Output != "" {
		zc.OutputPaths = []string{c.Output}
		zc.ErrorOutputPaths = []string{c.Output}
	}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	install(l, c)
	return nil
}

// UseLogger installs an existing zap logger (tests use zaptest/observer cores).
func UseLogger(l *zap.Logger, c Config) {
	install(l, c)
}

func install(l *zap.Logger, c Config) {
	mu.Lock()
	defer mu.Unlock()
	old := base
	base = l
	cfg = c
	loggers = make(map[Category]*Logger)
	if old != nil {
		_ = old.Sync()
	}
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories missing from the config are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if cfg.Categories == nil {
		return true
	}
	enabled, ok := cfg.Categories[string(category)]
	return !ok || enabled
}

// Get returns the logger for a category.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func zapLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CATEGORY SHORTCUTS
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Info(format, args...)
}

func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

func HTTP(format string, args ...interface{}) {
	Get(CategoryHTTP).Info(format, args...)
}

func Widget(format string, args ...interface{}) {
	Get(CategoryWidget).Info(format, args...)
}
