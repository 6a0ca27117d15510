package logging

import (
	"fmt"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// LogLevelDebug is for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is for error messages
	LogLevelError LogLevel = "error"
	// LogLevelPanic is for panic messages
	LogLevelPanic LogLevel = "panic"
)

// DefaultMaxSize is the rotation threshold used when none is configured
const DefaultMaxSize int64 = 10 * 1024 * 1024

var (
	// App is the global application logger
	App *AppLogger
	// Audit is the global audit logger for grants and access decisions
	Audit AuditLogger
)

func init() {
	var err error

	App, err = NewAppLogger("", LogLevelInfo, 0)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default app logger: %v", err))
	}

	Audit, err = NewAuditLogger("", 0)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default audit logger: %v", err))
	}
}

// Config holds logging configuration
type Config struct {
	AuditLogPath string   // Optional: audit log file, discarded when empty
	AppLogPath   string   // Optional: application log file, stdout when empty
	Level        LogLevel // Defaults to info
	MaxSize      int64    // Rotation threshold in bytes
}

// Initialize sets up the global loggers
func Initialize(config Config) error {
	if config.Level == "" {
		config.Level = LogLevelInfo
	}
	level, err := ParseLevel(string(config.Level))
	if err != nil {
		return err
	}
	config.Level = level
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}

	newAudit, err := NewAuditLogger(config.AuditLogPath, config.MaxSize)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	newApp, err := NewAppLogger(config.AppLogPath, config.Level, config.MaxSize)
	if err != nil {
		return fmt.Errorf("failed to initialize app logger: %w", err)
	}

	Audit = newAudit
	App = newApp
	return nil
}

// MustInitialize initializes logging and panics on error
func MustInitialize(config Config) {
	if err := Initialize(config); err != nil {
		panic(fmt.Sprintf("failed to initialize logging: %v", err))
	}
}

// ParseLevel validates a level name
func ParseLevel(s string) (LogLevel, error) {
	switch level := LogLevel(strings.ToLower(s)); level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelPanic:
		return level, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// formatValue formats a value for logfmt, quoting if necessary
func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, " =\"") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}

// formatPairs renders keyvals as logfmt pairs, dropping a trailing odd key
func formatPairs(keyvals []interface{}) []string {
	var parts []string
	for i := 0; i+1 < len(keyvals); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%s", toString(keyvals[i]), formatValue(toString(keyvals[i+1]))))
	}
	return parts
}
