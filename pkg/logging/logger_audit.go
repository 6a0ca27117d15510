package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// AuditLogger records security-relevant events: grants issued while a role
// is built and access decisions observed by an auditing wrapper.
type AuditLogger interface {
	// LogGrant records a grant call on a role under construction
	LogGrant(role string, kind string, element string, access string, details ...interface{})
	// LogDecision records an access decision returned to a caller
	LogDecision(role string, kind string, element string, access string, details ...interface{})
}

type auditLogger struct {
	logger *log.Logger
}

// NewAuditLogger creates a new audit logger. An empty logPath discards
// every entry.
func NewAuditLogger(logPath string, maxSize int64) (AuditLogger, error) {
	var writer io.Writer

	if logPath == "" {
		writer = io.Discard
	} else {
		if maxSize <= 0 {
			maxSize = DefaultMaxSize
		}
		rw, err := NewRotatingWriter(afero.NewOsFs(), logPath, maxSize, DefaultBackups)
		if err != nil {
			return nil, fmt.Errorf("opening audit log file: %w", err)
		}
		writer = rw
	}

	return NewAuditLoggerWriter(writer), nil
}

// NewAuditLoggerWriter creates an audit logger writing to w
func NewAuditLoggerWriter(w io.Writer) AuditLogger {
	return &auditLogger{
		logger: log.New(w, "", 0),
	}
}

func (l *auditLogger) LogGrant(role string, kind string, element string, access string, details ...interface{}) {
	l.write("grant", role, kind, element, access, details)
}

func (l *auditLogger) LogDecision(role string, kind string, element string, access string, details ...interface{}) {
	l.write("decision", role, kind, element, access, details)
}

func (l *auditLogger) write(op, role, kind, element, access string, details []interface{}) {
	parts := []string{fmt.Sprintf("op=%s", formatValue(op))}
	if role != "" {
		parts = append(parts, fmt.Sprintf("role=%s", formatValue(role)))
	}
	parts = append(parts,
		fmt.Sprintf("kind=%s", formatValue(kind)),
		fmt.Sprintf("element=%s", formatValue(element)),
		fmt.Sprintf("access=%s", formatValue(access)),
	)
	parts = append(parts, formatPairs(details)...)

	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 -0700")
	l.logger.Printf("%s %s", timestamp, strings.Join(parts, " "))
}
