package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProductionLogger is the standard Logger implementation for evermem
// services. It writes JSON records when running under Kubernetes (for log
// aggregation) and human-readable text otherwise.
//
// Configuration priority:
//  1. Explicit LoggerOptions (highest)
//  2. Environment variables (EVERMEM_LOG_LEVEL, EVERMEM_LOG_FORMAT)
//  3. Auto-detection (K8s environment)
//  4. Defaults (INFO, text)
type ProductionLogger struct {
	level       int
	serviceName string
	format      string
	output      io.Writer
	mu          sync.Mutex
}

// LoggerOptions configures a ProductionLogger. Zero values defer to
// environment variables and defaults.
type LoggerOptions struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // "json" or "text"
	Output io.Writer
}

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = map[string]int{
	"DEBUG": levelDebug,
	"INFO":  levelInfo,
	"WARN":  levelWarn,
	"ERROR": levelError,
}

// NewProductionLogger creates a logger for the named service.
func NewProductionLogger(serviceName string, opts LoggerOptions) *ProductionLogger {
	level := opts.Level
	if level == "" {
		level = os.Getenv("EVERMEM_LOG_LEVEL")
	}
	if level == "" {
		level = "INFO"
	}
	lvl, ok := levelNames[strings.ToUpper(level)]
	if !ok {
		lvl = levelInfo
	}

	format := opts.Format
	if format == "" {
		format = os.Getenv("EVERMEM_LOG_FORMAT")
	}
	if format == "" {
		// JSON in K8s for log aggregation, text for local development
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		} else {
			format = "text"
		}
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	return &ProductionLogger{
		level:       lvl,
		serviceName: serviceName,
		format:      format,
		output:      output,
	}
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log(levelInfo, "INFO", msg, fields)
}

func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	l.log(levelError, "ERROR", msg, fields)
}

func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(levelWarn, "WARN", msg, fields)
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(levelDebug, "DEBUG", msg, fields)
}

func (l *ProductionLogger) log(level int, levelName, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		record := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     levelName,
			"service":   l.serviceName,
			"message":   msg,
		}
		for k, v := range fields {
			// Errors do not marshal as JSON; flatten to their string form
			if err, ok := v.(error); ok {
				record[k] = err.Error()
				continue
			}
			record[k] = v
		}
		data, err := json.Marshal(record)
		if err != nil {
			fmt.Fprintf(l.output, "{\"level\":\"ERROR\",\"message\":\"log marshal failed: %v\"}\n", err)
			return
		}
		fmt.Fprintln(l.output, string(data))
		return
	}

	// Text format: stable field ordering for readable local output
	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString(" [")
	sb.WriteString(levelName)
	sb.WriteString("] ")
	sb.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, fields[k]))
	}
	fmt.Fprintln(l.output, sb.String())
}
