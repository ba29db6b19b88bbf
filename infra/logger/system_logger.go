package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	UserID      string         `json:"user_id,omitempty"`
	Family      string         `json:"family,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
}

// LogContext holds contextual information for logging
type LogContext struct {
	UserID    string
	Family    string
	RequestID string
	Fields    map[string]any
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	MinLevel    LogLevel
	Service     string
	Environment string
}

// SystemLogger handles structured logging to the console
type SystemLogger struct {
	minLevel    LogLevel
	service     string
	environment string
}

// NewSystemLogger creates a new system logger
func NewSystemLogger(config SystemLoggerConfig) *SystemLogger {
	return &SystemLogger{
		minLevel:    config.MinLevel,
		service:     config.Service,
		environment: config.Environment,
	}
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	logCtx := LogContext{}
	if len(ctx) > 0 {
		logCtx = ctx[0]
	}

	if logCtx.Fields == nil {
		logCtx.Fields = make(map[string]any)
	}

	if err != nil {
		logCtx.Fields["error"] = err.Error()
	}

	sl.log(LevelError, message, logCtx)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.Error(message, err, ctx...)
	os.Exit(1)
}

func (sl *SystemLogger) log(level LogLevel, message string, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	entry := SystemLog{
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		Environment: sl.environment,
		Service:     sl.service,
	}

	if len(ctx) > 0 {
		entry.UserID = ctx[0].UserID
		entry.Family = ctx[0].Family
		entry.RequestID = ctx[0].RequestID
		entry.Fields = ctx[0].Fields
		if errVal, ok := ctx[0].Fields["error"]; ok {
			entry.Error = fmt.Sprintf("%v", errVal)
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[%s] %s (marshal failed: %v)", level, message, err)
		return
	}
	log.Println(string(data))
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	order := map[LogLevel]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
		LevelFatal: 4,
	}
	return order[level] >= order[sl.minLevel]
}
