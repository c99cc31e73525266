package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"compress-service/pkg/config"
)

// Logger wraps a logrus logger together with the file it writes to.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger = newDefaultLogger()
)

func newDefaultLogger() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: l}
}

// NewLogger 根据配置创建日志器
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()
	out := &Logger{entry: l}
	if cfg == nil {
		return newDefaultLogger()
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Log.Output, "file") && cfg.Log.Filename != "" {
		f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] open log file %s failed, fallback to stdout: %v\n", cfg.Log.Filename, err)
		} else {
			out.file = f
			w = io.MultiWriter(os.Stdout, f)
		}
	}
	l.SetOutput(w)
	return out
}

// NewWithWriter builds a logger writing to w; used by tests.
func NewWithWriter(w io.Writer, level logrus.Level) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return &Logger{entry: l}
}

// Close 关闭日志文件
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		_ = l.file.Close()
	}
}

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func current() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger.entry
}

func withFields(fields []map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(current())
	for _, f := range fields {
		if len(f) > 0 {
			e = e.WithFields(logrus.Fields(f))
		}
	}
	return e
}

// Debug logs a message with optional structured fields.
func Debug(msg string, fields ...map[string]interface{}) {
	withFields(fields).Debug(msg)
}

// Info logs a message with optional structured fields.
func Info(msg string, fields ...map[string]interface{}) {
	withFields(fields).Info(msg)
}

// Warn logs a message with optional structured fields.
func Warn(msg string, fields ...map[string]interface{}) {
	withFields(fields).Warn(msg)
}

// Error logs a message with optional structured fields.
func Error(msg string, fields ...map[string]interface{}) {
	withFields(fields).Error(msg)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields ...map[string]interface{}) {
	withFields(fields).Fatal(msg)
}

func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { current().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { current().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }
