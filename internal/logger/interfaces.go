package logger

import (
	"go.uber.org/zap"
)

// Logger represents the logging interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})

	With(fields ...Field) Logger
	Named(name string) Logger

	Sync() error
}

// Field represents a structured log field
type Field interface {
	Key() string
	Value() interface{}
	// ZapField returns the underlying zap.Field for efficient conversion
	ZapField() zap.Field
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" env:"BINDER_LOG_LEVEL"`
	Format      string `yaml:"format" env:"BINDER_LOG_FORMAT"`
	Environment string `yaml:"environment" env:"BINDER_ENVIRONMENT"`
}
