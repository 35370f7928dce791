// Package binder is a scoped naming and indirect-reference resolution
// engine. Deployment units contribute bindings to nested namespaces
// (component, module, application and global) and lookups resolve
// indirect references through factories, an external service registry, a
// naming facility and default resources.
package binder

import (
	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
)

// New creates an engine.
func New(opts ...Option) (*Engine, error) {
	return naming.New(opts...)
}

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...ConfigOption) Config {
	return config.New(opts...)
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// NewLogger creates a zap-backed logger.
func NewLogger(cfg LoggingConfig) Logger {
	return logger.NewLogger(cfg)
}
