package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// zapField wraps a zap.Field and implements the Field interface.
type zapField struct {
	field zap.Field
}

func (f zapField) Key() string { return f.field.Key }

func (f zapField) Value() interface{} {
	switch {
	case f.field.Interface != nil:
		return f.field.Interface
	case f.field.String != "":
		return f.field.String
	default:
		return f.field.Integer
	}
}

func (f zapField) ZapField() zap.Field { return f.field }

// String creates a string field.
func String(key, value string) Field {
	return zapField{zap.String(key, value)}
}

// Strings creates a string slice field.
func Strings(key string, value []string) Field {
	return zapField{zap.Strings(key, value)}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return zapField{zap.Int(key, value)}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return zapField{zap.Int64(key, value)}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return zapField{zap.Bool(key, value)}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return zapField{zap.Duration(key, value)}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return zapField{zap.Time(key, value)}
}

// Error creates an error field.
func Error(err error) Field {
	return zapField{zap.Error(err)}
}

// Stringer creates a field from a fmt.Stringer.
func Stringer(key string, value fmt.Stringer) Field {
	return zapField{zap.Stringer(key, value)}
}

// Any creates a field from an arbitrary value.
func Any(key string, value interface{}) Field {
	return zapField{zap.Any(key, value)}
}

// Binding creates the conventional field for a binding name.
func Binding(name string) Field {
	return String("binding", name)
}

// Scope creates the conventional field for a scope owner.
func Scope(owner string) Field {
	return String("scope", owner)
}

// Unit creates the conventional field for a deployment unit.
func Unit(unit string) Field {
	return String("unit", unit)
}

func fieldsToZap(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		zapFields[i] = field.ZapField()
	}
	return zapFields
}
