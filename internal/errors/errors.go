package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ERROR CODES
// =============================================================================

// Error code constants for structured errors
const (
	CodeConfigurationError   = "CONFIGURATION_ERROR"
	CodeDuplicateBinding     = "DUPLICATE_BINDING"
	CodeResolutionError      = "RESOLUTION_ERROR"
	CodeLookupLoop           = "LOOKUP_LOOP"
	CodeTransientUnavailable = "TRANSIENT_UNAVAILABLE"
	CodeInternalInvariant    = "INTERNAL_INVARIANT"
	CodeIOError              = "IO_ERROR"
	CodeScopeNotFound        = "SCOPE_NOT_FOUND"
	CodeTimeoutError         = "TIMEOUT_ERROR"
)

// Resolution variants distinguish why a binding could not be resolved.
const (
	VariantDefault  = "default"
	VariantListener = "listener"
	VariantExplicit = "explicit"
)

// Standard errors
var (
	ErrEmptyName    = errors.New("binding name cannot be empty")
	ErrEmptyTarget  = errors.New("indirect reference target cannot be empty")
	ErrNilBinding   = errors.New("binding cannot be nil")
	ErrNilFactory   = errors.New("resource factory cannot be nil")
	ErrEngineClosed = errors.New("engine already closed")
)

// DeployError wraps failures of a deployment batch with the offending unit
// and binding name.
type DeployError struct {
	Unit string
	Name string
	Err  error
}

func (e *DeployError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("deployment %s: %v", e.Unit, e.Err)
	}
	return fmt.Sprintf("deployment %s: binding %s: %v", e.Unit, e.Name, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface for DeployError
func (e *DeployError) Is(target error) bool {
	t, ok := target.(*DeployError)
	if !ok {
		return false
	}
	return (e.Unit == "" || t.Unit == "" || e.Unit == t.Unit) &&
		(e.Name == "" || t.Name == "" || e.Name == t.Name)
}

// NewDeployError creates a new deployment error
func NewDeployError(unit, name string, err error) *DeployError {
	return &DeployError{
		Unit: unit,
		Name: name,
		Err:  err,
	}
}

// =============================================================================
// NAMING ERROR (STRUCTURED ERROR)
// =============================================================================

// NamingError represents a structured error with context
type NamingError struct {
	Code      string
	Message   string
	Cause     error
	Timestamp time.Time
	Context   map[string]interface{}
}

func (e *NamingError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *NamingError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is interface for NamingError
// Compares by error code, allowing matching against sentinel errors
func (e *NamingError) Is(target error) bool {
	t, ok := target.(*NamingError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithContext adds context to the error
func (e *NamingError) WithContext(key string, value interface{}) *NamingError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// String returns a string context value or "" when absent.
func (e *NamingError) String(key string) string {
	if s, ok := e.Context[key].(string); ok {
		return s
	}
	return ""
}

func newError(code, message string, cause error, ctx map[string]interface{}) *NamingError {
	if ctx == nil {
		ctx = make(map[string]interface{})
	}
	return &NamingError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}

// ErrConfiguration creates a configuration error
func ErrConfiguration(message string, cause error) *NamingError {
	return newError(CodeConfigurationError, message, cause, nil)
}

// ErrDuplicateBinding reports a name bound twice in one namespace.
func ErrDuplicateBinding(name, namespace string) *NamingError {
	return newError(CodeDuplicateBinding,
		"binding '"+name+"' already exists in "+namespace+" namespace", nil,
		map[string]interface{}{"binding": name, "namespace": namespace})
}

// ErrBindingConflict reports two contributors disagreeing on a shared name.
func ErrBindingConflict(name string, cause error) *NamingError {
	return newError(CodeConfigurationError,
		"conflicting contributions for shared binding '"+name+"'", cause,
		map[string]interface{}{"binding": name})
}

// ErrComponentNamespaceViolation is raised when a non-component artifact
// tries to bind into the component namespace.
func ErrComponentNamespaceViolation(name, unit string) *NamingError {
	return newError(CodeConfigurationError,
		"binding '"+name+"' targets the component namespace but '"+unit+"' is not a component", nil,
		map[string]interface{}{"binding": name, "unit": unit})
}

func resolutionMessage(variant, binding, typ, name string) string {
	var b strings.Builder
	switch variant {
	case VariantDefault:
		b.WriteString("default binding '")
	case VariantListener:
		b.WriteString("listener-provided binding '")
	default:
		b.WriteString("binding '")
	}
	b.WriteString(binding)
	b.WriteString("'")
	if typ != "" {
		b.WriteString(" of type " + typ)
	}
	if name != "" && name != binding {
		b.WriteString(" for reference '" + name + "'")
	}
	b.WriteString(" could not be resolved")
	return b.String()
}

func errResolution(variant, binding, typ, name, path string) *NamingError {
	return newError(CodeResolutionError, resolutionMessage(variant, binding, typ, name), nil,
		map[string]interface{}{
			"variant": variant,
			"binding": binding,
			"type":    typ,
			"name":    name,
			"path":    path,
		})
}

// ErrDefaultBindingNotFound reports an auto-derived binding that nothing satisfied.
func ErrDefaultBindingNotFound(binding, typ, name, path string) *NamingError {
	return errResolution(VariantDefault, binding, typ, name, path)
}

// ErrListenerBindingNotFound reports a binding supplied by a binding listener
// that nothing satisfied.
func ErrListenerBindingNotFound(binding, typ, name, path string) *NamingError {
	return errResolution(VariantListener, binding, typ, name, path)
}

// ErrBindingNotFound reports an explicit binding that nothing satisfied.
func ErrBindingNotFound(binding, typ, name, path string) *NamingError {
	return errResolution(VariantExplicit, binding, typ, name, path)
}

// ErrNameNotFound reports a plain namespace miss.
func ErrNameNotFound(name string) *NamingError {
	return errResolution(VariantExplicit, name, "", name, "namespace")
}

// ErrLookupLoop reports an indirection chain that refers back to itself.
func ErrLookupLoop(chain []string) *NamingError {
	return newError(CodeLookupLoop,
		"indirect lookup loop: "+strings.Join(chain, " -> "), nil,
		map[string]interface{}{"chain": chain})
}

// ErrTransientUnavailable reports a naming facility that is not initialized.
func ErrTransientUnavailable(facility string) *NamingError {
	return newError(CodeTransientUnavailable,
		"naming facility '"+facility+"' is not available", nil,
		map[string]interface{}{"facility": facility})
}

// ErrInternalInvariant reports a collaborator breaking its contract.
func ErrInternalInvariant(message string, cause error) *NamingError {
	return newError(CodeInternalInvariant, message, cause, nil)
}

// ErrIO reports a failure reconstructing persisted state.
func ErrIO(operation string, cause error) *NamingError {
	return newError(CodeIOError, "i/o error during "+operation, cause,
		map[string]interface{}{"operation": operation})
}

// ErrScopeNotFound reports an unknown or destroyed scope handle.
func ErrScopeNotFound(scope string) *NamingError {
	return newError(CodeScopeNotFound, "scope '"+scope+"' not found", nil,
		map[string]interface{}{"scope": scope})
}

// ErrTimeoutError reports a bounded wait that expired.
func ErrTimeoutError(operation string, timeout time.Duration) *NamingError {
	return newError(CodeTimeoutError,
		"timeout during "+operation+" after "+timeout.String(), nil,
		map[string]interface{}{"operation": operation, "timeout": timeout.String()})
}

// =============================================================================
// STANDARD ERRORS PACKAGE INTEGRATION
// =============================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// =============================================================================
// SENTINEL ERRORS (for use with Is)
// =============================================================================

var (
	ErrConfigurationSentinel        = &NamingError{Code: CodeConfigurationError}
	ErrDuplicateBindingSentinel     = &NamingError{Code: CodeDuplicateBinding}
	ErrResolutionSentinel           = &NamingError{Code: CodeResolutionError}
	ErrLookupLoopSentinel           = &NamingError{Code: CodeLookupLoop}
	ErrTransientUnavailableSentinel = &NamingError{Code: CodeTransientUnavailable}
	ErrInternalInvariantSentinel    = &NamingError{Code: CodeInternalInvariant}
	ErrIOSentinel                   = &NamingError{Code: CodeIOError}
	ErrScopeNotFoundSentinel        = &NamingError{Code: CodeScopeNotFound}
	ErrTimeoutSentinel              = &NamingError{Code: CodeTimeoutError}
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfiguration checks for configuration errors, duplicate bindings included.
func IsConfiguration(err error) bool {
	return Is(err, ErrConfigurationSentinel) || Is(err, ErrDuplicateBindingSentinel)
}

// IsDuplicateBinding checks if the error is a duplicate binding error
func IsDuplicateBinding(err error) bool {
	return Is(err, ErrDuplicateBindingSentinel)
}

// IsResolution checks if the error is a resolution error
func IsResolution(err error) bool {
	return Is(err, ErrResolutionSentinel)
}

// IsLookupLoop checks if the error is an indirect lookup loop
func IsLookupLoop(err error) bool {
	return Is(err, ErrLookupLoopSentinel)
}

// IsTransientUnavailable checks if the error is a transient unavailability
func IsTransientUnavailable(err error) bool {
	return Is(err, ErrTransientUnavailableSentinel)
}

// IsInternalInvariant checks if the error is an internal invariant violation
func IsInternalInvariant(err error) bool {
	return Is(err, ErrInternalInvariantSentinel)
}

// IsIO checks if the error is an i/o error
func IsIO(err error) bool {
	return Is(err, ErrIOSentinel)
}

// IsScopeNotFound checks if the error is a missing scope error
func IsScopeNotFound(err error) bool {
	return Is(err, ErrScopeNotFoundSentinel)
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	return Is(err, ErrTimeoutSentinel)
}

// ResolutionVariant returns the variant of a resolution error, or "" when err
// is not one.
func ResolutionVariant(err error) string {
	var ne *NamingError
	if !As(err, &ne) || ne.Code != CodeResolutionError {
		return ""
	}
	return ne.String("variant")
}

// IsAbsent reports errors the fallback chain treats as "nothing here".
func IsAbsent(err error) bool {
	return IsResolution(err) || IsTransientUnavailable(err) || IsScopeNotFound(err)
}
