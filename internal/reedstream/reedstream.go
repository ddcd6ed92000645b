// Package reedstream defines the request/response/error vocabulary shared
// across every ReedCMS subsystem. It has no runtime dependency on any other
// internal package.
package reedstream

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request carries a single operation across a subsystem boundary.
type Request struct {
	Key         string
	Language    string // empty means "no language"
	Environment string // empty means "no environment"
	Context     map[string]string
	Value       string
	HasValue    bool
	Description string
}

// NewRequest builds a Request with a fresh correlation id stashed in Context.
func NewRequest(key string) Request {
	return Request{
		Key:     key,
		Context: map[string]string{"request_id": uuid.NewString()},
	}
}

// RequestID returns the correlation id stashed by NewRequest, or "" if absent.
func (r Request) RequestID() string {
	if r.Context == nil {
		return ""
	}
	return r.Context["request_id"]
}

// Metrics carries optional performance data about how a response was produced.
type Metrics struct {
	DurationMicros int64
	CacheHit       bool
	SourceFile     string
}

// Response wraps a value with provenance metadata, mirroring ReedResponse<T>.
type Response[T any] struct {
	Data      T
	Source    string
	Cached    bool
	Timestamp int64
	Metrics   *Metrics
}

// NewResponse builds a Response stamped with the current Unix timestamp.
func NewResponse[T any](data T, source string, cached bool) Response[T] {
	return Response[T]{
		Data:      data,
		Source:    source,
		Cached:    cached,
		Timestamp: CurrentTimestamp(),
	}
}

// CurrentTimestamp returns the current time as Unix seconds.
func CurrentTimestamp() int64 {
	return time.Now().Unix()
}

// Kind enumerates the closed error taxonomy from spec.md §4.1.
type Kind int

const (
	KindNotFound Kind = iota
	KindValidationError
	KindIoError
	KindCsvError
	KindAuthError
	KindConfigError
	KindTemplateError
	KindServerError
	KindInvalidCommand
	KindParseError
	KindCompressionError
	KindSecurityError
	KindBuildError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidationError:
		return "ValidationError"
	case KindIoError:
		return "IoError"
	case KindCsvError:
		return "CsvError"
	case KindAuthError:
		return "AuthError"
	case KindConfigError:
		return "ConfigError"
	case KindTemplateError:
		return "TemplateError"
	case KindServerError:
		return "ServerError"
	case KindInvalidCommand:
		return "InvalidCommand"
	case KindParseError:
		return "ParseError"
	case KindCompressionError:
		return "CompressionError"
	case KindSecurityError:
		return "SecurityError"
	case KindBuildError:
		return "BuildError"
	default:
		return "Unknown"
	}
}

// Error is the single closed error type every ReedCMS boundary returns.
// Fields not relevant to a given Kind are left zero.
type Error struct {
	Kind Kind

	// NotFound
	Resource string
	Context  string

	// ValidationError
	Field      string
	Value      string
	Constraint string

	// IoError / CsvError / ConfigError / TemplateError / ServerError / BuildError
	Operation string
	Path      string
	Reason    string
	Component string
	Template  string

	// AuthError
	User   string
	Action string

	// InvalidCommand / ParseError
	Command string
	Input   string

	wrapped error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		if e.Context != "" {
			return fmt.Sprintf("not found: %s (%s)", e.Resource, e.Context)
		}
		return fmt.Sprintf("not found: %s", e.Resource)
	case KindValidationError:
		return fmt.Sprintf("validation error: %s=%q violates %s", e.Field, e.Value, e.Constraint)
	case KindIoError:
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Reason)
	case KindCsvError:
		return fmt.Sprintf("csv error: %s %s: %s", e.Operation, e.Path, e.Reason)
	case KindAuthError:
		if e.User != "" {
			return fmt.Sprintf("auth error: user=%s action=%s: %s", e.User, e.Action, e.Reason)
		}
		return fmt.Sprintf("auth error: action=%s: %s", e.Action, e.Reason)
	case KindConfigError:
		return fmt.Sprintf("config error: %s: %s", e.Component, e.Reason)
	case KindTemplateError:
		return fmt.Sprintf("template error: %s: %s", e.Template, e.Reason)
	case KindServerError:
		return fmt.Sprintf("server error: %s: %s", e.Component, e.Reason)
	case KindInvalidCommand:
		return fmt.Sprintf("invalid command: %s: %s", e.Command, e.Reason)
	case KindParseError:
		return fmt.Sprintf("parse error: %q: %s", e.Input, e.Reason)
	case KindCompressionError:
		return fmt.Sprintf("compression error: %s: %s", e.Operation, e.Reason)
	case KindSecurityError:
		return fmt.Sprintf("security error: %s: %s", e.Operation, e.Reason)
	case KindBuildError:
		return fmt.Sprintf("build error: %s: %s", e.Component, e.Reason)
	default:
		return fmt.Sprintf("reedcms error (%s): %s", e.Kind, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.wrapped }

// WithContext attaches descriptive context to a NotFound error (spec.md §7:
// with_context attaches context to NotFound only).
func (e *Error) WithContext(ctx string) *Error {
	if e.Kind == KindNotFound {
		e.Context = ctx
	}
	return e
}

// NotFound builds a NotFound error for resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource}
}

// Validation builds a ValidationError.
func Validation(field, value, constraint string) *Error {
	return &Error{Kind: KindValidationError, Field: field, Value: value, Constraint: constraint}
}

// IOError wraps a platform I/O failure.
func IOError(operation, path string, err error) *Error {
	return &Error{Kind: KindIoError, Operation: operation, Path: path, Reason: errString(err), wrapped: err}
}

// CsvErr wraps a CSV parsing failure.
func CsvErr(operation, path, reason string) *Error {
	return &Error{Kind: KindCsvError, Operation: operation, Path: path, Reason: reason}
}

// Auth builds an AuthError.
func Auth(user, action, reason string) *Error {
	return &Error{Kind: KindAuthError, User: user, Action: action, Reason: reason}
}

// Config builds a ConfigError.
func Config(component, reason string) *Error {
	return &Error{Kind: KindConfigError, Component: component, Reason: reason}
}

// TemplateErr builds a TemplateError.
func TemplateErr(template, reason string) *Error {
	return &Error{Kind: KindTemplateError, Template: template, Reason: reason}
}

// Server builds a ServerError.
func Server(component, reason string) *Error {
	return &Error{Kind: KindServerError, Component: component, Reason: reason}
}

// InvalidCmd builds an InvalidCommand error.
func InvalidCmd(command, reason string) *Error {
	return &Error{Kind: KindInvalidCommand, Command: command, Reason: reason}
}

// Parse builds a ParseError.
func Parse(input, reason string) *Error {
	return &Error{Kind: KindParseError, Input: input, Reason: reason}
}

// Compression builds a CompressionError.
func Compression(operation, reason string) *Error {
	return &Error{Kind: KindCompressionError, Operation: operation, Reason: reason}
}

// Security builds a SecurityError.
func Security(operation, reason string) *Error {
	return &Error{Kind: KindSecurityError, Operation: operation, Reason: reason}
}

// Build builds a BuildError.
func Build(component, reason string) *Error {
	return &Error{Kind: KindBuildError, Component: component, Reason: reason}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AsReedError unwraps err into a *Error, if it is one (or wraps one).
func AsReedError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
