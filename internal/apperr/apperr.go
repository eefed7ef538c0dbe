// Package apperr classifies failures raised by the prediction core.
// Callers branch on the Kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the class of a failure.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	ModelLoad
	Inference
	UnknownClass
	Unavailable
)

var kindNames = map[Kind]string{
	Internal:     "internal",
	InvalidInput: "invalid input",
	ModelLoad:    "model load",
	Inference:    "inference",
	UnknownClass: "unknown class",
	Unavailable:  "unavailable",
}

var kindCodes = map[Kind]string{
	Internal:     "INTERNAL_ERROR",
	InvalidInput: "INVALID_ARGUMENT",
	ModelLoad:    "MODEL_LOAD_ERROR",
	Inference:    "MODEL_ERROR",
	UnknownClass: "UNKNOWN_CLASS",
	Unavailable:  "SERVICE_UNAVAILABLE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[Internal]
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind   Kind
	Op     string
	Msg    string
	Err    error
	Fields []string
}

// Sentinels for use with errors.Is. Only the Kind is compared.
var (
	ErrInvalidInput = &Error{Kind: InvalidInput}
	ErrModelLoad    = &Error{Kind: ModelLoad}
	ErrInference    = &Error{Kind: Inference}
	ErrUnknownClass = &Error{Kind: UnknownClass}
	ErrUnavailable  = &Error{Kind: Unavailable}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a classified error with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithFields attaches field-level messages to e and returns it.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// KindOf returns the Kind of the outermost classified error in err's chain.
// Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// FieldsOf returns the field-level messages attached to err, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
