// internal/hw/errors.go
package hw

import "fmt"

// Category is the layer an error originates from.
type Category uint8

const (
	Hardware Category = iota + 1
	Control
)

// Kind classifies an error within its category.
type Kind uint8

const (
	KindError Kind = iota + 1
	KindNotSupported
	KindInvalidValue
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindNotSupported:
		return "not supported"
	case KindInvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is the failure type handed back to the host framework.
type Error struct {
	Category Category
	Kind     Kind
	Msg      string
	Err      error
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrNotSupported = &Error{Category: Hardware, Kind: KindNotSupported}
	ErrInvalidValue = &Error{Category: Hardware, Kind: KindInvalidValue}
	ErrHardware     = &Error{Category: Hardware, Kind: KindError}
)

func (e *Error) Error() string {
	s := "hw: " + e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Code returns a non-zero numeric code suitable for status registers.
func (e *Error) Code() uint16 {
	return uint16(e.Category)<<8 | uint16(e.Kind)
}

// NotSupported builds a hardware NotSupported error.
func NotSupported(format string, args ...any) error {
	return &Error{Category: Hardware, Kind: KindNotSupported, Msg: fmt.Sprintf(format, args...)}
}

// InvalidValue builds a hardware InvalidValue error.
func InvalidValue(format string, args ...any) error {
	return &Error{Category: Hardware, Kind: KindInvalidValue, Msg: fmt.Sprintf(format, args...)}
}

// Failure builds a generic hardware error.
func Failure(format string, args ...any) error {
	return &Error{Category: Hardware, Kind: KindError, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a generic hardware error around err. errors.Is still sees err.
func Wrap(err error, format string, args ...any) error {
	return &Error{Category: Hardware, Kind: KindError, Msg: fmt.Sprintf(format, args...), Err: err}
}
