// Package codec defines the shared error taxonomy used by every codec
// engine in this module.
package codec

import "fmt"

// Kind is a stable error classification shared by every codec in this
// module, mirroring the integer status codes of the systems-language
// source this library was ported from.
type Kind byte

const (
	// Ok is never itself returned as an error.
	Ok Kind = iota
	MemoryRunout
	Unsupported
	DstOverflow
	SrcOverflow
	Data
	OutputLenMismatch
	Corrupt
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case MemoryRunout:
		return "memory runout"
	case Unsupported:
		return "unsupported"
	case DstOverflow:
		return "destination overflow"
	case SrcOverflow:
		return "source overflow"
	case Data:
		return "invalid data"
	case OutputLenMismatch:
		return "output length mismatch"
	case Corrupt:
		return "corrupt"
	default:
		return "unknown codec error"
	}
}

// Error wraps a Kind with an optional human-readable detail and cause.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, codec.ErrCorrupt) instead of a type switch.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Kind == e.Kind && te.Detail == ""
}

// New builds an *Error of the given kind with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Sentinel values for errors.Is comparisons against a bare Kind.
var (
	ErrMemoryRunout      = &Error{Kind: MemoryRunout}
	ErrUnsupported       = &Error{Kind: Unsupported}
	ErrDstOverflow       = &Error{Kind: DstOverflow}
	ErrSrcOverflow       = &Error{Kind: SrcOverflow}
	ErrData              = &Error{Kind: Data}
	ErrOutputLenMismatch = &Error{Kind: OutputLenMismatch}
	ErrCorrupt           = &Error{Kind: Corrupt}
)

// KindOf extracts the Kind from any error produced by this module, or
// Ok if err is nil and Data if err is foreign.
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Data
}
