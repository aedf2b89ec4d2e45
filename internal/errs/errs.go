package errs

import (
	"errors"
	"fmt"
)

// Kind is the stable, caller-facing classification of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindRateLimited
	KindCacheDecode
	KindInvalidMethod
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindRateLimited:
		return "rate_limit_exceeded"
	case KindCacheDecode:
		return "cache_decode"
	case KindInvalidMethod:
		return "allocation_method_invalid"
	default:
		return "internal"
	}
}

// Error is a domain error with a stable kind and a message safe to show the caller.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, errs.ErrNotFound) works
// for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == ""
}

// Sentinels for errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrInvalid       = &Error{Kind: KindInvalid}
	ErrRateLimited   = &Error{Kind: KindRateLimited}
	ErrCacheDecode   = &Error{Kind: KindCacheDecode}
	ErrInvalidMethod = &Error{Kind: KindInvalidMethod}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

func RateLimited(limit int, window int) error {
	return &Error{Kind: KindRateLimited, Msg: fmt.Sprintf("Rate limit exceeded: %d requests per %d seconds", limit, window)}
}

func CacheDecode(key string, err error) error {
	return &Error{Kind: KindCacheDecode, Msg: fmt.Sprintf("cached value at %q does not match expected shape", key), Err: err}
}

func InvalidMethod(name string) error {
	return &Error{Kind: KindInvalidMethod, Msg: fmt.Sprintf("unknown allocation method %q", name)}
}

// KindOf classifies err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing text for err. Internal errors are not
// exposed verbatim.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return "internal error"
}
