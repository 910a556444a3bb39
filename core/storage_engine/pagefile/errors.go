package pagefile

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---

var (
	ErrFileNotFound             = errors.New("file not found")
	ErrFileHandleNotInitialized = errors.New("file handle not initialized")
	ErrReadNonExistingPage      = errors.New("read non existing page")
	ErrWriteFailed              = errors.New("write failed")
)

// Kind classifies every error returned by this package.
type Kind int

const (
	KindOK Kind = iota
	KindFileNotFound
	KindFileHandleNotInitialized
	KindWriteFailed
	KindReadNonExistingPage
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindFileNotFound:
		return "file_not_found"
	case KindFileHandleNotInitialized:
		return "file_handle_not_initialized"
	case KindWriteFailed:
		return "write_failed"
	case KindReadNonExistingPage:
		return "read_non_existing_page"
	default:
		return "unknown"
	}
}

// ReturnCode is the classic storage manager return code for the kind.
func (k Kind) ReturnCode() int {
	switch k {
	case KindOK:
		return 0
	case KindFileNotFound:
		return 1
	case KindFileHandleNotInitialized:
		return 2
	case KindWriteFailed:
		return 3
	case KindReadNonExistingPage:
		return 4
	default:
		return -1
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindFileNotFound:
		return ErrFileNotFound
	case KindFileHandleNotInitialized:
		return ErrFileHandleNotInitialized
	case KindWriteFailed:
		return ErrWriteFailed
	case KindReadNonExistingPage:
		return ErrReadNonExistingPage
	default:
		return nil
	}
}

// Error is the concrete error type returned by page file operations.
// errors.Is matches both the kind's sentinel and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %v: %s", e.Op, e.Kind.sentinel(), e.Msg)
	if e.Path != "" {
		s = fmt.Sprintf("%s (%s)", s, e.Path)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newError(kind Kind, op, path, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Path: path, Msg: msg, Err: cause}
}

// KindOf reports the kind of err. A nil error is KindOK.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var pfErr *Error
	if errors.As(err, &pfErr) {
		return pfErr.Kind
	}
	switch {
	case errors.Is(err, ErrFileNotFound):
		return KindFileNotFound
	case errors.Is(err, ErrFileHandleNotInitialized):
		return KindFileHandleNotInitialized
	case errors.Is(err, ErrWriteFailed):
		return KindWriteFailed
	case errors.Is(err, ErrReadNonExistingPage):
		return KindReadNonExistingPage
	}
	return KindUnknown
}
