package anki

import (
	"errors"
	"fmt"
)

// Kind classifies why a write failed.
type Kind int

const (
	// KindDatabase is a DDL or DML failure.
	KindDatabase Kind = iota + 1
	// KindSerialization is a JSON encoding failure of an aggregate blob.
	KindSerialization
	// KindContainer is a failure to start or fill an archive entry.
	KindContainer
	// KindIO is a temporary file or media file access failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindSerialization:
		return "serialization"
	case KindContainer:
		return "container"
	case KindIO:
		return "io"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matching every Error of the corresponding kind with errors.Is.
var (
	ErrDatabase      = errors.New("database error")
	ErrSerialization = errors.New("serialization error")
	ErrContainer     = errors.New("container error")
	ErrIO            = errors.New("io error")
)

// Error is returned by every failed write. The destination must be treated
// as unusable.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: failed to %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDatabase:
		return e.Kind == KindDatabase
	case ErrSerialization:
		return e.Kind == KindSerialization
	case ErrContainer:
		return e.Kind == KindContainer
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

func newError(kind Kind, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
