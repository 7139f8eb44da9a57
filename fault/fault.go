// Package fault tags errors with the kind of failure that produced them so a
// single top-level handler can report them and pick an exit code.
//
// Every failure in ram-snap is fatal; the kind only decides how it is reported.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	// IO covers unreadable sources, device reads, seeks, and output writes.
	IO
	// Format covers memory map lines that don't match the expected layout.
	Format
	// Config covers invalid configuration files and flags.
	Config
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Format:
		return "format"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and an operation name.
func New(kind Kind, op string, err error) error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// KindOf returns the kind of the outermost fault in err's chain, or Unknown.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}

	return Unknown
}

// ExitCode maps err to the process exit code used by the ram-snap binaries.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case IO:
		return 2
	case Format:
		return 3
	default:
		return 1
	}
}
