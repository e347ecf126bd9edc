package codegen

import "errors"

// errTransient and errFatal classify agent API failures for the retry
// loop. Wrapped errors match them through errors.Is.
var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

// classifiedError pairs a failure with its retry class.
type classifiedError struct {
	class error
	err   error
}

func (e *classifiedError) Error() string { return e.err.Error() }

func (e *classifiedError) Unwrap() []error { return []error{e.class, e.err} }

// NewTransientError marks err as worth retrying.
func NewTransientError(err error) error {
	return &classifiedError{class: errTransient, err: err}
}

// NewFatalError marks err as permanent.
func NewFatalError(err error) error {
	return &classifiedError{class: errFatal, err: err}
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool { return errors.Is(err, errTransient) }

// IsFatal reports whether retrying err is pointless.
func IsFatal(err error) bool { return errors.Is(err, errFatal) }
