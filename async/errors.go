package async

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrNilExecutor = errors.Define("async: executor is nil")
	ErrNilListener = errors.Define("async: listener is nil")
	ErrDeadlock    = errors.Define("async: await called from the executor of the future")
	ErrInterrupted = errors.Define("async: await interrupted")
	ErrTimeout     = errors.Define("async: await timeout")
	ErrCancelled   = errors.Define("async: cancelled")
	ErrCompleted   = errors.Define("async: promise already completed")
	ErrVoidFuture  = errors.Define("async: operation is not permitted on a void future")
)

func IsDeadlock(err error) bool {
	return errors.Is(err, ErrDeadlock)
}

func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func IsVoidFuture(err error) bool {
	return errors.Is(err, ErrVoidFuture)
}
