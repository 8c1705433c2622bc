package rivet

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrDuplicateName = errors.Define("rivet: duplicate handler name")
	ErrNotFound      = errors.Define("rivet: handler not found")
	ErrNilArgument   = errors.Define("rivet: argument is nil")
	ErrIllegalState  = errors.Define("rivet: illegal state")
	ErrHandler       = errors.Define("rivet: handler failed")
)

func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNilArgument(err error) bool {
	return errors.Is(err, ErrNilArgument)
}

func IsIllegalState(err error) bool {
	return errors.Is(err, ErrIllegalState)
}

// IsHandlerFailure
// 判断错误是否来自处理器。
func IsHandlerFailure(err error) bool {
	return errors.Is(err, ErrHandler)
}
