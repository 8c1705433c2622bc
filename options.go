package rivet

import (
	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/loop"
)

type AddOptions struct {
	Executor async.Executor
}

type AddOption func(options *AddOptions)

// WithExecutor
// 为上下文钉选指定执行器，默认为通道的执行器。
func WithExecutor(executor async.Executor) AddOption {
	return func(options *AddOptions) {
		if executor != nil {
			options.Executor = executor
		}
	}
}

// WithGroup
// 从执行器组中取一个执行器并钉选。
func WithGroup(group *loop.Group) AddOption {
	return func(options *AddOptions) {
		if group != nil {
			options.Executor = group.Next()
		}
	}
}
