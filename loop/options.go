package loop

import (
	"context"

	"github.com/brickingsoft/rxp"
)

type Options struct {
	Ctx       context.Context
	Executors rxp.Executors
}

type Option func(options *Options)

func defaultOptions() Options {
	return Options{
		Ctx:       context.Background(),
		Executors: nil,
	}
}

// WithContext
// 宿主协程使用的上下文。
func WithContext(ctx context.Context) Option {
	return func(options *Options) {
		if ctx != nil {
			options.Ctx = ctx
		}
	}
}

// WithExecutors
// 指定宿主协程池，默认为包级的 rxp.Executors。
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) {
		if executors != nil {
			options.Executors = executors
		}
	}
}
