package async

// Promise
// 未来的写入侧。
//
// Succeed 与 Fail 为必须成功的形式，重复完成会 panic。
// Try 形式在已达终态时返回 false。
type Promise[R any] interface {
	Succeed(result R)
	TrySucceed(result R) (ok bool)
	Fail(cause error)
	TryFail(cause error) (ok bool)
	TryCancel() (ok bool)
	IsDone() (ok bool)
	Future() (future Future[R])
}

type Option func(options *Options)

type Options struct {
	Cancelable bool
}

// WithCancelable
// 允许 TryCancel 成功。绝大多数 I/O 许诺不可取消。
func WithCancelable() Option {
	return func(options *Options) {
		options.Cancelable = true
	}
}

// New
// 创建一个许诺，exec 为通知监听器的执行器。
func New[R any](exec Executor) Promise[R] {
	promise, err := Make[R](exec)
	if err != nil {
		panic(err)
	}
	return promise
}

// Make
// 创建一个许诺。
func Make[R any](exec Executor, options ...Option) (promise Promise[R], err error) {
	if exec == nil {
		err = ErrNilExecutor
		return
	}
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	promise = &futureImpl[R]{
		exec:       exec,
		cancelable: opts.Cancelable,
		done:       make(chan struct{}),
	}
	return
}
