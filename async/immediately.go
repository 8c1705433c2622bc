package async

// SucceedImmediately
// 已成功的未来。
func SucceedImmediately[R any](exec Executor, result R) (future Future[R]) {
	f := &futureImpl[R]{
		exec:   exec,
		result: result,
		done:   make(chan struct{}),
	}
	f.state.Store(stateSucceed)
	close(f.done)
	future = f
	return
}

// FailedImmediately
// 已失败的未来。
func FailedImmediately[R any](exec Executor, cause error) (future Future[R]) {
	if cause == nil {
		cause = ErrCancelled
	}
	f := &futureImpl[R]{
		exec:  exec,
		cause: cause,
		done:  make(chan struct{}),
	}
	f.state.Store(stateFailed)
	close(f.done)
	future = f
	return
}
