package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/errors"
)

const (
	statePending int32 = iota
	stateSucceed
	stateFailed
	stateCancelled
)

// Future
// 许诺的未来。
//
// 状态从未决出发，恰好发生一次终态转换（成功、失败或取消），之后不可变。
// 监听器通知运行在绑定的执行器上；等待操作不可在该执行器协程内调用，
// 否则返回 ErrDeadlock。
type Future[R any] interface {
	IsDone() (ok bool)
	IsSucceed() (ok bool)
	IsCancelled() (ok bool)
	// Cause
	// 失败或取消的原因，未决或成功时为 nil。
	Cause() (cause error)
	// Result
	// 成功的结果，其余状态下为零值。
	Result() (result R)
	AddListener(listener Listener[R]) (err error)
	AddListeners(listeners ...Listener[R]) (err error)
	// RemoveListener
	// 尽力而为的移除，不存在时无错误。
	RemoveListener(listener Listener[R])
	// OnComplete
	// 注册一个函数监听器。
	OnComplete(fn func(result R, cause error)) (err error)
	// Await
	// 堵塞等待终态，不可中断。
	Await() (err error)
	// AwaitContext
	// 堵塞等待终态，ctx 取消时以 ErrInterrupted 返回。
	AwaitContext(ctx context.Context) (err error)
	// AwaitTimeout
	// 限时等待，返回是否已达终态。
	AwaitTimeout(timeout time.Duration) (ok bool, err error)
	// Sync
	// 如 Await，失败或取消时返回其原因。
	Sync() (err error)
	SyncContext(ctx context.Context) (err error)
	// TryCancel
	// 协作式取消，仅当许诺允许取消时成功。
	TryCancel() (ok bool)
	Executor() (exec Executor)
}

type futureImpl[R any] struct {
	exec       Executor
	cancelable bool
	locker     sync.Mutex
	state      atomic.Int32
	result     R
	cause      error
	done       chan struct{}
	listeners  []Listener[R]
	notifying  bool
}

func (f *futureImpl[R]) IsDone() (ok bool) {
	ok = f.state.Load() != statePending
	return
}

func (f *futureImpl[R]) IsSucceed() (ok bool) {
	ok = f.state.Load() == stateSucceed
	return
}

func (f *futureImpl[R]) IsCancelled() (ok bool) {
	ok = f.state.Load() == stateCancelled
	return
}

func (f *futureImpl[R]) Cause() (cause error) {
	if f.state.Load() != statePending {
		cause = f.cause
	}
	return
}

func (f *futureImpl[R]) Result() (result R) {
	if f.state.Load() == stateSucceed {
		result = f.result
	}
	return
}

func (f *futureImpl[R]) Executor() (exec Executor) {
	exec = f.exec
	return
}

func (f *futureImpl[R]) AddListener(listener Listener[R]) (err error) {
	if listener == nil {
		err = ErrNilListener
		return
	}
	f.locker.Lock()
	f.listeners = append(f.listeners, listener)
	pending := f.state.Load() == statePending
	notifying := f.notifying
	f.locker.Unlock()
	if !pending && !notifying {
		f.scheduleNotify()
	}
	return
}

func (f *futureImpl[R]) AddListeners(listeners ...Listener[R]) (err error) {
	for _, listener := range listeners {
		if err = f.AddListener(listener); err != nil {
			return
		}
	}
	return
}

func (f *futureImpl[R]) RemoveListener(listener Listener[R]) {
	if listener == nil {
		return
	}
	f.locker.Lock()
	for i, added := range f.listeners {
		if listenerEqual[R](added, listener) {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			break
		}
	}
	f.locker.Unlock()
}

func (f *futureImpl[R]) OnComplete(fn func(result R, cause error)) (err error) {
	if fn == nil {
		err = ErrNilListener
		return
	}
	err = f.AddListener(ListenerFunc[R](fn))
	return
}

func (f *futureImpl[R]) Await() (err error) {
	if f.IsDone() {
		return
	}
	if f.exec.InExecutor() {
		err = ErrDeadlock
		return
	}
	<-f.done
	return
}

func (f *futureImpl[R]) AwaitContext(ctx context.Context) (err error) {
	if f.IsDone() {
		return
	}
	if f.exec.InExecutor() {
		err = ErrDeadlock
		return
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		err = errors.From(ErrInterrupted, errors.WithWrap(ctx.Err()))
	}
	return
}

func (f *futureImpl[R]) AwaitTimeout(timeout time.Duration) (ok bool, err error) {
	if f.IsDone() {
		ok = true
		return
	}
	if f.exec.InExecutor() {
		err = ErrDeadlock
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		ok = true
	case <-timer.C:
	}
	return
}

func (f *futureImpl[R]) Sync() (err error) {
	if err = f.Await(); err != nil {
		return
	}
	err = f.Cause()
	return
}

func (f *futureImpl[R]) SyncContext(ctx context.Context) (err error) {
	if err = f.AwaitContext(ctx); err != nil {
		return
	}
	err = f.Cause()
	return
}

func (f *futureImpl[R]) TryCancel() (ok bool) {
	if !f.cancelable {
		return
	}
	var zero R
	ok = f.complete(stateCancelled, zero, ErrCancelled)
	return
}

func (f *futureImpl[R]) Succeed(result R) {
	if !f.TrySucceed(result) {
		panic(ErrCompleted)
	}
}

func (f *futureImpl[R]) TrySucceed(result R) (ok bool) {
	ok = f.complete(stateSucceed, result, nil)
	return
}

func (f *futureImpl[R]) Fail(cause error) {
	if !f.TryFail(cause) {
		panic(ErrCompleted)
	}
}

func (f *futureImpl[R]) TryFail(cause error) (ok bool) {
	if cause == nil {
		cause = ErrCancelled
	}
	var zero R
	ok = f.complete(stateFailed, zero, cause)
	return
}

func (f *futureImpl[R]) Future() (future Future[R]) {
	future = f
	return
}

func (f *futureImpl[R]) complete(state int32, result R, cause error) (ok bool) {
	f.locker.Lock()
	if f.state.Load() != statePending {
		f.locker.Unlock()
		return
	}
	f.result = result
	f.cause = cause
	f.state.Store(state)
	close(f.done)
	hasListeners := len(f.listeners) > 0
	f.locker.Unlock()
	ok = true
	if hasListeners {
		f.scheduleNotify()
	}
	return
}

func (f *futureImpl[R]) scheduleNotify() {
	if f.exec.InExecutor() {
		f.notify()
		return
	}
	if err := f.exec.Execute(f.notify); err != nil {
		slog.Warn("async: schedule future notification failed", "cause", err)
	}
}

// notify runs on the bound executor only.
// Listeners registered during a pass are picked up by the next pass.
func (f *futureImpl[R]) notify() {
	for {
		f.locker.Lock()
		if f.notifying || len(f.listeners) == 0 {
			f.locker.Unlock()
			return
		}
		f.notifying = true
		listeners := f.listeners
		f.listeners = nil
		f.locker.Unlock()
		for _, listener := range listeners {
			f.invokeListener(listener)
		}
		f.locker.Lock()
		f.notifying = false
		f.locker.Unlock()
	}
}

func (f *futureImpl[R]) invokeListener(listener Listener[R]) {
	defer func() {
		if cause := recover(); cause != nil {
			slog.Warn("async: future listener failed", "cause", cause)
		}
	}()
	listener.OnComplete(f)
}
