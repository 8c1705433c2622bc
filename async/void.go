package async

import (
	"context"
	"log/slog"
	"time"
)

// Void
// 空结果。
type Void struct{}

// VoidPromise
// 放弃完成跟踪时使用的许诺。
//
// 其未来不可注册监听器，不可等待，这些操作返回 ErrVoidFuture。
// IsDone 与 IsSucceed 恒为真。完成它是无操作，失败会记录日志。
func VoidPromise(exec Executor) Promise[Void] {
	return &voidPromise{exec: exec}
}

// IsVoid
// 判断许诺或未来是否为空许诺。
func IsVoid(v any) (ok bool) {
	_, ok = v.(interface{ isVoid() })
	return
}

type voidPromise struct {
	exec Executor
}

func (p *voidPromise) isVoid() {}

func (p *voidPromise) Succeed(_ Void) {}

func (p *voidPromise) TrySucceed(_ Void) (ok bool) {
	ok = true
	return
}

func (p *voidPromise) Fail(cause error) {
	slog.Warn("async: void promise failed", "cause", cause)
}

func (p *voidPromise) TryFail(cause error) (ok bool) {
	p.Fail(cause)
	return
}

func (p *voidPromise) TryCancel() (ok bool) {
	return
}

func (p *voidPromise) IsDone() (ok bool) {
	ok = true
	return
}

func (p *voidPromise) Future() (future Future[Void]) {
	future = p
	return
}

func (p *voidPromise) IsSucceed() (ok bool) {
	ok = true
	return
}

func (p *voidPromise) IsCancelled() (ok bool) {
	return
}

func (p *voidPromise) Cause() (cause error) {
	return
}

func (p *voidPromise) Result() (result Void) {
	return
}

func (p *voidPromise) Executor() (exec Executor) {
	exec = p.exec
	return
}

func (p *voidPromise) AddListener(_ Listener[Void]) (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) AddListeners(_ ...Listener[Void]) (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) RemoveListener(_ Listener[Void]) {}

func (p *voidPromise) OnComplete(_ func(result Void, cause error)) (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) Await() (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) AwaitContext(_ context.Context) (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) AwaitTimeout(_ time.Duration) (ok bool, err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) Sync() (err error) {
	err = ErrVoidFuture
	return
}

func (p *voidPromise) SyncContext(_ context.Context) (err error) {
	err = ErrVoidFuture
	return
}
