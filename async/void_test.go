package async_test

import (
	"testing"
	"time"

	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/loop"
)

func TestVoidFuture(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.VoidPromise(el)
	if !async.IsVoid(promise) {
		t.Error("void promise not recognized")
	}
	future := promise.Future()
	if !future.IsDone() || !future.IsSucceed() || future.Cause() != nil {
		t.Error("void future observers broken")
	}
	if err := future.AddListener(async.ListenerFunc[async.Void](func(result async.Void, cause error) {})); !async.IsVoidFuture(err) {
		t.Error("add listener should be rejected, got", err)
	}
	if err := future.Await(); !async.IsVoidFuture(err) {
		t.Error("await should be rejected, got", err)
	}
	if _, err := future.AwaitTimeout(time.Millisecond); !async.IsVoidFuture(err) {
		t.Error("await timeout should be rejected, got", err)
	}
	if err := future.Sync(); !async.IsVoidFuture(err) {
		t.Error("sync should be rejected, got", err)
	}
	// completing is a no-op, the system proceeds normally
	promise.Succeed(async.Void{})
	promise.TryFail(nil)
	if promise.TryCancel() {
		t.Error("void promise should not cancel")
	}
}
