package async_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/loop"
)

func TestSucceed(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	wg := &sync.WaitGroup{}
	wg.Add(1)
	promise := async.New[int](el)
	_ = promise.Future().OnComplete(func(result int, cause error) {
		t.Log("result:", result, "cause:", cause)
		if result != 1 || cause != nil {
			t.Error("unexpected completion:", result, cause)
		}
		wg.Done()
	})
	promise.Succeed(1)
	wg.Wait()
}

func TestFail(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[int](el)
	promise.Fail(errors.New("failed"))
	future := promise.Future()
	if err := future.Sync(); err == nil {
		t.Error("sync should return the cause")
	}
	if future.IsSucceed() {
		t.Error("future should not be succeed")
	}
}

func TestSingleTerminalTransition(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise, makeErr := async.Make[int](el, async.WithCancelable())
	if makeErr != nil {
		t.Fatal(makeErr)
	}
	wins := atomic.Int64{}
	wg := &sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			if promise.TrySucceed(1) {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if promise.TryFail(errors.New("failed")) {
				wins.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if promise.TryCancel() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := wins.Load(); n != 1 {
		t.Error("expected exactly one terminal transition, got", n)
	}
	if !promise.Future().IsDone() {
		t.Error("future should be done")
	}
}

func TestListenerOrder(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	future := promise.Future()
	locker := &sync.Mutex{}
	var order []int
	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		n := i
		_ = future.OnComplete(func(result string, cause error) {
			locker.Lock()
			order = append(order, n)
			locker.Unlock()
			wg.Done()
		})
	}
	promise.Succeed("done")
	wg.Wait()
	locker.Lock()
	defer locker.Unlock()
	for i, n := range order {
		if i != n {
			t.Fatal("listeners fired out of registration order:", order)
		}
	}
}

func TestListenerAfterCompletion(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	promise.Succeed("done")
	fired := atomic.Int64{}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	_ = promise.Future().OnComplete(func(result string, cause error) {
		fired.Add(1)
		wg.Done()
	})
	wg.Wait()
	if n := fired.Load(); n != 1 {
		t.Error("late listener should fire exactly once, got", n)
	}
}

func TestListenerAddedDuringNotification(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	future := promise.Future()
	wg := &sync.WaitGroup{}
	wg.Add(2)
	depth := atomic.Int64{}
	maxDepth := atomic.Int64{}
	_ = future.OnComplete(func(result string, cause error) {
		d := depth.Add(1)
		if d > maxDepth.Load() {
			maxDepth.Store(d)
		}
		_ = future.OnComplete(func(result string, cause error) {
			d2 := depth.Add(1)
			if d2 > maxDepth.Load() {
				maxDepth.Store(d2)
			}
			depth.Add(-1)
			wg.Done()
		})
		depth.Add(-1)
		wg.Done()
	})
	promise.Succeed("done")
	wg.Wait()
	if maxDepth.Load() > 1 {
		t.Error("nested listener notified recursively")
	}
}

func TestRemoveListener(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	future := promise.Future()
	fired := atomic.Bool{}
	listener := async.ListenerFunc[string](func(result string, cause error) {
		fired.Store(true)
	})
	_ = future.AddListener(listener)
	future.RemoveListener(listener)
	promise.Succeed("done")
	if err := future.Await(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Error("removed listener fired")
	}
}

func TestAwaitTimeout(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	begin := time.Now()
	ok, err := promise.Future().AwaitTimeout(100 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("pending future reported done")
	}
	if elapsed := time.Since(begin); elapsed < 90*time.Millisecond {
		t.Error("await returned too early:", elapsed)
	}
	if promise.IsDone() {
		t.Error("future should still be pending")
	}
}

func TestAwaitContext(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := promise.Future().AwaitContext(ctx)
	if !async.IsInterrupted(err) {
		t.Error("expected interrupted, got", err)
	}
}

func TestDeadlockDetected(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	errs := make(chan error, 3)
	execErr := el.Execute(func() {
		errs <- promise.Future().Await()
		_, timeoutErr := promise.Future().AwaitTimeout(time.Second)
		errs <- timeoutErr
		errs <- promise.Future().Sync()
	})
	if execErr != nil {
		t.Fatal(execErr)
	}
	for i := 0; i < 3; i++ {
		if err := <-errs; !async.IsDeadlock(err) {
			t.Error("expected deadlock error, got", err)
		}
	}
}

func TestTryCancel(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	plain := async.New[string](el)
	if plain.TryCancel() {
		t.Error("plain promise should not be cancellable")
	}
	cancelable, makeErr := async.Make[string](el, async.WithCancelable())
	if makeErr != nil {
		t.Fatal(makeErr)
	}
	if !cancelable.TryCancel() {
		t.Error("cancelable promise should cancel")
	}
	if !cancelable.Future().IsCancelled() {
		t.Error("future should be cancelled")
	}
	if err := cancelable.Future().Sync(); !async.IsCancelled(err) {
		t.Error("sync should return cancellation, got", err)
	}
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	promise := async.New[string](el)
	future := promise.Future()
	wg := &sync.WaitGroup{}
	wg.Add(1)
	_ = future.OnComplete(func(result string, cause error) {
		panic("listener boom")
	})
	_ = future.OnComplete(func(result string, cause error) {
		wg.Done()
	})
	promise.Succeed("done")
	wg.Wait()
}

func TestImmediately(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	succeeded := async.SucceedImmediately[int](el, 42)
	if !succeeded.IsSucceed() || succeeded.Result() != 42 {
		t.Error("succeed immediately broken")
	}
	failed := async.FailedImmediately[int](el, errors.New("failed"))
	if failed.IsSucceed() || failed.Cause() == nil {
		t.Error("failed immediately broken")
	}
}
