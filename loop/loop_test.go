package loop_test

import (
	"sync"
	"testing"

	"github.com/brickingsoft/rivet/loop"
)

func TestExecuteOrder(t *testing.T) {
	el := loop.New()
	locker := &sync.Mutex{}
	var order []int
	wg := &sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		n := i
		wg.Add(1)
		if err := el.Execute(func() {
			locker.Lock()
			order = append(order, n)
			locker.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	for i, n := range order {
		if i != n {
			t.Fatal("tasks ran out of submission order")
		}
	}
	if err := el.CloseGracefully(); err != nil {
		t.Error(err)
	}
}

func TestInExecutor(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	if el.InExecutor() {
		t.Error("caller goroutine misdetected as the loop")
	}
	result := make(chan bool, 1)
	if err := el.Execute(func() {
		result <- el.InExecutor()
	}); err != nil {
		t.Fatal(err)
	}
	if !<-result {
		t.Error("loop goroutine not detected")
	}
}

func TestExecuteAfterClose(t *testing.T) {
	el := loop.New()
	if err := el.CloseGracefully(); err != nil {
		t.Fatal(err)
	}
	if err := el.Execute(func() {}); !loop.IsClosed(err) {
		t.Error("expected closed error, got", err)
	}
}

func TestTaskPanicDoesNotKillLoop(t *testing.T) {
	el := loop.New()
	defer el.CloseGracefully()
	done := make(chan struct{})
	_ = el.Execute(func() {
		panic("task boom")
	})
	if err := el.Execute(func() {
		close(done)
	}); err != nil {
		t.Fatal(err)
	}
	<-done
}

func TestGroupNext(t *testing.T) {
	group := loop.NewGroup(3)
	defer group.CloseGracefully()
	if group.Size() != 3 {
		t.Fatal("group size broken")
	}
	first := group.Next()
	second := group.Next()
	third := group.Next()
	if first == second || second == third || first == third {
		t.Error("round robin should hand out distinct loops")
	}
	if group.Next() != first {
		t.Error("round robin should wrap around")
	}
}
