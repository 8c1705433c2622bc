package loop

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/eapache/queue"
	"github.com/petermattis/goid"
)

var (
	ErrClosed  = errors.Define("loop: event loop closed")
	ErrNilTask = errors.Define("loop: task is nil")
)

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// EventLoop
// 串行执行器。
//
// 任务按提交顺序在同一协程上串行执行。协程在首次提交时于 rxp.Executors 上惰性启动，
// 关闭后不再接受任务。
type EventLoop struct {
	options    Options
	locker     sync.Mutex
	tasks      *queue.Queue
	wake       chan struct{}
	running    bool
	closed     bool
	goroutine  atomic.Int64
	finishOnce sync.Once
	terminated chan struct{}
}

func New(options ...Option) (el *EventLoop) {
	opts := defaultOptions()
	for _, option := range options {
		option(&opts)
	}
	if opts.Executors == nil {
		opts.Executors = Executors()
	}
	el = &EventLoop{
		options:    opts,
		tasks:      queue.New(),
		wake:       make(chan struct{}, 1),
		terminated: make(chan struct{}),
	}
	return
}

// Execute
// 提交一个任务。
func (el *EventLoop) Execute(task func()) (err error) {
	if task == nil {
		err = ErrNilTask
		return
	}
	el.locker.Lock()
	if el.closed {
		el.locker.Unlock()
		err = ErrClosed
		return
	}
	el.tasks.Add(task)
	started := el.running
	el.running = true
	el.locker.Unlock()
	if started {
		el.signal()
		return
	}
	if execErr := el.options.Executors.Execute(el.options.Ctx, el.run); execErr != nil {
		go el.run()
	}
	return
}

// InExecutor
// 当前协程是否为本执行器的协程。
func (el *EventLoop) InExecutor() (ok bool) {
	ok = goid.Get() == el.goroutine.Load()
	return
}

// Close
// 关闭执行器，丢弃未执行的任务，不等待退出。
func (el *EventLoop) Close() (err error) {
	el.locker.Lock()
	if el.closed {
		el.locker.Unlock()
		return
	}
	el.closed = true
	for el.tasks.Length() > 0 {
		el.tasks.Remove()
	}
	running := el.running
	el.locker.Unlock()
	if running {
		el.signal()
	} else {
		el.finish()
	}
	return
}

// CloseGracefully
// 关闭执行器，执行完已提交的任务后退出。
func (el *EventLoop) CloseGracefully() (err error) {
	el.locker.Lock()
	el.closed = true
	running := el.running
	el.locker.Unlock()
	if running {
		el.signal()
	} else {
		el.finish()
	}
	<-el.terminated
	return
}

func (el *EventLoop) signal() {
	select {
	case el.wake <- struct{}{}:
	default:
	}
}

func (el *EventLoop) finish() {
	el.finishOnce.Do(func() {
		close(el.terminated)
	})
}

func (el *EventLoop) run() {
	el.goroutine.Store(goid.Get())
	for {
		el.locker.Lock()
		if el.tasks.Length() == 0 {
			if el.closed {
				el.running = false
				el.locker.Unlock()
				el.goroutine.Store(0)
				el.finish()
				return
			}
			el.locker.Unlock()
			<-el.wake
			continue
		}
		task := el.tasks.Remove().(func())
		el.locker.Unlock()
		el.invoke(task)
	}
}

func (el *EventLoop) invoke(task func()) {
	defer func() {
		if cause := recover(); cause != nil {
			slog.Error("loop: task panicked", "cause", cause)
		}
	}()
	task()
}
