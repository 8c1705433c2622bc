// Package embedded 提供不依赖真实传输的通道实现。
//
// 出站流量被记录在内存里，便于测试处理器与流水线行为。
package embedded

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/brickingsoft/rivet"
	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/loop"
	"github.com/eapache/queue"
	"github.com/google/uuid"
)

type Options struct {
	Loop   *loop.EventLoop
	Logger *slog.Logger
}

type Option func(options *Options)

func WithLoop(el *loop.EventLoop) Option {
	return func(options *Options) {
		if el != nil {
			options.Loop = el
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(options *Options) {
		if logger != nil {
			options.Logger = logger
		}
	}
}

// Channel
// 内存通道。创建即注册并激活。
type Channel struct {
	id         string
	el         *loop.EventLoop
	pipeline   *rivet.Pipeline
	transport  *transport
	active     atomic.Bool
	registered atomic.Bool
}

// New
// 创建内存通道，处理器以生成的名字依次追加。
func New(handlers ...rivet.Handler) (ch *Channel) {
	ch = Make(nil, handlers...)
	return
}

func Make(options []Option, handlers ...rivet.Handler) (ch *Channel) {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Loop == nil {
		opts.Loop = loop.New()
	}
	ch = &Channel{
		id: uuid.NewString(),
		el: opts.Loop,
	}
	ch.transport = &transport{
		ch:       ch,
		pending:  queue.New(),
		outbound: queue.New(),
	}
	var pipelineOptions []rivet.PipelineOption
	if opts.Logger != nil {
		pipelineOptions = append(pipelineOptions, rivet.WithLogger(opts.Logger))
	}
	ch.pipeline = rivet.NewPipeline(ch, pipelineOptions...)
	if err := ch.pipeline.Append(handlers...); err != nil {
		panic(err)
	}
	ch.registered.Store(true)
	ch.pipeline.FireChannelRegistered()
	ch.active.Store(true)
	ch.pipeline.FireChannelActive()
	return
}

func (ch *Channel) ID() (id string) {
	id = ch.id
	return
}

func (ch *Channel) Loop() (el *loop.EventLoop) {
	el = ch.el
	return
}

func (ch *Channel) Pipeline() (pipeline *rivet.Pipeline) {
	pipeline = ch.pipeline
	return
}

func (ch *Channel) Transport() (transport rivet.Transport) {
	transport = ch.transport
	return
}

func (ch *Channel) IsActive() (ok bool) {
	ok = ch.active.Load()
	return
}

func (ch *Channel) IsRegistered() (ok bool) {
	ok = ch.registered.Load()
	return
}

func (ch *Channel) LocalAddr() (addr net.Addr) {
	addr = ch.transport.localAddr()
	return
}

func (ch *Channel) RemoteAddr() (addr net.Addr) {
	addr = ch.transport.remoteAddr()
	return
}

// WriteInbound
// 把消息作为入站读送进流水线，随后触发读完成。
func (ch *Channel) WriteInbound(msgs ...any) {
	for _, msg := range msgs {
		ch.pipeline.FireChannelRead(msg)
	}
	ch.pipeline.FireChannelReadComplete()
}

// ReadOutbound
// 取一条已冲刷的出站消息，无则为 nil。
func (ch *Channel) ReadOutbound() (msg any) {
	msg = ch.transport.readOutbound()
	return
}

func (ch *Channel) OutboundLen() (n int) {
	n = ch.transport.outboundLen()
	return
}

// Settle
// 等待执行器上已排队的任务全部执行完。
func (ch *Channel) Settle() {
	if ch.el.InExecutor() {
		return
	}
	done := make(chan struct{})
	if err := ch.el.Execute(func() { close(done) }); err != nil {
		return
	}
	<-done
}

// Finish
// 关闭通道并优雅关闭其执行器。
func (ch *Channel) Finish() (err error) {
	err = ch.Close().Sync()
	if closeErr := ch.el.CloseGracefully(); closeErr != nil && err == nil {
		err = closeErr
	}
	return
}

// 便捷别名：端点句柄的传播面。

func (ch *Channel) FireChannelRead(msg any) {
	ch.pipeline.FireChannelRead(msg)
}

func (ch *Channel) FireChannelReadComplete() {
	ch.pipeline.FireChannelReadComplete()
}

func (ch *Channel) FireUserEventTriggered(event any) {
	ch.pipeline.FireUserEventTriggered(event)
}

func (ch *Channel) FireExceptionCaught(cause error) {
	ch.pipeline.FireExceptionCaught(cause)
}

func (ch *Channel) Bind(addr net.Addr) (future rivet.Future) {
	future = ch.pipeline.Bind(addr)
	return
}

func (ch *Channel) Connect(remote net.Addr, local net.Addr) (future rivet.Future) {
	future = ch.pipeline.Connect(remote, local)
	return
}

func (ch *Channel) Disconnect() (future rivet.Future) {
	future = ch.pipeline.Disconnect()
	return
}

func (ch *Channel) Close() (future rivet.Future) {
	future = ch.pipeline.Close()
	return
}

func (ch *Channel) Deregister() (future rivet.Future) {
	future = ch.pipeline.Deregister()
	return
}

func (ch *Channel) Read() {
	ch.pipeline.Read()
}

func (ch *Channel) Write(msg any) (future rivet.Future) {
	future = ch.pipeline.Write(msg)
	return
}

func (ch *Channel) Flush() {
	ch.pipeline.Flush()
}

func (ch *Channel) WriteAndFlush(msg any) (future rivet.Future) {
	future = ch.pipeline.WriteAndFlush(msg)
	return
}

type pendingWrite struct {
	msg     any
	promise rivet.Promise
}

// transport 把出站操作落到内存队列。
type transport struct {
	ch       *Channel
	locker   sync.Mutex
	local    net.Addr
	remote   net.Addr
	pending  *queue.Queue
	outbound *queue.Queue
}

func (t *transport) localAddr() (addr net.Addr) {
	t.locker.Lock()
	addr = t.local
	t.locker.Unlock()
	return
}

func (t *transport) remoteAddr() (addr net.Addr) {
	t.locker.Lock()
	addr = t.remote
	t.locker.Unlock()
	return
}

func (t *transport) readOutbound() (msg any) {
	t.locker.Lock()
	if t.outbound.Length() > 0 {
		msg = t.outbound.Remove()
	}
	t.locker.Unlock()
	return
}

func (t *transport) outboundLen() (n int) {
	t.locker.Lock()
	n = t.outbound.Length()
	t.locker.Unlock()
	return
}

func (t *transport) Bind(addr net.Addr, promise rivet.Promise) {
	t.locker.Lock()
	t.local = addr
	t.locker.Unlock()
	promise.TrySucceed(async.Void{})
}

func (t *transport) Connect(remote net.Addr, local net.Addr, promise rivet.Promise) {
	t.locker.Lock()
	t.remote = remote
	if local != nil {
		t.local = local
	}
	t.locker.Unlock()
	promise.TrySucceed(async.Void{})
}

func (t *transport) Disconnect(promise rivet.Promise) {
	if t.ch.active.CompareAndSwap(true, false) {
		t.ch.pipeline.FireChannelInactive()
	}
	promise.TrySucceed(async.Void{})
}

func (t *transport) Close(promise rivet.Promise) {
	if t.ch.active.CompareAndSwap(true, false) {
		t.ch.pipeline.FireChannelInactive()
	}
	if t.ch.registered.CompareAndSwap(true, false) {
		t.ch.pipeline.FireChannelUnregistered()
	}
	promise.TrySucceed(async.Void{})
}

func (t *transport) Deregister(promise rivet.Promise) {
	if t.ch.registered.CompareAndSwap(true, false) {
		t.ch.pipeline.FireChannelUnregistered()
	}
	promise.TrySucceed(async.Void{})
}

func (t *transport) BeginRead() (err error) {
	return
}

func (t *transport) Write(msg any, promise rivet.Promise) {
	t.locker.Lock()
	t.pending.Add(pendingWrite{msg: msg, promise: promise})
	t.locker.Unlock()
}

func (t *transport) Flush() {
	var flushed []pendingWrite
	t.locker.Lock()
	for t.pending.Length() > 0 {
		write := t.pending.Remove().(pendingWrite)
		t.outbound.Add(write.msg)
		flushed = append(flushed, write)
	}
	t.locker.Unlock()
	for _, write := range flushed {
		write.promise.TrySucceed(async.Void{})
	}
}
