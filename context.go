package rivet

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/pkg/reference"
	"github.com/eapache/queue"
)

const (
	stateAddPending int32 = iota
	stateAdded
	stateRemoved
)

// HandlerContext
// 处理器与流水线之间的节点。
//
// 持有名字、能力掩码、钉选的执行器和前后链接。处理器方法只会在钉选的
// 执行器上运行。上下文按 addPending、added、removed 的顺序迁移状态，
// removed 后不再重新链接；链接在移除后保留，用于转发竞态中已指向它的事件。
type HandlerContext struct {
	name     string
	pipeline *Pipeline
	handler  Handler
	executor async.Executor
	mask     uint32
	prev     atomic.Pointer[HandlerContext]
	next     atomic.Pointer[HandlerContext]
	state    atomic.Int32
	// pending buffers events that arrived before HandlerAdded completed.
	// Touched only on the executor goroutine.
	pending *queue.Queue
}

func newHandlerContext(pipeline *Pipeline, name string, handler Handler, executor async.Executor) (ctx *HandlerContext) {
	ctx = &HandlerContext{
		name:     name,
		pipeline: pipeline,
		handler:  handler,
		executor: executor,
		mask:     maskOf(handler),
	}
	return
}

func (c *HandlerContext) Name() (name string) {
	name = c.name
	return
}

func (c *HandlerContext) Handler() (handler Handler) {
	handler = c.handler
	return
}

func (c *HandlerContext) Pipeline() (pipeline *Pipeline) {
	pipeline = c.pipeline
	return
}

func (c *HandlerContext) Channel() (ch Channel) {
	ch = c.pipeline.channel
	return
}

func (c *HandlerContext) Executor() (executor async.Executor) {
	executor = c.executor
	return
}

func (c *HandlerContext) IsRemoved() (ok bool) {
	ok = c.state.Load() == stateRemoved
	return
}

// NewPromise
// 新建一个绑定通道执行器的许诺。
func (c *HandlerContext) NewPromise() (promise Promise) {
	promise = c.pipeline.NewPromise()
	return
}

func (c *HandlerContext) VoidPromise() (promise Promise) {
	promise = c.pipeline.VoidPromise()
	return
}

// 链上查找：从邻接链接出发跳过掩码位未置位的上下文。尾哨兵的掩码含全部入站位，
// 头哨兵的掩码含全部出站位，向尾与向头的查找分别止于它们。

func (c *HandlerContext) findInbound(flag uint32) (ctx *HandlerContext) {
	ctx = c.next.Load()
	for ctx.mask&flag == 0 {
		ctx = ctx.next.Load()
	}
	return
}

func (c *HandlerContext) findOutbound(flag uint32) (ctx *HandlerContext) {
	ctx = c.prev.Load()
	for ctx.mask&flag == 0 {
		ctx = ctx.prev.Load()
	}
	return
}

// invocable reports whether the handler may run now.
// addPending buffers the replay for after HandlerAdded; removed lets the
// caller forward through the preserved links.
func (c *HandlerContext) invocable(replay func()) (ok bool) {
	switch c.state.Load() {
	case stateAdded:
		ok = true
	case stateAddPending:
		if c.pending == nil {
			c.pending = queue.New()
		}
		c.pending.Add(replay)
	default:
	}
	return
}

// drainPending runs on the executor goroutine after the lifecycle callback.
func (c *HandlerContext) drainPending() {
	for c.pending != nil && c.pending.Length() > 0 {
		task := c.pending.Remove().(func())
		task()
	}
}

func protect(fn func() error) (err error) {
	defer func() {
		if cause := recover(); cause != nil {
			switch e := cause.(type) {
			case error:
				err = errors.From(ErrHandler, errors.WithWrap(e))
			default:
				err = errors.From(ErrHandler, errors.WithWrap(errors.New(fmt.Sprintf("%+v", cause))))
			}
		}
	}()
	if cause := fn(); cause != nil {
		err = errors.From(ErrHandler, errors.WithWrap(cause))
	}
	return
}

// notifyHandlerException converts an inbound dispatch failure into an
// ExceptionCaught event starting at the next capable context.
// A failure at the tail has nowhere to travel and is only logged.
func (c *HandlerContext) notifyHandlerException(cause error) {
	if c == c.pipeline.tail {
		c.pipeline.logger.Warn("rivet: exception at the tail", "cause", cause)
		return
	}
	c.FireExceptionCaught(cause)
}

// 入站。

func (c *HandlerContext) FireChannelRegistered() {
	invokeChannelRegistered(c.findInbound(maskChannelRegistered))
}

func invokeChannelRegistered(ctx *HandlerContext) {
	dispatch(ctx, func() { ctx.invokeChannelRegistered() })
}

func (c *HandlerContext) invokeChannelRegistered() {
	if !c.invocable(c.invokeChannelRegistered) {
		if c.IsRemoved() {
			c.FireChannelRegistered()
		}
		return
	}
	handler := c.handler.(ChannelRegisteredHandler)
	if err := protect(func() error { return handler.ChannelRegistered(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireChannelActive() {
	invokeChannelActive(c.findInbound(maskChannelActive))
}

func invokeChannelActive(ctx *HandlerContext) {
	dispatch(ctx, func() { ctx.invokeChannelActive() })
}

func (c *HandlerContext) invokeChannelActive() {
	if !c.invocable(c.invokeChannelActive) {
		if c.IsRemoved() {
			c.FireChannelActive()
		}
		return
	}
	handler := c.handler.(ChannelActiveHandler)
	if err := protect(func() error { return handler.ChannelActive(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireChannelRead(msg any) {
	ctx := c.findInbound(maskChannelRead)
	dispatchMsg(ctx, msg, func() { ctx.invokeChannelRead(msg) })
}

func (c *HandlerContext) invokeChannelRead(msg any) {
	if !c.invocable(func() { c.invokeChannelRead(msg) }) {
		if c.IsRemoved() {
			c.FireChannelRead(msg)
		}
		return
	}
	handler := c.handler.(ChannelReadHandler)
	if err := protect(func() error { return handler.ChannelRead(c, msg) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireChannelReadComplete() {
	ctx := c.findInbound(maskChannelReadComplete)
	dispatch(ctx, func() { ctx.invokeChannelReadComplete() })
}

func (c *HandlerContext) invokeChannelReadComplete() {
	if !c.invocable(c.invokeChannelReadComplete) {
		if c.IsRemoved() {
			c.FireChannelReadComplete()
		}
		return
	}
	handler := c.handler.(ChannelReadCompleteHandler)
	if err := protect(func() error { return handler.ChannelReadComplete(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireUserEventTriggered(event any) {
	ctx := c.findInbound(maskUserEventTriggered)
	dispatchMsg(ctx, event, func() { ctx.invokeUserEventTriggered(event) })
}

func (c *HandlerContext) invokeUserEventTriggered(event any) {
	if !c.invocable(func() { c.invokeUserEventTriggered(event) }) {
		if c.IsRemoved() {
			c.FireUserEventTriggered(event)
		}
		return
	}
	handler := c.handler.(UserEventTriggeredHandler)
	if err := protect(func() error { return handler.UserEventTriggered(c, event) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireChannelWritabilityChanged() {
	ctx := c.findInbound(maskChannelWritabilityChanged)
	dispatch(ctx, func() { ctx.invokeChannelWritabilityChanged() })
}

func (c *HandlerContext) invokeChannelWritabilityChanged() {
	if !c.invocable(c.invokeChannelWritabilityChanged) {
		if c.IsRemoved() {
			c.FireChannelWritabilityChanged()
		}
		return
	}
	handler := c.handler.(ChannelWritabilityChangedHandler)
	if err := protect(func() error { return handler.ChannelWritabilityChanged(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireExceptionCaught(cause error) {
	ctx := c.findInbound(maskExceptionCaught)
	dispatch(ctx, func() { ctx.invokeExceptionCaught(cause) })
}

// invokeExceptionCaught logs and swallows failures of ExceptionCaught itself.
func (c *HandlerContext) invokeExceptionCaught(cause error) {
	if !c.invocable(func() { c.invokeExceptionCaught(cause) }) {
		if c.IsRemoved() {
			c.FireExceptionCaught(cause)
		}
		return
	}
	handler := c.handler.(ExceptionCaughtHandler)
	if err := protect(func() error { return handler.ExceptionCaught(c, cause) }); err != nil {
		c.pipeline.logger.Warn("rivet: ExceptionCaught failed",
			"name", c.name, "cause", err, "original", cause)
	}
}

func (c *HandlerContext) FireChannelInactive() {
	invokeChannelInactive(c.findInbound(maskChannelInactive))
}

func invokeChannelInactive(ctx *HandlerContext) {
	dispatch(ctx, func() { ctx.invokeChannelInactive() })
}

func (c *HandlerContext) invokeChannelInactive() {
	if !c.invocable(c.invokeChannelInactive) {
		if c.IsRemoved() {
			c.FireChannelInactive()
		}
		return
	}
	handler := c.handler.(ChannelInactiveHandler)
	if err := protect(func() error { return handler.ChannelInactive(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) FireChannelUnregistered() {
	invokeChannelUnregistered(c.findInbound(maskChannelUnregistered))
}

func invokeChannelUnregistered(ctx *HandlerContext) {
	dispatch(ctx, func() { ctx.invokeChannelUnregistered() })
}

func (c *HandlerContext) invokeChannelUnregistered() {
	if !c.invocable(c.invokeChannelUnregistered) {
		if c.IsRemoved() {
			c.FireChannelUnregistered()
		}
		return
	}
	handler := c.handler.(ChannelUnregisteredHandler)
	if err := protect(func() error { return handler.ChannelUnregistered(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

// dispatch runs the invocation inline when already on the target executor,
// otherwise enqueues it as an independent task.
func dispatch(ctx *HandlerContext, invocation func()) {
	if ctx.executor.InExecutor() {
		invocation()
		return
	}
	if err := ctx.executor.Execute(invocation); err != nil {
		ctx.pipeline.logger.Warn("rivet: inbound dispatch failed", "name", ctx.name, "cause", err)
	}
}

// dispatchMsg transfers message ownership to the task; a failed hand-off
// releases the message.
func dispatchMsg(ctx *HandlerContext, msg any, invocation func()) {
	if ctx.executor.InExecutor() {
		invocation()
		return
	}
	if err := ctx.executor.Execute(invocation); err != nil {
		reference.Release(msg)
		ctx.pipeline.logger.Warn("rivet: inbound dispatch failed", "name", ctx.name, "cause", err)
	}
}

// 出站。

func (c *HandlerContext) Bind(addr net.Addr) (future Future) {
	future = c.BindWith(addr, c.NewPromise())
	return
}

func (c *HandlerContext) BindWith(addr net.Addr, promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	if addr == nil {
		promise.TryFail(ErrNilArgument)
		return
	}
	ctx := c.findOutbound(maskBind)
	dispatchOutbound(ctx, promise, func() { ctx.invokeBind(addr, promise) })
	return
}

func (c *HandlerContext) invokeBind(addr net.Addr, promise Promise) {
	if !c.invocable(func() { c.invokeBind(addr, promise) }) {
		if c.IsRemoved() {
			c.BindWith(addr, promise)
		}
		return
	}
	handler := c.handler.(BindHandler)
	if err := protect(func() error { return handler.Bind(c, addr, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Connect(remote net.Addr, local net.Addr) (future Future) {
	future = c.ConnectWith(remote, local, c.NewPromise())
	return
}

func (c *HandlerContext) ConnectWith(remote net.Addr, local net.Addr, promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	if remote == nil {
		promise.TryFail(ErrNilArgument)
		return
	}
	ctx := c.findOutbound(maskConnect)
	dispatchOutbound(ctx, promise, func() { ctx.invokeConnect(remote, local, promise) })
	return
}

func (c *HandlerContext) invokeConnect(remote net.Addr, local net.Addr, promise Promise) {
	if !c.invocable(func() { c.invokeConnect(remote, local, promise) }) {
		if c.IsRemoved() {
			c.ConnectWith(remote, local, promise)
		}
		return
	}
	handler := c.handler.(ConnectHandler)
	if err := protect(func() error { return handler.Connect(c, remote, local, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Disconnect() (future Future) {
	future = c.DisconnectWith(c.NewPromise())
	return
}

func (c *HandlerContext) DisconnectWith(promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	ctx := c.findOutbound(maskDisconnect)
	dispatchOutbound(ctx, promise, func() { ctx.invokeDisconnect(promise) })
	return
}

func (c *HandlerContext) invokeDisconnect(promise Promise) {
	if !c.invocable(func() { c.invokeDisconnect(promise) }) {
		if c.IsRemoved() {
			c.DisconnectWith(promise)
		}
		return
	}
	handler := c.handler.(DisconnectHandler)
	if err := protect(func() error { return handler.Disconnect(c, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Close() (future Future) {
	future = c.CloseWith(c.NewPromise())
	return
}

func (c *HandlerContext) CloseWith(promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	ctx := c.findOutbound(maskClose)
	dispatchOutbound(ctx, promise, func() { ctx.invokeClose(promise) })
	return
}

func (c *HandlerContext) invokeClose(promise Promise) {
	if !c.invocable(func() { c.invokeClose(promise) }) {
		if c.IsRemoved() {
			c.CloseWith(promise)
		}
		return
	}
	handler := c.handler.(CloseHandler)
	if err := protect(func() error { return handler.Close(c, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Deregister() (future Future) {
	future = c.DeregisterWith(c.NewPromise())
	return
}

func (c *HandlerContext) DeregisterWith(promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	ctx := c.findOutbound(maskDeregister)
	dispatchOutbound(ctx, promise, func() { ctx.invokeDeregister(promise) })
	return
}

func (c *HandlerContext) invokeDeregister(promise Promise) {
	if !c.invocable(func() { c.invokeDeregister(promise) }) {
		if c.IsRemoved() {
			c.DeregisterWith(promise)
		}
		return
	}
	handler := c.handler.(DeregisterHandler)
	if err := protect(func() error { return handler.Deregister(c, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Read() {
	ctx := c.findOutbound(maskRead)
	dispatch(ctx, func() { ctx.invokeRead() })
}

func (c *HandlerContext) invokeRead() {
	if !c.invocable(c.invokeRead) {
		if c.IsRemoved() {
			c.Read()
		}
		return
	}
	handler := c.handler.(ReadHandler)
	if err := protect(func() error { return handler.Read(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) Write(msg any) (future Future) {
	future = c.WriteWith(msg, c.NewPromise())
	return
}

func (c *HandlerContext) WriteWith(msg any, promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	if msg == nil {
		promise.TryFail(ErrNilArgument)
		return
	}
	ctx := c.findOutbound(maskWrite)
	dispatchOutboundMsg(ctx, msg, promise, func() { ctx.invokeWrite(msg, promise) })
	return
}

func (c *HandlerContext) invokeWrite(msg any, promise Promise) {
	if !c.invocable(func() { c.invokeWrite(msg, promise) }) {
		if c.IsRemoved() {
			c.WriteWith(msg, promise)
		}
		return
	}
	handler, ok := c.handler.(WriteHandler)
	if !ok {
		// reached through the fused write-and-flush mask
		c.WriteWith(msg, promise)
		return
	}
	if err := protect(func() error { return handler.Write(c, msg, promise) }); err != nil {
		promise.TryFail(err)
	}
}

func (c *HandlerContext) Flush() {
	ctx := c.findOutbound(maskFlush)
	dispatch(ctx, func() { ctx.invokeFlush() })
}

func (c *HandlerContext) invokeFlush() {
	if !c.invocable(c.invokeFlush) {
		if c.IsRemoved() {
			c.Flush()
		}
		return
	}
	handler, ok := c.handler.(FlushHandler)
	if !ok {
		c.Flush()
		return
	}
	if err := protect(func() error { return handler.Flush(c) }); err != nil {
		c.notifyHandlerException(err)
	}
}

func (c *HandlerContext) WriteAndFlush(msg any) (future Future) {
	future = c.WriteAndFlushWith(msg, c.NewPromise())
	return
}

// WriteAndFlushWith
// 写入并冲刷。两步在每一跳上保持先写后刷的顺序。
func (c *HandlerContext) WriteAndFlushWith(msg any, promise Promise) (future Future) {
	if promise == nil {
		promise = c.NewPromise()
	}
	future = promise.Future()
	if msg == nil {
		promise.TryFail(ErrNilArgument)
		return
	}
	ctx := c.findOutbound(maskWrite | maskFlush)
	dispatchOutboundMsg(ctx, msg, promise, func() {
		ctx.invokeWrite(msg, promise)
		ctx.invokeFlush()
	})
	return
}

func dispatchOutbound(ctx *HandlerContext, promise Promise, invocation func()) {
	if ctx.executor.InExecutor() {
		invocation()
		return
	}
	if err := ctx.executor.Execute(invocation); err != nil {
		promise.TryFail(errors.From(ErrIllegalState, errors.WithWrap(err)))
	}
}

func dispatchOutboundMsg(ctx *HandlerContext, msg any, promise Promise, invocation func()) {
	if ctx.executor.InExecutor() {
		invocation()
		return
	}
	if err := ctx.executor.Execute(invocation); err != nil {
		reference.Release(msg)
		promise.TryFail(errors.From(ErrIllegalState, errors.WithWrap(err)))
	}
}
