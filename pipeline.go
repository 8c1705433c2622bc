package rivet

import (
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"strings"
	"sync"

	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/pkg/attrs"
)

// Pipeline
// 处理器上下文的双链，由头尾哨兵括起。
//
// 变更操作对任意协程安全：链表在内部监视器下同步更新，受影响上下文的
// 生命周期回调被递延到其执行器上执行。观察操作读取一致的快照。
//
// 注意：为处理器指定辅助执行器会在该处打断跨处理器的严格顺序，
// 事件在不同边界排队后可能相互重排；单个边界内提交顺序保持不变。
type Pipeline struct {
	channel    Channel
	logger     *slog.Logger
	locker     sync.Mutex
	head       *HandlerContext
	tail       *HandlerContext
	attributes attrs.Map
	void       Promise
	generated  uint64
}

type PipelineOption func(pipeline *Pipeline)

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(pipeline *Pipeline) {
		if logger != nil {
			pipeline.logger = logger
		}
	}
}

// NewPipeline
// 为通道创建流水线。通道与流水线一对一，同生共死。
func NewPipeline(channel Channel, options ...PipelineOption) (pipeline *Pipeline) {
	if channel == nil {
		panic(ErrNilArgument)
	}
	pipeline = &Pipeline{
		channel: channel,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(pipeline)
	}
	pipeline.head = newHandlerContext(pipeline, "head", headHandler{}, channel.Loop())
	pipeline.tail = newHandlerContext(pipeline, "tail", tailHandler{}, channel.Loop())
	pipeline.head.state.Store(stateAdded)
	pipeline.tail.state.Store(stateAdded)
	pipeline.head.next.Store(pipeline.tail)
	pipeline.tail.prev.Store(pipeline.head)
	pipeline.void = async.VoidPromise(channel.Loop())
	return
}

func (p *Pipeline) Channel() (channel Channel) {
	channel = p.channel
	return
}

func (p *Pipeline) Attributes() (attributes *attrs.Map) {
	attributes = &p.attributes
	return
}

// NewPromise
// 新建一个绑定通道执行器的许诺。
func (p *Pipeline) NewPromise() (promise Promise) {
	promise = async.New[async.Void](p.channel.Loop())
	return
}

// VoidPromise
// 放弃完成跟踪的许诺，整条流水线共享一个实例。
func (p *Pipeline) VoidPromise() (promise Promise) {
	promise = p.void
	return
}

// 变更。

func (p *Pipeline) AddFirst(name string, handler Handler, options ...AddOption) (err error) {
	err = p.add(name, handler, options, func(ctx *HandlerContext) error {
		spliceAfter(p.head, ctx)
		return nil
	})
	return
}

func (p *Pipeline) AddLast(name string, handler Handler, options ...AddOption) (err error) {
	err = p.add(name, handler, options, func(ctx *HandlerContext) error {
		spliceBefore(p.tail, ctx)
		return nil
	})
	return
}

func (p *Pipeline) AddBefore(base string, name string, handler Handler, options ...AddOption) (err error) {
	err = p.add(name, handler, options, func(ctx *HandlerContext) error {
		at := p.context0(base)
		if at == nil {
			return ErrNotFound
		}
		spliceBefore(at, ctx)
		return nil
	})
	return
}

func (p *Pipeline) AddAfter(base string, name string, handler Handler, options ...AddOption) (err error) {
	err = p.add(name, handler, options, func(ctx *HandlerContext) error {
		at := p.context0(base)
		if at == nil {
			return ErrNotFound
		}
		spliceAfter(at, ctx)
		return nil
	})
	return
}

// Append
// 以生成的名字逐个追加到尾部。
func (p *Pipeline) Append(handlers ...Handler) (err error) {
	for _, handler := range handlers {
		if err = p.AddLast("", handler); err != nil {
			return
		}
	}
	return
}

func (p *Pipeline) add(name string, handler Handler, options []AddOption, splice func(ctx *HandlerContext) error) (err error) {
	if handler == nil {
		err = ErrNilArgument
		return
	}
	opts := AddOptions{}
	for _, option := range options {
		option(&opts)
	}
	executor := opts.Executor
	if executor == nil {
		executor = p.channel.Loop()
	}
	if !isSharable(handler) && !markInUse(handler) {
		err = ErrIllegalState
		return
	}
	p.locker.Lock()
	if name == "" {
		name = p.generateName(handler)
	} else if p.context0(name) != nil {
		p.locker.Unlock()
		unmarkInUse(handler)
		err = ErrDuplicateName
		return
	}
	ctx := newHandlerContext(p, name, handler, executor)
	if spliceErr := splice(ctx); spliceErr != nil {
		p.locker.Unlock()
		unmarkInUse(handler)
		err = spliceErr
		return
	}
	p.locker.Unlock()
	p.callHandlerAdded(ctx)
	return
}

func (p *Pipeline) Remove(name string) (handler Handler, err error) {
	p.locker.Lock()
	ctx := p.context0(name)
	if ctx == nil {
		p.locker.Unlock()
		err = ErrNotFound
		return
	}
	unlink(ctx)
	p.locker.Unlock()
	handler = ctx.handler
	p.callHandlerRemoved(ctx)
	return
}

func (p *Pipeline) RemoveHandler(handler Handler) (err error) {
	if handler == nil {
		err = ErrNilArgument
		return
	}
	p.locker.Lock()
	ctx := p.contextOf0(handler)
	if ctx == nil {
		p.locker.Unlock()
		err = ErrNotFound
		return
	}
	unlink(ctx)
	p.locker.Unlock()
	p.callHandlerRemoved(ctx)
	return
}

func (p *Pipeline) RemoveFirst() (handler Handler, err error) {
	p.locker.Lock()
	ctx := p.head.next.Load()
	if ctx == p.tail {
		p.locker.Unlock()
		err = ErrNotFound
		return
	}
	unlink(ctx)
	p.locker.Unlock()
	handler = ctx.handler
	p.callHandlerRemoved(ctx)
	return
}

func (p *Pipeline) RemoveLast() (handler Handler, err error) {
	p.locker.Lock()
	ctx := p.tail.prev.Load()
	if ctx == p.head {
		p.locker.Unlock()
		err = ErrNotFound
		return
	}
	unlink(ctx)
	p.locker.Unlock()
	handler = ctx.handler
	p.callHandlerRemoved(ctx)
	return
}

// Replace
// 以新处理器原位替换。新上下文沿用旧者的执行器，除非显式指定。
func (p *Pipeline) Replace(oldName string, newName string, handler Handler, options ...AddOption) (old Handler, err error) {
	if handler == nil {
		err = ErrNilArgument
		return
	}
	opts := AddOptions{}
	for _, option := range options {
		option(&opts)
	}
	if !isSharable(handler) && !markInUse(handler) {
		err = ErrIllegalState
		return
	}
	p.locker.Lock()
	oldCtx := p.context0(oldName)
	if oldCtx == nil {
		p.locker.Unlock()
		unmarkInUse(handler)
		err = ErrNotFound
		return
	}
	if newName == "" {
		newName = p.generateName(handler)
	} else if newName != oldName && p.context0(newName) != nil {
		p.locker.Unlock()
		unmarkInUse(handler)
		err = ErrDuplicateName
		return
	}
	executor := opts.Executor
	if executor == nil {
		executor = oldCtx.executor
	}
	newCtx := newHandlerContext(p, newName, handler, executor)
	replaceLinks(oldCtx, newCtx)
	p.locker.Unlock()
	old = oldCtx.handler
	p.callHandlerAdded(newCtx)
	p.callHandlerRemoved(oldCtx)
	return
}

// 观察。

func (p *Pipeline) Get(name string) (handler Handler) {
	p.locker.Lock()
	if ctx := p.context0(name); ctx != nil {
		handler = ctx.handler
	}
	p.locker.Unlock()
	return
}

func (p *Pipeline) Context(name string) (ctx *HandlerContext) {
	p.locker.Lock()
	ctx = p.context0(name)
	p.locker.Unlock()
	return
}

func (p *Pipeline) ContextOf(handler Handler) (ctx *HandlerContext) {
	p.locker.Lock()
	ctx = p.contextOf0(handler)
	p.locker.Unlock()
	return
}

func (p *Pipeline) First() (handler Handler) {
	if ctx := p.FirstContext(); ctx != nil {
		handler = ctx.handler
	}
	return
}

func (p *Pipeline) FirstContext() (ctx *HandlerContext) {
	p.locker.Lock()
	if first := p.head.next.Load(); first != p.tail {
		ctx = first
	}
	p.locker.Unlock()
	return
}

func (p *Pipeline) Last() (handler Handler) {
	if ctx := p.LastContext(); ctx != nil {
		handler = ctx.handler
	}
	return
}

func (p *Pipeline) LastContext() (ctx *HandlerContext) {
	p.locker.Lock()
	if last := p.tail.prev.Load(); last != p.head {
		ctx = last
	}
	p.locker.Unlock()
	return
}

func (p *Pipeline) Names() (names []string) {
	p.locker.Lock()
	for ctx := p.head.next.Load(); ctx != p.tail; ctx = ctx.next.Load() {
		names = append(names, ctx.name)
	}
	p.locker.Unlock()
	return
}

func (p *Pipeline) ToMap() (handlers map[string]Handler) {
	handlers = make(map[string]Handler)
	p.locker.Lock()
	for ctx := p.head.next.Load(); ctx != p.tail; ctx = ctx.next.Load() {
		handlers[ctx.name] = ctx.handler
	}
	p.locker.Unlock()
	return
}

// 入站入口，由传输调用，自头部开始。

func (p *Pipeline) FireChannelRegistered() {
	dispatch(p.head, p.head.invokeChannelRegistered)
}

func (p *Pipeline) FireChannelActive() {
	dispatch(p.head, p.head.invokeChannelActive)
}

func (p *Pipeline) FireChannelRead(msg any) {
	head := p.head
	dispatchMsg(head, msg, func() { head.invokeChannelRead(msg) })
}

func (p *Pipeline) FireChannelReadComplete() {
	dispatch(p.head, p.head.invokeChannelReadComplete)
}

func (p *Pipeline) FireUserEventTriggered(event any) {
	head := p.head
	dispatchMsg(head, event, func() { head.invokeUserEventTriggered(event) })
}

func (p *Pipeline) FireChannelWritabilityChanged() {
	dispatch(p.head, p.head.invokeChannelWritabilityChanged)
}

func (p *Pipeline) FireExceptionCaught(cause error) {
	head := p.head
	dispatch(head, func() { head.invokeExceptionCaught(cause) })
}

func (p *Pipeline) FireChannelInactive() {
	dispatch(p.head, p.head.invokeChannelInactive)
}

func (p *Pipeline) FireChannelUnregistered() {
	dispatch(p.head, p.head.invokeChannelUnregistered)
}

// 出站入口，自尾部开始。

func (p *Pipeline) Bind(addr net.Addr) (future Future) {
	future = p.tail.Bind(addr)
	return
}

func (p *Pipeline) BindWith(addr net.Addr, promise Promise) (future Future) {
	future = p.tail.BindWith(addr, promise)
	return
}

func (p *Pipeline) Connect(remote net.Addr, local net.Addr) (future Future) {
	future = p.tail.Connect(remote, local)
	return
}

func (p *Pipeline) ConnectWith(remote net.Addr, local net.Addr, promise Promise) (future Future) {
	future = p.tail.ConnectWith(remote, local, promise)
	return
}

func (p *Pipeline) Disconnect() (future Future) {
	future = p.tail.Disconnect()
	return
}

func (p *Pipeline) DisconnectWith(promise Promise) (future Future) {
	future = p.tail.DisconnectWith(promise)
	return
}

func (p *Pipeline) Close() (future Future) {
	future = p.tail.Close()
	return
}

func (p *Pipeline) CloseWith(promise Promise) (future Future) {
	future = p.tail.CloseWith(promise)
	return
}

func (p *Pipeline) Deregister() (future Future) {
	future = p.tail.Deregister()
	return
}

func (p *Pipeline) DeregisterWith(promise Promise) (future Future) {
	future = p.tail.DeregisterWith(promise)
	return
}

func (p *Pipeline) Read() {
	p.tail.Read()
}

func (p *Pipeline) Write(msg any) (future Future) {
	future = p.tail.Write(msg)
	return
}

func (p *Pipeline) WriteWith(msg any, promise Promise) (future Future) {
	future = p.tail.WriteWith(msg, promise)
	return
}

func (p *Pipeline) Flush() {
	p.tail.Flush()
}

func (p *Pipeline) WriteAndFlush(msg any) (future Future) {
	future = p.tail.WriteAndFlush(msg)
	return
}

func (p *Pipeline) WriteAndFlushWith(msg any, promise Promise) (future Future) {
	future = p.tail.WriteAndFlushWith(msg, promise)
	return
}

// 生命周期回调的递延与执行。

func (p *Pipeline) callHandlerAdded(ctx *HandlerContext) {
	if ctx.executor.InExecutor() {
		p.callHandlerAdded0(ctx)
		return
	}
	if err := ctx.executor.Execute(func() { p.callHandlerAdded0(ctx) }); err != nil {
		p.logger.Warn("rivet: schedule HandlerAdded failed", "name", ctx.name, "cause", err)
	}
}

func (p *Pipeline) callHandlerAdded0(ctx *HandlerContext) {
	var failure error
	if h, ok := ctx.handler.(AddedHandler); ok {
		failure = protect(func() error { return h.HandlerAdded(ctx) })
	}
	if failure == nil {
		ctx.state.Store(stateAdded)
		ctx.drainPending()
		return
	}
	p.locker.Lock()
	unlink(ctx)
	p.locker.Unlock()
	p.callHandlerRemoved0(ctx)
	ctx.drainPending()
	p.FireExceptionCaught(failure)
}

func (p *Pipeline) callHandlerRemoved(ctx *HandlerContext) {
	if ctx.executor.InExecutor() {
		p.callHandlerRemoved0(ctx)
		return
	}
	if err := ctx.executor.Execute(func() { p.callHandlerRemoved0(ctx) }); err != nil {
		p.logger.Warn("rivet: schedule HandlerRemoved failed", "name", ctx.name, "cause", err)
		ctx.state.Store(stateRemoved)
		unmarkInUse(ctx.handler)
	}
}

func (p *Pipeline) callHandlerRemoved0(ctx *HandlerContext) {
	if h, ok := ctx.handler.(RemovedHandler); ok {
		if err := protect(func() error { return h.HandlerRemoved(ctx) }); err != nil {
			p.logger.Warn("rivet: HandlerRemoved failed", "name", ctx.name, "cause", err)
		}
	}
	ctx.state.Store(stateRemoved)
	unmarkInUse(ctx.handler)
}

// 内部：链表与查找，一律在监视器内。

func (p *Pipeline) context0(name string) (ctx *HandlerContext) {
	for c := p.head.next.Load(); c != p.tail; c = c.next.Load() {
		if c.name == name {
			ctx = c
			return
		}
	}
	return
}

func (p *Pipeline) contextOf0(handler Handler) (ctx *HandlerContext) {
	for c := p.head.next.Load(); c != p.tail; c = c.next.Load() {
		if handlerEqual(c.handler, handler) {
			ctx = c
			return
		}
	}
	return
}

func (p *Pipeline) generateName(handler Handler) (name string) {
	base := strings.TrimPrefix(fmt.Sprintf("%T", handler), "*")
	for {
		name = fmt.Sprintf("%s#%d", base, p.generated)
		p.generated++
		if p.context0(name) == nil {
			return
		}
	}
}

func spliceBefore(at *HandlerContext, ctx *HandlerContext) {
	prev := at.prev.Load()
	ctx.prev.Store(prev)
	ctx.next.Store(at)
	prev.next.Store(ctx)
	at.prev.Store(ctx)
}

func spliceAfter(at *HandlerContext, ctx *HandlerContext) {
	next := at.next.Load()
	ctx.prev.Store(at)
	ctx.next.Store(next)
	at.next.Store(ctx)
	next.prev.Store(ctx)
}

// unlink splices the context out but preserves its own links, so events
// that already targeted it can still travel onward.
func unlink(ctx *HandlerContext) {
	prev := ctx.prev.Load()
	next := ctx.next.Load()
	prev.next.Store(next)
	next.prev.Store(prev)
}

func replaceLinks(oldCtx *HandlerContext, newCtx *HandlerContext) {
	prev := oldCtx.prev.Load()
	next := oldCtx.next.Load()
	newCtx.prev.Store(prev)
	newCtx.next.Store(next)
	prev.next.Store(newCtx)
	next.prev.Store(newCtx)
}

func handlerEqual(a Handler, b Handler) (ok bool) {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return
	}
	ok = a == b
	return
}

// 全局在用登记：未声明共享的处理器同一时刻至多存在于一个上下文。
// 不可比较的值与指向零大小类型的指针（不同实例可能共用同一地址）不参与登记。

var inUse sync.Map

func markInUse(handler Handler) (ok bool) {
	t := reflect.TypeOf(handler)
	if t == nil || !t.Comparable() || (t.Kind() == reflect.Pointer && t.Elem().Size() == 0) {
		ok = true
		return
	}
	_, loaded := inUse.LoadOrStore(handler, struct{}{})
	ok = !loaded
	return
}

func unmarkInUse(handler Handler) {
	if handler == nil {
		return
	}
	if t := reflect.TypeOf(handler); t == nil || !t.Comparable() || (t.Kind() == reflect.Pointer && t.Elem().Size() == 0) {
		return
	}
	inUse.Delete(handler)
}
