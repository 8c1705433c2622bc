package rivet

import (
	"net"

	"github.com/brickingsoft/rivet/pkg/reference"
)

// headHandler is the outbound terminal: it hands operations to the
// channel transport. Its inbound side merely forwards.
type headHandler struct{}

func (headHandler) ChannelRegistered(ctx *HandlerContext) (err error) {
	ctx.FireChannelRegistered()
	return
}

func (headHandler) ChannelActive(ctx *HandlerContext) (err error) {
	ctx.FireChannelActive()
	return
}

func (headHandler) ChannelRead(ctx *HandlerContext, msg any) (err error) {
	ctx.FireChannelRead(msg)
	return
}

func (headHandler) ChannelReadComplete(ctx *HandlerContext) (err error) {
	ctx.FireChannelReadComplete()
	return
}

func (headHandler) UserEventTriggered(ctx *HandlerContext, event any) (err error) {
	ctx.FireUserEventTriggered(event)
	return
}

func (headHandler) ChannelWritabilityChanged(ctx *HandlerContext) (err error) {
	ctx.FireChannelWritabilityChanged()
	return
}

func (headHandler) ExceptionCaught(ctx *HandlerContext, cause error) (err error) {
	ctx.FireExceptionCaught(cause)
	return
}

func (headHandler) ChannelInactive(ctx *HandlerContext) (err error) {
	ctx.FireChannelInactive()
	return
}

func (headHandler) ChannelUnregistered(ctx *HandlerContext) (err error) {
	ctx.FireChannelUnregistered()
	return
}

func (headHandler) Bind(ctx *HandlerContext, addr net.Addr, promise Promise) (err error) {
	ctx.Channel().Transport().Bind(addr, promise)
	return
}

func (headHandler) Connect(ctx *HandlerContext, remote net.Addr, local net.Addr, promise Promise) (err error) {
	ctx.Channel().Transport().Connect(remote, local, promise)
	return
}

func (headHandler) Disconnect(ctx *HandlerContext, promise Promise) (err error) {
	ctx.Channel().Transport().Disconnect(promise)
	return
}

func (headHandler) Close(ctx *HandlerContext, promise Promise) (err error) {
	ctx.Channel().Transport().Close(promise)
	return
}

func (headHandler) Deregister(ctx *HandlerContext, promise Promise) (err error) {
	ctx.Channel().Transport().Deregister(promise)
	return
}

func (headHandler) Read(ctx *HandlerContext) (err error) {
	err = ctx.Channel().Transport().BeginRead()
	return
}

func (headHandler) Write(ctx *HandlerContext, msg any, promise Promise) (err error) {
	ctx.Channel().Transport().Write(msg, promise)
	return
}

func (headHandler) Flush(ctx *HandlerContext) (err error) {
	ctx.Channel().Transport().Flush()
	return
}

// tailHandler is the inbound terminal. Unhandled messages are released
// exactly once and reported.
type tailHandler struct{}

func (tailHandler) ChannelRegistered(ctx *HandlerContext) (err error) {
	return
}

func (tailHandler) ChannelActive(ctx *HandlerContext) (err error) {
	return
}

func (tailHandler) ChannelRead(ctx *HandlerContext, msg any) (err error) {
	ctx.pipeline.logger.Warn("rivet: discarded inbound message that reached the tail",
		"channel", ctx.Channel().ID())
	reference.Release(msg)
	return
}

func (tailHandler) ChannelReadComplete(ctx *HandlerContext) (err error) {
	return
}

func (tailHandler) UserEventTriggered(ctx *HandlerContext, event any) (err error) {
	reference.Release(event)
	return
}

func (tailHandler) ChannelWritabilityChanged(ctx *HandlerContext) (err error) {
	return
}

func (tailHandler) ExceptionCaught(ctx *HandlerContext, cause error) (err error) {
	ctx.pipeline.logger.Warn("rivet: exception reached the tail",
		"channel", ctx.Channel().ID(), "cause", cause)
	return
}

func (tailHandler) ChannelInactive(ctx *HandlerContext) (err error) {
	return
}

func (tailHandler) ChannelUnregistered(ctx *HandlerContext) (err error) {
	return
}
