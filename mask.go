package rivet

const (
	maskChannelRegistered uint32 = 1 << iota
	maskChannelActive
	maskChannelRead
	maskChannelReadComplete
	maskUserEventTriggered
	maskChannelWritabilityChanged
	maskExceptionCaught
	maskChannelInactive
	maskChannelUnregistered
	maskBind
	maskConnect
	maskDisconnect
	maskClose
	maskDeregister
	maskRead
	maskWrite
	maskFlush
)

const (
	maskInbound = maskChannelRegistered | maskChannelActive | maskChannelRead |
		maskChannelReadComplete | maskUserEventTriggered | maskChannelWritabilityChanged |
		maskExceptionCaught | maskChannelInactive | maskChannelUnregistered
	maskOutbound = maskBind | maskConnect | maskDisconnect | maskClose |
		maskDeregister | maskRead | maskWrite | maskFlush
)

// maskOf computes the capability mask once per context.
// A bit is set iff the handler's dynamic type implements the method.
func maskOf(handler Handler) (mask uint32) {
	if _, ok := handler.(ChannelRegisteredHandler); ok {
		mask |= maskChannelRegistered
	}
	if _, ok := handler.(ChannelActiveHandler); ok {
		mask |= maskChannelActive
	}
	if _, ok := handler.(ChannelReadHandler); ok {
		mask |= maskChannelRead
	}
	if _, ok := handler.(ChannelReadCompleteHandler); ok {
		mask |= maskChannelReadComplete
	}
	if _, ok := handler.(UserEventTriggeredHandler); ok {
		mask |= maskUserEventTriggered
	}
	if _, ok := handler.(ChannelWritabilityChangedHandler); ok {
		mask |= maskChannelWritabilityChanged
	}
	if _, ok := handler.(ExceptionCaughtHandler); ok {
		mask |= maskExceptionCaught
	}
	if _, ok := handler.(ChannelInactiveHandler); ok {
		mask |= maskChannelInactive
	}
	if _, ok := handler.(ChannelUnregisteredHandler); ok {
		mask |= maskChannelUnregistered
	}
	if _, ok := handler.(BindHandler); ok {
		mask |= maskBind
	}
	if _, ok := handler.(ConnectHandler); ok {
		mask |= maskConnect
	}
	if _, ok := handler.(DisconnectHandler); ok {
		mask |= maskDisconnect
	}
	if _, ok := handler.(CloseHandler); ok {
		mask |= maskClose
	}
	if _, ok := handler.(DeregisterHandler); ok {
		mask |= maskDeregister
	}
	if _, ok := handler.(ReadHandler); ok {
		mask |= maskRead
	}
	if _, ok := handler.(WriteHandler); ok {
		mask |= maskWrite
	}
	if _, ok := handler.(FlushHandler); ok {
		mask |= maskFlush
	}
	return
}
