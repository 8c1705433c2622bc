package rivet

import (
	"net"

	"github.com/brickingsoft/rivet/async"
	"github.com/brickingsoft/rivet/loop"
)

// Future
// 通道面的未来。
type Future = async.Future[async.Void]

// Promise
// 通道面的许诺。
type Promise = async.Promise[async.Void]

// Channel
// 一条传输级连接。与其流水线同生命周期，流水线持有非拥有的回引。
type Channel interface {
	ID() (id string)
	// Loop
	// 通道的默认执行器。未显式指定执行器的上下文都钉选在它上面。
	Loop() (el *loop.EventLoop)
	Pipeline() (pipeline *Pipeline)
	// Transport
	// 头哨兵的出站终点。
	Transport() (transport Transport)
	IsActive() (ok bool)
	IsRegistered() (ok bool)
	LocalAddr() (addr net.Addr)
	RemoteAddr() (addr net.Addr)
}

// Transport
// 传输原语。头哨兵把出站操作交给它，由它以成功、失败或取消完成许诺。
type Transport interface {
	Bind(addr net.Addr, promise Promise)
	Connect(remote net.Addr, local net.Addr, promise Promise)
	Disconnect(promise Promise)
	Close(promise Promise)
	Deregister(promise Promise)
	BeginRead() (err error)
	Write(msg any, promise Promise)
	Flush()
}
