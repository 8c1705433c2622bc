package embedded_test

import (
	"net"
	"sync"
	"testing"

	"github.com/brickingsoft/rivet"
	"github.com/brickingsoft/rivet/embedded"
)

type events struct {
	locker sync.Mutex
	list   []string
}

func (e *events) add(event string) {
	e.locker.Lock()
	e.list = append(e.list, event)
	e.locker.Unlock()
}

func (e *events) snapshot() (list []string) {
	e.locker.Lock()
	list = append(list, e.list...)
	e.locker.Unlock()
	return
}

type watcher struct {
	events *events
}

func (h *watcher) ChannelRegistered(ctx *rivet.HandlerContext) (err error) {
	h.events.add("registered")
	ctx.FireChannelRegistered()
	return
}

func (h *watcher) ChannelActive(ctx *rivet.HandlerContext) (err error) {
	h.events.add("active")
	ctx.FireChannelActive()
	return
}

func (h *watcher) ChannelInactive(ctx *rivet.HandlerContext) (err error) {
	h.events.add("inactive")
	ctx.FireChannelInactive()
	return
}

func (h *watcher) ChannelUnregistered(ctx *rivet.HandlerContext) (err error) {
	h.events.add("unregistered")
	ctx.FireChannelUnregistered()
	return
}

func TestLifecycle(t *testing.T) {
	evs := &events{}
	ch := embedded.New(&watcher{events: evs})
	if !ch.IsActive() || !ch.IsRegistered() {
		t.Fatal("channel should be registered and active")
	}
	if ch.ID() == "" {
		t.Fatal("channel id missing")
	}
	if err := ch.Finish(); err != nil {
		t.Fatal(err)
	}
	if ch.IsActive() || ch.IsRegistered() {
		t.Error("channel should be closed")
	}
	got := evs.snapshot()
	want := []string{"registered", "active", "inactive", "unregistered"}
	if len(got) != len(want) {
		t.Fatal("unexpected events:", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatal("unexpected events:", got)
		}
	}
}

func TestBindAndConnect(t *testing.T) {
	ch := embedded.New()
	defer ch.Finish()

	local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	if err := ch.Bind(local).Sync(); err != nil {
		t.Fatal(err)
	}
	if ch.LocalAddr().String() != local.String() {
		t.Error("local addr not bound")
	}

	remote := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9001}
	if err := ch.Connect(remote, nil).Sync(); err != nil {
		t.Fatal(err)
	}
	if ch.RemoteAddr().String() != remote.String() {
		t.Error("remote addr not connected")
	}
}

func TestWriteFlushRead(t *testing.T) {
	ch := embedded.New()
	defer ch.Finish()

	first := ch.Write("one")
	second := ch.Write("two")
	if ch.ReadOutbound() != nil {
		t.Fatal("unflushed writes must not be readable")
	}
	ch.Flush()
	if err := first.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := second.Sync(); err != nil {
		t.Fatal(err)
	}
	if msg := ch.ReadOutbound(); msg != "one" {
		t.Error("expected one, got", msg)
	}
	if msg := ch.ReadOutbound(); msg != "two" {
		t.Error("expected two, got", msg)
	}
	if ch.OutboundLen() != 0 {
		t.Error("outbound should be drained")
	}
}

func TestWriteAndFlush(t *testing.T) {
	ch := embedded.New()
	defer ch.Finish()

	if err := ch.WriteAndFlush("m").Sync(); err != nil {
		t.Fatal(err)
	}
	if msg := ch.ReadOutbound(); msg != "m" {
		t.Error("expected m, got", msg)
	}
}
