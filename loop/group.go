package loop

import (
	"sync/atomic"
)

// Group
// 固定大小的执行器组。
//
// Next 以轮询方式取出下一个执行器，用于为新加入的处理器钉选执行器。
type Group struct {
	loops []*EventLoop
	idx   atomic.Uint64
}

func NewGroup(size int, options ...Option) (group *Group) {
	if size < 1 {
		size = 1
	}
	loops := make([]*EventLoop, size)
	for i := range loops {
		loops[i] = New(options...)
	}
	group = &Group{
		loops: loops,
	}
	return
}

func (group *Group) Next() (el *EventLoop) {
	el = group.loops[(group.idx.Add(1)-1)%uint64(len(group.loops))]
	return
}

func (group *Group) Size() (n int) {
	n = len(group.loops)
	return
}

func (group *Group) Close() (err error) {
	for _, el := range group.loops {
		if closeErr := el.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return
}

func (group *Group) CloseGracefully() (err error) {
	for _, el := range group.loops {
		if closeErr := el.CloseGracefully(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return
}
