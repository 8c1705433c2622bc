package rivet

// 按类型访问。类型查找返回最靠前的匹配。

func GetType[T any](p *Pipeline) (handler T, has bool) {
	if ctx := ContextOfType[T](p); ctx != nil {
		handler, has = ctx.handler.(T)
	}
	return
}

func ContextOfType[T any](p *Pipeline) (ctx *HandlerContext) {
	p.locker.Lock()
	for c := p.head.next.Load(); c != p.tail; c = c.next.Load() {
		if _, ok := c.handler.(T); ok {
			ctx = c
			break
		}
	}
	p.locker.Unlock()
	return
}

func RemoveType[T any](p *Pipeline) (handler T, err error) {
	p.locker.Lock()
	var ctx *HandlerContext
	for c := p.head.next.Load(); c != p.tail; c = c.next.Load() {
		if _, ok := c.handler.(T); ok {
			ctx = c
			break
		}
	}
	if ctx == nil {
		p.locker.Unlock()
		err = ErrNotFound
		return
	}
	unlink(ctx)
	p.locker.Unlock()
	handler = ctx.handler.(T)
	p.callHandlerRemoved(ctx)
	return
}

func ReplaceType[T any](p *Pipeline, newName string, newHandler Handler, options ...AddOption) (old T, err error) {
	ctx := ContextOfType[T](p)
	if ctx == nil {
		err = ErrNotFound
		return
	}
	var replaced Handler
	if replaced, err = p.Replace(ctx.name, newName, newHandler, options...); err != nil {
		return
	}
	old, _ = replaced.(T)
	return
}
