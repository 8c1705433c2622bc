package rivet_test

import (
	"fmt"
	"strings"

	"github.com/brickingsoft/rivet"
	"github.com/brickingsoft/rivet/embedded"
)

type upper struct{}

func (h *upper) ChannelRead(ctx *rivet.HandlerContext, msg any) (err error) {
	ctx.FireChannelRead(strings.ToUpper(msg.(string)))
	return
}

type echo struct{}

func (h *echo) ChannelRead(ctx *rivet.HandlerContext, msg any) (err error) {
	ctx.WriteAndFlush(msg)
	return
}

func Example() {
	ch := embedded.New(&upper{}, &echo{})
	defer ch.Finish()

	ch.WriteInbound("ping")
	ch.Settle()

	fmt.Println(ch.ReadOutbound())
	// Output:
	// PING
}
