// File: transport/tcp/context.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"
	"reflect"
)

// contextBox lets an arbitrary value, nil included, sit in an atomic.Pointer.
type contextBox struct{ v any }

// SetContext stores caller bookkeeping on the connection. Safe from any goroutine.
func (c *Conn) SetContext(v any) { c.ctx.Store(&contextBox{v: v}) }

// Context returns the value stored by SetContext, or nil.
func (c *Conn) Context() any {
	if b := c.ctx.Load(); b != nil {
		return b.v
	}
	return nil
}

// LoadContext returns the connection context as a T. An unset context
// yields the zero T; a context of any other type panics.
func LoadContext[T any](c *Conn) T {
	v := c.Context()
	if v == nil {
		var zero T
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("tcp: context of %s is %T, not %v", c.name, v, reflect.TypeOf((*T)(nil)).Elem()))
	}
	return t
}
