package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("bridge: connection closed")

// Conn is one end of the bridge. Send is fire-and-forget: a nil error only
// means the envelope was handed to the transport. Handlers registered with
// Listen may be invoked concurrently and in any order.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Listen(handler func(data []byte)) (stop func(), err error)
}

// SendCommand encodes and sends a command.
func SendCommand(ctx context.Context, conn Conn, c Command) error {
	data, err := EncodeCommand(c)
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", c.Type(), err)
	}
	return nil
}

// SendEvent encodes and sends an event.
func SendEvent(ctx context.Context, conn Conn, e Event) error {
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", e.Type(), err)
	}
	return nil
}

// Pipe returns two connected in-memory ends. Each delivery runs on its own
// goroutine, so ordering between envelopes is not preserved.
func Pipe() (host, renderer Conn) {
	h := &pipeEnd{handlers: make(map[int]func([]byte))}
	r := &pipeEnd{handlers: make(map[int]func([]byte))}
	h.peer, r.peer = r, h
	return h, r
}

type pipeEnd struct {
	peer *pipeEnd

	mu       sync.RWMutex
	handlers map[int]func([]byte)
	next     int
	closed   bool
}

func (p *pipeEnd) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	p.peer.mu.RLock()
	defer p.peer.mu.RUnlock()
	for _, h := range p.peer.handlers {
		msg := append([]byte(nil), data...)
		go h(msg)
	}
	return nil
}

func (p *pipeEnd) Listen(handler func([]byte)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	id := p.next
	p.next++
	p.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}, nil
}

// Close detaches all listeners and rejects further sends.
func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.handlers = make(map[int]func([]byte))
	return nil
}
