package ws

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
	"blitz/transport"
)

// Client WebSocket 客户端会话，实现 transport.Client
type Client struct {
	log     *zap.SugaredLogger
	c       *conn
	inbound *transport.Queue
	done    atomic.Bool
}

var _ transport.Client = (*Client)(nil)

// Dial 连接服务端，例如 ws://127.0.0.1:5001/ws
func Dial(ctx context.Context, url string, log *zap.SugaredLogger) (*Client, error) {
	wsConn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	cl := &Client{
		log:     logging.Or(log),
		c:       newConn(wsConn),
		inbound: transport.NewQueue(),
	}
	go cl.c.writePump()
	go func() {
		err := cl.c.readPump(protocol.ServerChannels(), func(ch protocol.Channel, payload []byte) {
			cl.inbound.Push(ch, payload)
		})
		cl.done.Store(true)
		cl.log.Debugw("websocket session ended", "reason", err)
	}()
	return cl, nil
}

func (cl *Client) Poll() error { return nil }

func (cl *Client) Connected() bool { return !cl.done.Load() && !cl.c.closed() }

func (cl *Client) Receive(ch protocol.Channel) ([]byte, bool) { return cl.inbound.Pop(ch) }

func (cl *Client) Send(ch protocol.Channel, payload []byte) error {
	if !cl.Connected() {
		return transport.ErrClosed
	}
	if cl.c.enqueue(frame(ch, payload)) {
		return nil
	}
	if !reliable(protocol.ClientChannels(), ch) {
		return nil
	}
	cl.c.close()
	return transport.ErrQueueFull
}

func (cl *Client) Close() error {
	cl.c.close()
	return nil
}
