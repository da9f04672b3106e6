package enet

import (
	"fmt"

	"github.com/codecat/go-enet"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
	"blitz/transport"
)

// Client ENet 客户端会话，实现 transport.Client
type Client struct {
	log       *zap.SugaredLogger
	host      enet.Host
	peer      enet.Peer
	inbound   *transport.Queue
	connected bool
	closed    bool
}

var _ transport.Client = (*Client)(nil)

// Dial 发起连接；握手在后续的 Poll 中完成，完成前 Connected 为 false
func Dial(host string, port uint16, log *zap.SugaredLogger) (*Client, error) {
	initialize()
	h, err := enet.NewHost(nil, 1, protocol.ChannelCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("enet client host: %w", err)
	}
	peer, err := h.Connect(enet.NewAddress(host, port), protocol.ChannelCount, protocol.ProtocolID)
	if err != nil {
		h.Destroy()
		return nil, fmt.Errorf("enet connect %s:%d: %w", host, port, err)
	}
	return &Client{
		log:     logging.Or(log),
		host:    h,
		peer:    peer,
		inbound: transport.NewQueue(),
	}, nil
}

func (c *Client) Poll() error {
	if c.closed {
		return transport.ErrClosed
	}
	for {
		ev := c.host.Service(0)
		switch ev.GetType() {
		case enet.EventNone:
			return nil
		case enet.EventConnect:
			c.connected = true
			c.log.Infow("connected to server", "address", ev.GetPeer().GetAddress().String())
		case enet.EventDisconnect:
			c.connected = false
			c.closed = true
			c.log.Infow("disconnected from server")
			return nil
		case enet.EventReceive:
			c.inbound.Push(protocol.Channel(ev.GetChannelID()), copyPacket(ev))
		}
	}
}

func (c *Client) Connected() bool { return c.connected && !c.closed }

func (c *Client) Receive(ch protocol.Channel) ([]byte, bool) { return c.inbound.Pop(ch) }

func (c *Client) Send(ch protocol.Channel, payload []byte) error {
	if !c.Connected() {
		return transport.ErrClosed
	}
	if err := c.peer.SendBytes(payload, uint8(ch), packetFlags(protocol.ClientChannels(), ch)); err != nil {
		return sendError(err, ch)
	}
	return nil
}

func (c *Client) Close() error {
	if c.closed && c.host == nil {
		return nil
	}
	if c.connected {
		c.peer.Disconnect(0)
		// 让断开通知在销毁主机前发出
		c.host.Service(0)
	}
	c.connected = false
	c.closed = true
	if c.host != nil {
		c.host.Destroy()
		c.host = nil
	}
	return nil
}
