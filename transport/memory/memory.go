// Package memory 提供进程内的回环传输，用于测试与单机演示。
package memory

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"

	"blitz/protocol"
	"blitz/transport"
)

// Network 一个服务端与任意多个进程内客户端之间的回环网络
type Network struct {
	mu      deadlock.Mutex
	ids     transport.IDSequence
	inbox   *transport.Inbox
	clients map[protocol.ClientID]*Client
	closed  bool
}

func NewNetwork() *Network {
	return &Network{
		inbox:   transport.NewInbox(),
		clients: make(map[protocol.ClientID]*Client),
	}
}

// Server 返回服务端视图
func (n *Network) Server() *Server { return &Server{n: n} }

// Dial 建立一个新的客户端会话；服务端下一次 Poll 后看到连接事件
func (n *Network) Dial() (*Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, transport.ErrClosed
	}
	c := &Client{n: n, id: n.ids.Next(), inbound: transport.NewQueue(), connected: true}
	n.clients[c.id] = c
	n.inbox.Connect(c.id)
	return c, nil
}

func (n *Network) client(id protocol.ClientID) (*Client, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.clients[id]
	return c, ok
}

func (n *Network) drop(id protocol.ClientID, notify bool) {
	n.mu.Lock()
	c, ok := n.clients[id]
	delete(n.clients, id)
	n.mu.Unlock()
	if ok {
		c.markClosed()
	}
	n.inbox.Disconnect(id, notify)
}

// Server 服务端视图，实现 transport.Server
type Server struct {
	n *Network
}

var _ transport.Server = (*Server)(nil)

func (s *Server) Poll() error {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	if s.n.closed {
		return transport.ErrClosed
	}
	return nil
}

func (s *Server) ConnectedEvents() []protocol.ClientID    { return s.n.inbox.DrainConnected() }
func (s *Server) DisconnectedEvents() []protocol.ClientID { return s.n.inbox.DrainDisconnected() }

func (s *Server) Receive(id protocol.ClientID, ch protocol.Channel) ([]byte, bool) {
	return s.n.inbox.Pop(id, ch)
}

func (s *Server) Send(id protocol.ClientID, ch protocol.Channel, payload []byte) error {
	c, ok := s.n.client(id)
	if !ok {
		return fmt.Errorf("%w: %d", transport.ErrUnknownClient, id)
	}
	c.deliver(ch, payload)
	return nil
}

// Broadcast 只投递给连接事件已被取走的客户端
func (s *Server) Broadcast(ch protocol.Channel, payload []byte) error {
	s.n.mu.Lock()
	targets := make([]*Client, 0, len(s.n.clients))
	for _, c := range s.n.clients {
		if s.n.inbox.Announced(c.id) {
			targets = append(targets, c)
		}
	}
	s.n.mu.Unlock()
	for _, c := range targets {
		c.deliver(ch, payload)
	}
	return nil
}

// Disconnect 服务端主动断开：不再产生断开事件
func (s *Server) Disconnect(id protocol.ClientID) { s.n.drop(id, false) }

func (s *Server) Close() error {
	s.n.mu.Lock()
	s.n.closed = true
	ids := make([]protocol.ClientID, 0, len(s.n.clients))
	for id := range s.n.clients {
		ids = append(ids, id)
	}
	s.n.mu.Unlock()
	for _, id := range ids {
		s.n.drop(id, false)
	}
	return nil
}

// Client 进程内客户端会话，实现 transport.Client
type Client struct {
	n       *Network
	id      protocol.ClientID
	inbound *transport.Queue

	mu        deadlock.Mutex
	connected bool
}

var _ transport.Client = (*Client)(nil)

// ID 服务端分配的会话标识
func (c *Client) ID() protocol.ClientID { return c.id }

func (c *Client) Poll() error { return nil }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Receive(ch protocol.Channel) ([]byte, bool) { return c.inbound.Pop(ch) }

func (c *Client) Send(ch protocol.Channel, payload []byte) error {
	if !c.Connected() {
		return transport.ErrClosed
	}
	c.n.inbox.Push(c.id, ch, copyBytes(payload))
	return nil
}

// Close 客户端主动断开，服务端收到断开事件
func (c *Client) Close() error {
	c.n.drop(c.id, true)
	return nil
}

func (c *Client) deliver(ch protocol.Channel, payload []byte) {
	if !c.Connected() {
		return
	}
	c.inbound.Push(ch, copyBytes(payload))
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
