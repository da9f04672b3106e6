package ws

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
	"blitz/transport"
)

// Server WebSocket 接入端，实现 transport.Server，同时是一个 http.Handler
type Server struct {
	log      *zap.SugaredLogger
	inbox    *transport.Inbox
	upgrader websocket.Upgrader

	mu     deadlock.Mutex
	ids    transport.IDSequence
	conns  map[protocol.ClientID]*conn
	closed bool
}

var (
	_ transport.Server = (*Server)(nil)
	_ http.Handler     = (*Server)(nil)
)

func NewServer(log *zap.SugaredLogger) *Server {
	return &Server{
		log:   logging.Or(log),
		inbox: transport.NewInbox(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 演示环境：允许所有来源（生产环境需严格限制）
				return true
			},
		},
		conns: make(map[protocol.ClientID]*conn),
	}
}

// ServeHTTP WebSocket 接入：升级连接、分配 ClientID、启动读写协程
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}
	c := newConn(wsConn)

	s.mu.Lock()
	id := s.ids.Next()
	s.conns[id] = c
	s.mu.Unlock()
	s.inbox.Connect(id)
	s.log.Debugw("websocket session opened", "client", id, "remote", r.RemoteAddr)

	go c.writePump()
	go func() {
		err := c.readPump(protocol.ClientChannels(), func(ch protocol.Channel, payload []byte) {
			s.inbox.Push(id, ch, payload)
		})
		// 读泵退出时，通知 Tick 线程移除该玩家
		s.forget(id, c)
		s.inbox.Disconnect(id, true)
		s.log.Debugw("websocket session closed", "client", id, "reason", err)
	}()
}

func (s *Server) forget(id protocol.ClientID, c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.conns[id]; ok && cur == c {
		delete(s.conns, id)
	}
}

func (s *Server) lookup(id protocol.ClientID) (*conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	return c, ok
}

func (s *Server) Poll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	return nil
}

func (s *Server) ConnectedEvents() []protocol.ClientID    { return s.inbox.DrainConnected() }
func (s *Server) DisconnectedEvents() []protocol.ClientID { return s.inbox.DrainDisconnected() }

func (s *Server) Receive(id protocol.ClientID, ch protocol.Channel) ([]byte, bool) {
	return s.inbox.Pop(id, ch)
}

func (s *Server) Send(id protocol.ClientID, ch protocol.Channel, payload []byte) error {
	c, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", transport.ErrUnknownClient, id)
	}
	return s.deliver(id, c, ch, frame(ch, payload))
}

func (s *Server) Broadcast(ch protocol.Channel, payload []byte) error {
	s.mu.Lock()
	targets := make(map[protocol.ClientID]*conn, len(s.conns))
	for id, c := range s.conns {
		targets[id] = c
	}
	s.mu.Unlock()

	b := frame(ch, payload)
	for id := range targets {
		if !s.inbox.Announced(id) {
			delete(targets, id)
		}
	}
	for id, c := range targets {
		// 单个客户端拥塞只影响它自己，不影响广播
		_ = s.deliver(id, c, ch, b)
	}
	return nil
}

func (s *Server) deliver(id protocol.ClientID, c *conn, ch protocol.Channel, b []byte) error {
	if c.enqueue(b) {
		return nil
	}
	if !reliable(protocol.ServerChannels(), ch) {
		return nil
	}
	if !c.closed() {
		s.log.Warnw("reliable send queue full, closing session", "client", id, "channel", ch)
	}
	c.close()
	return fmt.Errorf("%w: client %d", transport.ErrQueueFull, id)
}

func (s *Server) Disconnect(id protocol.ClientID) {
	s.inbox.Disconnect(id, false)
	if c, ok := s.lookup(id); ok {
		c.close()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	return nil
}
