package enet

import (
	"fmt"

	"github.com/codecat/go-enet"
	"go.uber.org/zap"

	"blitz/protocol"
	"blitz/transport"
)

// Server ENet 监听主机，实现 transport.Server
type Server struct {
	log    *zap.SugaredLogger
	host   enet.Host
	ids    transport.IDSequence
	inbox  *transport.Inbox
	peers  map[protocol.ClientID]enet.Peer
	byPeer map[enet.Peer]protocol.ClientID
}

var _ transport.Server = (*Server)(nil)

// Listen 在 UDP 端口上创建 ENet 主机
func Listen(opts Options) (*Server, error) {
	opts = opts.withDefaults()
	initialize()
	host, err := enet.NewHost(enet.NewListenAddress(opts.Port), opts.MaxClients, protocol.ChannelCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("enet listen on :%d: %w", opts.Port, err)
	}
	return &Server{
		log:    opts.Log,
		host:   host,
		inbox:  transport.NewInbox(),
		peers:  make(map[protocol.ClientID]enet.Peer),
		byPeer: make(map[enet.Peer]protocol.ClientID),
	}, nil
}

// Poll 非阻塞地处理所有待处理的 ENet 事件
func (s *Server) Poll() error {
	if s.host == nil {
		return transport.ErrClosed
	}
	for {
		ev := s.host.Service(0)
		switch ev.GetType() {
		case enet.EventNone:
			return nil
		case enet.EventConnect:
			s.handleConnect(ev)
		case enet.EventDisconnect:
			s.handleDisconnect(ev.GetPeer())
		case enet.EventReceive:
			payload := copyPacket(ev)
			if id, ok := s.byPeer[ev.GetPeer()]; ok {
				s.inbox.Push(id, protocol.Channel(ev.GetChannelID()), payload)
			}
		}
	}
}

func (s *Server) handleConnect(ev enet.Event) {
	peer := ev.GetPeer()
	if ev.GetData() != protocol.ProtocolID {
		s.log.Warnw("rejecting connection with wrong protocol id",
			"address", peer.GetAddress().String(), "protocol", ev.GetData())
		peer.DisconnectNow(0)
		return
	}
	id := s.ids.Next()
	s.peers[id] = peer
	s.byPeer[peer] = id
	s.inbox.Connect(id)
	s.log.Debugw("enet peer connected", "client", id, "address", peer.GetAddress().String())
}

func (s *Server) handleDisconnect(peer enet.Peer) {
	id, ok := s.byPeer[peer]
	if !ok {
		return
	}
	s.forget(id)
	s.inbox.Disconnect(id, true)
}

func (s *Server) forget(id protocol.ClientID) {
	if peer, ok := s.peers[id]; ok {
		delete(s.byPeer, peer)
	}
	delete(s.peers, id)
}

func (s *Server) ConnectedEvents() []protocol.ClientID    { return s.inbox.DrainConnected() }
func (s *Server) DisconnectedEvents() []protocol.ClientID { return s.inbox.DrainDisconnected() }

func (s *Server) Receive(id protocol.ClientID, ch protocol.Channel) ([]byte, bool) {
	return s.inbox.Pop(id, ch)
}

func (s *Server) Send(id protocol.ClientID, ch protocol.Channel, payload []byte) error {
	peer, ok := s.peers[id]
	if !ok {
		return fmt.Errorf("%w: %d", transport.ErrUnknownClient, id)
	}
	if err := peer.SendBytes(payload, uint8(ch), packetFlags(protocol.ServerChannels(), ch)); err != nil {
		return sendError(err, ch)
	}
	return nil
}

// Broadcast 单个 peer 发送失败只断开它自己（产生断开事件），不影响其余客户端
func (s *Server) Broadcast(ch protocol.Channel, payload []byte) error {
	if s.host == nil {
		return transport.ErrClosed
	}
	for id := range s.peers {
		if !s.inbox.Announced(id) {
			continue
		}
		if err := s.Send(id, ch, payload); err != nil {
			s.log.Warnw("broadcast failed, dropping peer", "client", id, "error", err)
			s.peers[id].DisconnectNow(0)
			s.forget(id)
			s.inbox.Disconnect(id, true)
		}
	}
	return nil
}

// Disconnect 立即断开，ENet 不会为此产生断开事件
func (s *Server) Disconnect(id protocol.ClientID) {
	peer, ok := s.peers[id]
	if !ok {
		return
	}
	peer.DisconnectNow(0)
	s.forget(id)
	s.inbox.Disconnect(id, false)
}

func (s *Server) Close() error {
	if s.host == nil {
		return nil
	}
	for id := range s.peers {
		s.Disconnect(id)
	}
	s.host.Destroy()
	s.host = nil
	return nil
}
