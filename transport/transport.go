// Package transport 定义模拟循环与网络会话之间的边界。
//
// 核心逻辑从不直接访问 socket：每个 Tick 调用一次 Poll，然后用非阻塞的
// Receive 把各通道排空，直到队列为空。
package transport

import (
	"errors"

	"blitz/protocol"
)

var (
	// ErrClosed 会话或主机已关闭
	ErrClosed = errors.New("transport: closed")
	// ErrUnknownClient 目标客户端不在连接表中
	ErrUnknownClient = errors.New("transport: unknown client")
	// ErrQueueFull 可靠通道的发送队列已满（视为连接故障）
	ErrQueueFull = errors.New("transport: send queue full")
)

// Server 服务端会话集合
type Server interface {
	// Poll 推进底层网络 IO；返回错误表示传输层故障
	Poll() error
	// ConnectedEvents 取出自上次调用以来新建立的连接
	ConnectedEvents() []protocol.ClientID
	// DisconnectedEvents 取出自上次调用以来断开的连接
	DisconnectedEvents() []protocol.ClientID
	// Receive 非阻塞地取出某客户端某通道的下一条消息
	Receive(id protocol.ClientID, ch protocol.Channel) ([]byte, bool)
	Send(id protocol.ClientID, ch protocol.Channel, payload []byte) error
	Broadcast(ch protocol.Channel, payload []byte) error
	// Disconnect 由服务端主动断开（例如解码失败）
	Disconnect(id protocol.ClientID)
	Close() error
}

// Client 客户端到服务端的单个会话
type Client interface {
	Poll() error
	Connected() bool
	Receive(ch protocol.Channel) ([]byte, bool)
	Send(ch protocol.Channel, payload []byte) error
	Close() error
}

// IDSequence 服务端分配 ClientID 的序列，从 1 开始，进程内不复用
type IDSequence struct {
	next protocol.ClientID
}

// Next 返回下一个 ClientID
func (s *IDSequence) Next() protocol.ClientID {
	s.next++
	return s.next
}
