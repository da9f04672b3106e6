// Package ws 基于 WebSocket 的传输实现：每帧为 1 字节通道号 + 消息体。
//
// WebSocket 建立在 TCP 之上，两条逻辑通道都按序到达；不可靠通道在发送队列满时丢弃，
// 可靠通道在队列满时关闭连接。
package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blitz/protocol"
)

const (
	writeWait   = 5 * time.Second
	pongWait    = 30 * time.Second
	pingPeriod  = pongWait * 2 / 3
	maxFrame    = 1 << 20 // 1MB
	sendBacklog = 256
)

var (
	errEmptyFrame     = errors.New("ws: empty frame")
	errUnknownChannel = errors.New("ws: unknown channel")
)

// conn 负责单个 WebSocket 连接的读写协程
type conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		send: make(chan []byte, sendBacklog),
		done: make(chan struct{}),
	}
}

// enqueue 将要发送的帧压入队列（非阻塞，满或已关闭返回 false）
func (c *conn) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// close 通知两个协程退出（可重复调用）；由 writePump 发送关闭帧并关闭底层连接
func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取帧并交给 onFrame；返回时连接已关闭，err 为退出原因
// 不属于 configs 的通道号视为协议错误，直接结束会话
func (c *conn) readPump(configs []protocol.ChannelConfig, onFrame func(ch protocol.Channel, payload []byte)) error {
	defer c.close()
	c.ws.SetReadLimit(maxFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if len(frame) < 1 {
			return errEmptyFrame
		}
		ch := protocol.Channel(frame[0])
		if _, ok := protocol.Lookup(configs, ch); !ok {
			return fmt.Errorf("%w: %d", errUnknownChannel, ch)
		}
		onFrame(ch, frame[1:])
	}
}

func frame(ch protocol.Channel, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+1)
	b = append(b, byte(ch))
	return append(b, payload...)
}

func reliable(configs []protocol.ChannelConfig, ch protocol.Channel) bool {
	cfg, ok := protocol.Lookup(configs, ch)
	return !ok || cfg.Reliability == protocol.ReliableOrdered
}
