package transport

import (
	"github.com/sasha-s/go-deadlock"

	"blitz/protocol"
)

type inboxKey struct {
	id protocol.ClientID
	ch protocol.Channel
}

// Inbox 服务端入站缓冲：连接事件队列 + 每个 (客户端, 通道) 一条 FIFO
// 网络协程写入，Tick 线程在 Poll 之后非阻塞地取出
// 连接事件被 DrainConnected 交出之前，该客户端不接收广播（announced）
type Inbox struct {
	mu           deadlock.Mutex
	queues       map[inboxKey][][]byte
	live         map[protocol.ClientID]bool
	announced    map[protocol.ClientID]bool
	connected    []protocol.ClientID
	disconnected []protocol.ClientID
}

func NewInbox() *Inbox {
	return &Inbox{
		queues: make(map[inboxKey][][]byte),
		live:      make(map[protocol.ClientID]bool),
		announced: make(map[protocol.ClientID]bool),
	}
}

// Connect 记录新连接
func (b *Inbox) Connect(id protocol.ClientID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live[id] = true
	b.connected = append(b.connected, id)
}

// Disconnect 记录断开并丢弃该客户端未读的消息；重复调用只记录一次
func (b *Inbox) Disconnect(id protocol.ClientID, notify bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[id] {
		return
	}
	delete(b.live, id)
	delete(b.announced, id)
	for key := range b.queues {
		if key.id == id {
			delete(b.queues, key)
		}
	}
	if notify {
		b.disconnected = append(b.disconnected, id)
	}
}

// Announced 连接事件已交给服务端且尚未断开，可以接收广播
func (b *Inbox) Announced(id protocol.ClientID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.announced[id]
}

// Push 追加一条入站消息；已断开的客户端直接丢弃
func (b *Inbox) Push(id protocol.ClientID, ch protocol.Channel, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live[id] {
		return
	}
	key := inboxKey{id: id, ch: ch}
	b.queues[key] = append(b.queues[key], payload)
}

// Pop 取出队首消息（非阻塞）
func (b *Inbox) Pop(id protocol.ClientID, ch protocol.Channel) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := inboxKey{id: id, ch: ch}
	q := b.queues[key]
	if len(q) == 0 {
		return nil, false
	}
	msg := q[0]
	q[0] = nil
	if len(q) == 1 {
		delete(b.queues, key)
	} else {
		b.queues[key] = q[1:]
	}
	return msg, true
}

// DrainConnected 取出并清空连接事件
func (b *Inbox) DrainConnected() []protocol.ClientID {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.connected
	b.connected = nil
	for _, id := range out {
		if b.live[id] {
			b.announced[id] = true
		}
	}
	return out
}

// DrainDisconnected 取出并清空断开事件
func (b *Inbox) DrainDisconnected() []protocol.ClientID {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.disconnected
	b.disconnected = nil
	return out
}

// Queue 客户端侧的按通道 FIFO
type Queue struct {
	mu     deadlock.Mutex
	queues map[protocol.Channel][][]byte
}

func NewQueue() *Queue {
	return &Queue{queues: make(map[protocol.Channel][][]byte)}
}

func (q *Queue) Push(ch protocol.Channel, payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[ch] = append(q.queues[ch], payload)
}

func (q *Queue) Pop(ch protocol.Channel) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.queues[ch]
	if len(list) == 0 {
		return nil, false
	}
	msg := list[0]
	list[0] = nil
	q.queues[ch] = list[1:]
	return msg, true
}
