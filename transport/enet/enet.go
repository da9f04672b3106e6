// Package enet 基于 ENet（UDP）的传输实现。
//
// 每个方向两条 ENet 通道；可靠通道使用 PacketFlagReliable，
// 快照通道使用默认的不可靠包，ENet 对其按序号丢弃过期包。
// Host 不是线程安全的：所有调用都必须来自同一个 Tick 线程。
package enet

import (
	"fmt"
	"sync"

	"github.com/codecat/go-enet"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
)

var initOnce sync.Once

func initialize() {
	initOnce.Do(func() { enet.Initialize() })
}

func packetFlags(configs []protocol.ChannelConfig, ch protocol.Channel) enet.PacketFlags {
	cfg, ok := protocol.Lookup(configs, ch)
	if ok && cfg.Reliability == protocol.UnreliableSequenced {
		return 0
	}
	return enet.PacketFlagReliable
}

// Options ENet 主机参数
type Options struct {
	Port       uint16
	MaxClients uint64
	Log        *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.MaxClients == 0 {
		o.MaxClients = 64
	}
	o.Log = logging.Or(o.Log)
	return o
}

func copyPacket(ev enet.Event) []byte {
	packet := ev.GetPacket()
	defer packet.Destroy()
	return append([]byte(nil), packet.GetData()...)
}

func sendError(err error, ch protocol.Channel) error {
	return fmt.Errorf("enet send on channel %d: %w", ch, err)
}
