package protocol

import (
	"fmt"
	"time"
)

// Channel 逻辑通道编号，两个方向各自有两条通道
type Channel uint8

// 客户端 -> 服务端
const (
	ChannelCommand Channel = 0
	ChannelInput   Channel = 1
)

// 服务端 -> 客户端
const (
	ChannelNetworkedEntities Channel = 0
	ChannelServerMessages    Channel = 1
)

// ChannelCount 每个方向的通道数量
const ChannelCount = 2

// Reliability 通道的投递等级
type Reliability int

const (
	// ReliableOrdered 保证按发送顺序最终到达，未确认则重发
	ReliableOrdered Reliability = iota
	// UnreliableSequenced 不重发；接收端丢弃比已接受的更旧的包
	UnreliableSequenced
)

func (r Reliability) String() string {
	switch r {
	case ReliableOrdered:
		return "reliable-ordered"
	case UnreliableSequenced:
		return "unreliable-sequenced"
	default:
		return fmt.Sprintf("reliability(%d)", int(r))
	}
}

// ChannelConfig 单条通道的投递配置
type ChannelConfig struct {
	Channel        Channel
	Reliability    Reliability
	ResendInterval time.Duration
}

// ClientChannels 客户端发往服务端的通道配置（输入与指令都立即重发）
func ClientChannels() []ChannelConfig {
	return []ChannelConfig{
		{Channel: ChannelCommand, Reliability: ReliableOrdered, ResendInterval: 0},
		{Channel: ChannelInput, Reliability: ReliableOrdered, ResendInterval: 0},
	}
}

// ServerChannels 服务端发往客户端的通道配置
// 位置快照走不可靠通道，结构性事件走可靠通道（200ms 重发）
func ServerChannels() []ChannelConfig {
	return []ChannelConfig{
		{Channel: ChannelNetworkedEntities, Reliability: UnreliableSequenced},
		{Channel: ChannelServerMessages, Reliability: ReliableOrdered, ResendInterval: 200 * time.Millisecond},
	}
}

// Lookup 在配置表中查找通道，找不到时 ok=false
func Lookup(configs []ChannelConfig, ch Channel) (ChannelConfig, bool) {
	for _, c := range configs {
		if c.Channel == ch {
			return c, true
		}
	}
	return ChannelConfig{}, false
}
