package server

import (
	"time"

	"blitz/protocol"
)

// PlayerRecord 房间内的玩家实体（服务端权威状态）
type PlayerRecord struct {
	ClientID    protocol.ClientID
	Entity      protocol.ServerEntityID
	Transform   protocol.Transform
	LatestInput protocol.PlayerInput // 最近一次输入，在下一次 Tick 生效

	// Dead 被击中后为 true：不再移动、不参与碰撞与快照，直到断开连接
	Dead bool
}

// ProjectileRecord 投射物（服务端权威状态），朝向在生成时确定
type ProjectileRecord struct {
	Entity    protocol.ServerEntityID
	Owner     protocol.ServerEntityID
	Transform protocol.Transform
	Remaining time.Duration
}

// entityAllocator 分配 ServerEntityID：从 1 递增，会话内不复用
type entityAllocator struct {
	last protocol.ServerEntityID
}

func (a *entityAllocator) Next() protocol.ServerEntityID {
	a.last++
	return a.last
}
