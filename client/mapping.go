package client

import (
	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
)

// Mapping 服务端实体标识 -> 本地实体句柄，每个客户端会话一张
// 只用于查找，不表达所有权
type Mapping struct {
	log     *zap.SugaredLogger
	entries map[protocol.ServerEntityID]donburi.Entity
}

func NewMapping(log *zap.SugaredLogger) *Mapping {
	return &Mapping{
		log:     logging.Or(log),
		entries: make(map[protocol.ServerEntityID]donburi.Entity),
	}
}

// Insert 建立映射。同一 serverID 未经 Remove 再次 Insert 说明收到了重复的创建消息：
// 记录警告并覆盖，返回被替换的旧句柄供调用方回收
func (m *Mapping) Insert(serverID protocol.ServerEntityID, local donburi.Entity) (replaced donburi.Entity, ok bool) {
	if prev, exists := m.entries[serverID]; exists {
		m.log.Warnw("duplicate entity creation, overwriting mapping",
			"server_entity", serverID, "previous_local", prev, "local", local)
		replaced, ok = prev, true
	}
	m.entries[serverID] = local
	return replaced, ok
}

// Lookup 查找本地句柄
func (m *Mapping) Lookup(serverID protocol.ServerEntityID) (donburi.Entity, bool) {
	local, ok := m.entries[serverID]
	return local, ok
}

// Remove 删除映射；不存在时为空操作
func (m *Mapping) Remove(serverID protocol.ServerEntityID) (donburi.Entity, bool) {
	local, ok := m.entries[serverID]
	if ok {
		delete(m.entries, serverID)
	}
	return local, ok
}

func (m *Mapping) Len() int { return len(m.entries) }
