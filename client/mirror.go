package client

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"

	"blitz/protocol"
)

// Kind 镜像实体的种类
type Kind int

const (
	KindPlayer Kind = iota + 1
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindProjectile:
		return "projectile"
	default:
		return "unknown"
	}
}

// NetworkedData 镜像实体对应的服务端对象
type NetworkedData struct {
	Server protocol.ServerEntityID
	Kind   Kind
	Owner  protocol.ClientID // 仅玩家
}

var (
	Networked = donburi.NewComponentType[NetworkedData]()
	Transform = donburi.NewComponentType[protocol.Transform]()
)

var networkedQuery = donburi.NewQuery(filter.Contains(Networked, Transform))

// Mirror 本地世界镜像：完全由服务端消息重建的可丢弃副本
type Mirror struct {
	world donburi.World
}

func NewMirror() *Mirror {
	return &Mirror{world: donburi.NewWorld()}
}

// World 暴露底层 donburi 世界，供外部渲染层挂载自己的组件
func (m *Mirror) World() donburi.World { return m.world }

// Spawn 创建镜像实体并返回本地句柄
func (m *Mirror) Spawn(data NetworkedData, t protocol.Transform) donburi.Entity {
	e := m.world.Create(Networked, Transform)
	entry := m.world.Entry(e)
	Networked.SetValue(entry, data)
	Transform.SetValue(entry, t)
	return e
}

// Despawn 删除镜像实体；句柄已失效时返回 false
func (m *Mirror) Despawn(e donburi.Entity) bool {
	if !m.world.Valid(e) {
		return false
	}
	m.world.Remove(e)
	return true
}

// SetTransform 覆盖镜像实体的变换
func (m *Mirror) SetTransform(e donburi.Entity, t protocol.Transform) bool {
	if !m.world.Valid(e) {
		return false
	}
	Transform.SetValue(m.world.Entry(e), t)
	return true
}

// Transform 读取镜像实体的变换
func (m *Mirror) Transform(e donburi.Entity) (protocol.Transform, bool) {
	if !m.world.Valid(e) {
		return protocol.Transform{}, false
	}
	return *Transform.Get(m.world.Entry(e)), true
}

// Data 读取镜像实体的网络元数据
func (m *Mirror) Data(e donburi.Entity) (NetworkedData, bool) {
	if !m.world.Valid(e) {
		return NetworkedData{}, false
	}
	return *Networked.Get(m.world.Entry(e)), true
}

// Each 遍历所有镜像实体（供渲染层使用）
func (m *Mirror) Each(fn func(e donburi.Entity, data NetworkedData, t protocol.Transform)) {
	networkedQuery.Each(m.world, func(entry *donburi.Entry) {
		fn(entry.Entity(), *Networked.Get(entry), *Transform.Get(entry))
	})
}

func (m *Mirror) Len() int { return m.world.Len() }
