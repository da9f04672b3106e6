// Package client 实现客户端同步循环：消费服务端消息，维护本地世界镜像。
package client

import (
	"errors"
	"fmt"

	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
	"blitz/transport"
)

// ErrSessionEnded 会话已被服务端或传输层结束
var ErrSessionEnded = errors.New("client: session ended")

// TransformUpdate 交给渲染层的一条变换更新
type TransformUpdate struct {
	Local     donburi.Entity
	Transform protocol.Transform
}

// PlayerInfo 客户端大厅中的一名玩家
type PlayerInfo struct {
	ServerEntity protocol.ServerEntityID
	ClientEntity donburi.Entity
}

// Stats 同步计数
type Stats struct {
	ServerMessages   uint64
	SnapshotsApplied uint64
	SnapshotsStale   uint64
	LookupMisses     uint64
}

// Sync 单个客户端会话的同步状态，只由该客户端自己的 Tick 线程修改
type Sync struct {
	log     *zap.SugaredLogger
	tr      transport.Client
	mapping *Mapping
	mirror  *Mirror
	lobby   map[protocol.ClientID]PlayerInfo

	lastTick  uint64
	haveTick  bool
	connected bool
	stats     Stats
}

func NewSync(tr transport.Client, log *zap.SugaredLogger) *Sync {
	log = logging.Or(log)
	return &Sync{
		log:     log,
		tr:      tr,
		mapping: NewMapping(log),
		mirror:  NewMirror(),
		lobby:   make(map[protocol.ClientID]PlayerInfo),
	}
}

func (s *Sync) Mapping() *Mapping { return s.mapping }
func (s *Sync) Mirror() *Mirror   { return s.mirror }
func (s *Sync) Stats() Stats      { return s.stats }

// Player 查询客户端大厅中的玩家
func (s *Sync) Player(id protocol.ClientID) (PlayerInfo, bool) {
	info, ok := s.lobby[id]
	return info, ok
}

// Players 大厅中的玩家数量
func (s *Sync) Players() int { return len(s.lobby) }

// Tick 推进一次客户端循环：轮询传输层、应用服务端消息、发送本帧输入与攻击指令。
// 握手完成前返回 (nil, nil)；会话结束或解码失败时返回错误
func (s *Sync) Tick(input protocol.PlayerInput, attacks []protocol.Vec2) ([]TransformUpdate, error) {
	if err := s.tr.Poll(); err != nil {
		return nil, fmt.Errorf("transport poll: %w", err)
	}
	if !s.tr.Connected() {
		if s.connected {
			s.connected = false
			return nil, ErrSessionEnded
		}
		return nil, nil
	}
	s.connected = true

	updates, err := s.receive()
	if err != nil {
		s.log.Errorw("closing session after decode failure", "error", err)
		_ = s.tr.Close()
		return updates, err
	}
	if err := s.send(input, attacks); err != nil {
		return updates, err
	}
	return updates, nil
}

// Close 主动断开
func (s *Sync) Close() error {
	s.log.Infow("disconnecting from server")
	s.connected = false
	return s.tr.Close()
}

// receive 先排空可靠通道的结构性事件，再排空快照通道
func (s *Sync) receive() ([]TransformUpdate, error) {
	for {
		payload, ok := s.tr.Receive(protocol.ChannelServerMessages)
		if !ok {
			break
		}
		msg, err := protocol.DecodeServerMessage(payload)
		if err != nil {
			return nil, fmt.Errorf("server message: %w", err)
		}
		s.Apply(msg)
	}

	var updates []TransformUpdate
	for {
		payload, ok := s.tr.Receive(protocol.ChannelNetworkedEntities)
		if !ok {
			break
		}
		snapshot, err := protocol.DecodeNetworkedEntities(payload)
		if err != nil {
			return updates, fmt.Errorf("networked entities: %w", err)
		}
		updates = append(updates, s.ApplySnapshot(snapshot)...)
	}
	return updates, nil
}

func (s *Sync) send(input protocol.PlayerInput, attacks []protocol.Vec2) error {
	payload, err := protocol.EncodeInput(input)
	if err != nil {
		return err
	}
	if err := s.tr.Send(protocol.ChannelInput, payload); err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	for _, aim := range attacks {
		payload, err := protocol.EncodeCommand(protocol.BasicAttack{AimPoint: aim})
		if err != nil {
			return err
		}
		if err := s.tr.Send(protocol.ChannelCommand, payload); err != nil {
			return fmt.Errorf("send command: %w", err)
		}
	}
	return nil
}

// Apply 立即、同步地应用一条结构性事件
func (s *Sync) Apply(msg protocol.ServerMessage) {
	s.stats.ServerMessages++
	switch m := msg.(type) {
	case protocol.PlayerCreate:
		s.log.Infow("player connected", "client", m.ID, "server_entity", m.Entity)
		local := s.mirror.Spawn(NetworkedData{Server: m.Entity, Kind: KindPlayer, Owner: m.ID}, protocol.Transform{})
		s.track(m.Entity, local)
		if prev, ok := s.lobby[m.ID]; ok && prev.ServerEntity != m.Entity {
			s.untrack(prev.ServerEntity)
		}
		s.lobby[m.ID] = PlayerInfo{ServerEntity: m.Entity, ClientEntity: local}
	case protocol.PlayerDisconnected:
		s.log.Infow("player disconnected", "client", m.ID)
		info, ok := s.lobby[m.ID]
		if !ok {
			return
		}
		delete(s.lobby, m.ID)
		s.untrack(info.ServerEntity)
	case protocol.SpawnProjectile:
		s.log.Debugw("spawn projectile", "server_entity", m.Entity)
		t := protocol.Transform{Position: m.Position, Rotation: m.Rotation}
		local := s.mirror.Spawn(NetworkedData{Server: m.Entity, Kind: KindProjectile}, t)
		s.track(m.Entity, local)
	case protocol.DespawnProjectile:
		s.log.Debugw("despawn projectile", "server_entity", m.Entity)
		s.untrack(m.Entity)
	case protocol.DespawnPlayer:
		s.log.Infow("despawn player", "server_entity", m.Entity)
		s.untrack(m.Entity)
	case protocol.RespawnPlayer:
		s.log.Infow("respawn player", "server_entity", m.Entity)
		var owner protocol.ClientID
		for id, info := range s.lobby {
			if info.ServerEntity == m.Entity {
				owner = id
			}
		}
		local := s.mirror.Spawn(NetworkedData{Server: m.Entity, Kind: KindPlayer, Owner: owner}, protocol.Transform{})
		s.track(m.Entity, local)
		if owner != 0 {
			s.lobby[owner] = PlayerInfo{ServerEntity: m.Entity, ClientEntity: local}
		}
	default:
		s.log.Warnw("unhandled server message", "type", fmt.Sprintf("%T", msg))
	}
}

// ApplySnapshot 应用一份位置快照。比已应用快照更旧的整份丢弃；
// 找不到映射的实体静默跳过（创建消息尚未到达或已销毁）
func (s *Sync) ApplySnapshot(n protocol.NetworkedEntities) []TransformUpdate {
	if s.haveTick && n.Tick < s.lastTick {
		s.stats.SnapshotsStale++
		return nil
	}
	s.lastTick, s.haveTick = n.Tick, true
	s.stats.SnapshotsApplied++

	updates := make([]TransformUpdate, 0, n.Len())
	for i, id := range n.Entities {
		local, ok := s.mapping.Lookup(id)
		if !ok {
			s.stats.LookupMisses++
			continue
		}
		if !s.mirror.SetTransform(local, n.Transforms[i]) {
			continue
		}
		updates = append(updates, TransformUpdate{Local: local, Transform: n.Transforms[i]})
	}
	return updates
}

// track 建立映射；重复创建时回收被替换的镜像实体
func (s *Sync) track(serverID protocol.ServerEntityID, local donburi.Entity) {
	if replaced, ok := s.mapping.Insert(serverID, local); ok {
		s.mirror.Despawn(replaced)
	}
}

// untrack 删除映射并销毁镜像实体；不存在时为空操作
func (s *Sync) untrack(serverID protocol.ServerEntityID) {
	if local, ok := s.mapping.Remove(serverID); ok {
		s.mirror.Despawn(local)
	}
}
