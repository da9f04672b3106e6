package server

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"blitz/logging"
	"blitz/protocol"
	"blitz/transport"
)

// World 权威世界：所有状态维护在内存，只由模拟 goroutine 推进
type World struct {
	log     *zap.SugaredLogger
	tr      transport.Server
	tuning  *TuningStore
	metrics *Metrics

	ids  entityAllocator
	tick uint64

	// lobby 已连接客户端到其玩家实体（阵亡玩家仍在 lobby 中，直到断开）
	lobby       map[protocol.ClientID]protocol.ServerEntityID
	players     map[protocol.ServerEntityID]*PlayerRecord
	projectiles map[protocol.ServerEntityID]*ProjectileRecord

	// cfg 本帧使用的参数快照，Step 开始时从 tuning 读取
	cfg Tuning
}

// NewWorld 创建世界；tuning/metrics/log 为 nil 时使用默认值
func NewWorld(tr transport.Server, tuning *TuningStore, metrics *Metrics, log *zap.SugaredLogger) *World {
	if tuning == nil {
		tuning, _ = NewTuningStore(DefaultTuning())
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &World{
		log:         logging.Or(log),
		tr:          tr,
		tuning:      tuning,
		metrics:     metrics,
		lobby:       make(map[protocol.ClientID]protocol.ServerEntityID),
		players:     make(map[protocol.ServerEntityID]*PlayerRecord),
		projectiles: make(map[protocol.ServerEntityID]*ProjectileRecord),
		cfg:         tuning.Load(),
	}
}

// Step 推进一个 Tick：连接事件 → 输入 → 移动 → 投射物 → 碰撞 → 快照广播
// 返回的错误都是传输层故障，调用方应终止循环
func (w *World) Step(elapsed time.Duration) error {
	w.cfg = w.tuning.Load()
	if err := w.tr.Poll(); err != nil {
		return fmt.Errorf("poll transport: %w", err)
	}
	w.tick++

	if err := w.handleConnections(); err != nil {
		return err
	}
	if err := w.ProcessInputs(); err != nil {
		return err
	}
	w.movePlayers(elapsed)
	if err := w.advanceProjectiles(elapsed); err != nil {
		return err
	}
	if err := w.resolveCollisions(); err != nil {
		return err
	}
	if err := w.BroadcastSnapshot(); err != nil {
		return err
	}
	w.metrics.SetPopulation(len(w.players), len(w.projectiles))
	return nil
}

func (w *World) handleConnections() error {
	// 同一批次中先加入者的 PlayerCreate 已经随广播送达后加入者，回放时跳过
	batch := make(map[protocol.ServerEntityID]bool)
	for _, id := range w.tr.ConnectedEvents() {
		if err := w.handleConnect(id, batch); err != nil {
			return err
		}
	}
	for _, id := range w.tr.DisconnectedEvents() {
		if err := w.removeClient(id); err != nil {
			return err
		}
	}
	return nil
}

// handleConnect 先向新连接回放已有世界，再创建玩家并全员广播
func (w *World) handleConnect(id protocol.ClientID, batch map[protocol.ServerEntityID]bool) error {
	if _, ok := w.lobby[id]; ok {
		w.log.Warnf("duplicate connect event: client=%d", id)
		return nil
	}
	w.metrics.IncConnects()

	replay := make([]protocol.ServerMessage, 0, len(w.players)+len(w.projectiles))
	for _, p := range w.livingPlayers() {
		if batch[p.Entity] {
			continue
		}
		replay = append(replay, protocol.PlayerCreate{ID: p.ClientID, Entity: p.Entity})
	}
	for _, pr := range w.sortedProjectiles() {
		replay = append(replay, protocol.SpawnProjectile{
			Entity:   pr.Entity,
			Position: pr.Transform.Position,
			Rotation: pr.Transform.Rotation,
		})
	}
	for _, msg := range replay {
		if !w.sendTo(id, msg) {
			// 回放期间发送失败：连接已失效，还未入 lobby，无需广播
			return nil
		}
	}

	entity := w.ids.Next()
	w.players[entity] = &PlayerRecord{ClientID: id, Entity: entity}
	w.lobby[id] = entity
	batch[entity] = true
	w.log.Infof("client connected: client=%d entity=%d replayed=%d", id, entity, len(replay))
	return w.broadcast(protocol.PlayerCreate{ID: id, Entity: entity})
}

// removeClient 移出 lobby 与玩家集合并广播；未知客户端直接忽略
func (w *World) removeClient(id protocol.ClientID) error {
	entity, ok := w.lobby[id]
	if !ok {
		return nil
	}
	delete(w.lobby, id)
	delete(w.players, entity)
	w.metrics.IncDisconnects()
	w.log.Infof("client disconnected: client=%d entity=%d", id, entity)
	return w.broadcast(protocol.PlayerDisconnected{ID: id})
}

// dropClient 服务端主动断开（解码失败、发送失败）
func (w *World) dropClient(id protocol.ClientID) error {
	w.tr.Disconnect(id)
	return w.removeClient(id)
}

func (w *World) broadcast(msg protocol.ServerMessage) error {
	b, err := protocol.EncodeServerMessage(msg)
	if err != nil {
		return fmt.Errorf("encode %T: %w", msg, err)
	}
	if err := w.tr.Broadcast(protocol.ChannelServerMessages, b); err != nil {
		return fmt.Errorf("broadcast %T: %w", msg, err)
	}
	return nil
}

// sendTo 单发；失败时断开该客户端（不进 lobby 的连接同样会被断开）
func (w *World) sendTo(id protocol.ClientID, msg protocol.ServerMessage) bool {
	b, err := protocol.EncodeServerMessage(msg)
	if err == nil {
		err = w.tr.Send(id, protocol.ChannelServerMessages, b)
	}
	if err != nil {
		w.log.Warnf("send %T to client=%d failed: %v", msg, id, err)
		w.metrics.IncSendFailures()
		w.tr.Disconnect(id)
		return false
	}
	return true
}

// BroadcastSnapshot 广播全部存活玩家与投射物的位置（不可靠通道）
func (w *World) BroadcastSnapshot() error {
	snap := protocol.NetworkedEntities{Tick: w.tick}
	for _, p := range w.livingPlayers() {
		snap.Append(p.Entity, p.Transform)
	}
	for _, pr := range w.sortedProjectiles() {
		snap.Append(pr.Entity, pr.Transform)
	}
	b, err := protocol.EncodeNetworkedEntities(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.tr.Broadcast(protocol.ChannelNetworkedEntities, b); err != nil {
		return fmt.Errorf("broadcast snapshot: %w", err)
	}
	w.metrics.IncSnapshots()
	return nil
}

func (w *World) sortedClients() []protocol.ClientID {
	ids := make([]protocol.ClientID, 0, len(w.lobby))
	for id := range w.lobby {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (w *World) livingPlayers() []*PlayerRecord {
	out := make([]*PlayerRecord, 0, len(w.players))
	for _, p := range w.players {
		if !p.Dead {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *PlayerRecord) int { return cmp.Compare(a.Entity, b.Entity) })
	return out
}

func (w *World) sortedProjectiles() []*ProjectileRecord {
	out := make([]*ProjectileRecord, 0, len(w.projectiles))
	for _, pr := range w.projectiles {
		out = append(out, pr)
	}
	slices.SortFunc(out, func(a, b *ProjectileRecord) int { return cmp.Compare(a.Entity, b.Entity) })
	return out
}

// Tick 已推进的 Tick 数
func (w *World) Tick() uint64 { return w.tick }

// Lobby 返回 lobby 副本
func (w *World) Lobby() map[protocol.ClientID]protocol.ServerEntityID {
	out := make(map[protocol.ClientID]protocol.ServerEntityID, len(w.lobby))
	for k, v := range w.lobby {
		out[k] = v
	}
	return out
}

// Player 按客户端查找玩家记录副本
func (w *World) Player(id protocol.ClientID) (PlayerRecord, bool) {
	entity, ok := w.lobby[id]
	if !ok {
		return PlayerRecord{}, false
	}
	p, ok := w.players[entity]
	if !ok {
		return PlayerRecord{}, false
	}
	return *p, true
}

// Projectiles 按实体 id 升序返回投射物副本
func (w *World) Projectiles() []ProjectileRecord {
	sorted := w.sortedProjectiles()
	out := make([]ProjectileRecord, len(sorted))
	for i, pr := range sorted {
		out[i] = *pr
	}
	return out
}
