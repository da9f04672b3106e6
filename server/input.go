package server

import (
	"math"

	"blitz/protocol"
)

// ProcessInputs 按 ClientID 升序排空每个客户端的输入与指令通道（非阻塞 drain）
// 输入只记录意图，位置在移动阶段统一推进
func (w *World) ProcessInputs() error {
	for _, id := range w.sortedClients() {
		if err := w.drainClient(id); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) drainClient(id protocol.ClientID) error {
	entity := w.lobby[id]
	p := w.players[entity]

	for {
		payload, ok := w.tr.Receive(id, protocol.ChannelInput)
		if !ok {
			break
		}
		in, err := protocol.DecodeInput(payload)
		if err != nil {
			return w.rejectClient(id, err)
		}
		// 同一 Tick 多个输入：最后一个生效
		p.LatestInput = in
		w.metrics.IncInputs()
	}

	attacks := 0
	for {
		payload, ok := w.tr.Receive(id, protocol.ChannelCommand)
		if !ok {
			break
		}
		cmd, err := protocol.DecodeCommand(payload)
		if err != nil {
			return w.rejectClient(id, err)
		}
		switch c := cmd.(type) {
		case protocol.BasicAttack:
			if p.Dead {
				continue
			}
			if limit := w.cfg.MaxAttacksPerTick; limit > 0 && attacks >= limit {
				w.metrics.IncRateLimited()
				continue
			}
			attacks++
			if err := w.spawnProjectile(p, c.AimPoint); err != nil {
				return err
			}
		}
	}
	return nil
}

// rejectClient 解码失败：记录并断开该客户端，世界继续运行
func (w *World) rejectClient(id protocol.ClientID, cause error) error {
	w.log.Errorf("decode failed, dropping client=%d: %v", id, cause)
	w.metrics.IncDecodeFailures()
	return w.dropClient(id)
}

// facingAngle 由位置指向瞄准点的角度；重合或 NaN/Inf 时返回 0, false
func facingAngle(pos, aim protocol.Vec2) (float32, bool) {
	d := aim.Sub(pos)
	if !d.IsFinite() || (d.X == 0 && d.Y == 0) {
		return 0, false
	}
	a := math.Atan2(float64(d.Y), float64(d.X))
	if math.IsNaN(a) {
		return 0, false
	}
	return float32(a), true
}
