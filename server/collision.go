package server

import (
	"github.com/solarlune/resolv"

	"blitz/protocol"
)

// box 以 center 为中心的轴对齐矩形
func box(center protocol.Vec2, w, h float32) *resolv.ConvexPolygon {
	return resolv.NewRectangle(
		float64(center.X-w/2), float64(center.Y-h/2),
		float64(w), float64(h),
	)
}

// overlaps 分离轴检测：任一法线轴上投影不相交即不重叠
// 包含、重合、边贴边错开极小距离都算重叠；仅边界相接不算
func overlaps(a, b *resolv.ConvexPolygon) bool {
	for _, axes := range [][]resolv.Vector{a.SATAxes(), b.SATAxes()} {
		for _, axis := range axes {
			if !a.Project(axis).Overlapping(b.Project(axis)) {
				return false
			}
		}
	}
	return true
}

// resolveCollisions 投射物对除施放者以外的存活玩家做重叠检测（按实体 id 升序）
// 命中：移除投射物，先广播 DespawnProjectile 再广播 DespawnPlayer，玩家阵亡
func (w *World) resolveCollisions() error {
	players := w.livingPlayers()
	if len(players) == 0 {
		return nil
	}
	shapes := make([]*resolv.ConvexPolygon, len(players))
	for i, p := range players {
		shapes[i] = box(p.Transform.Position, w.cfg.PlayerWidth, w.cfg.PlayerHeight)
	}

	for _, pr := range w.sortedProjectiles() {
		shot := box(pr.Transform.Position, w.cfg.ProjectileWidth, w.cfg.ProjectileHeight)
		for i, p := range players {
			if p.Dead || p.Entity == pr.Owner || !overlaps(shot, shapes[i]) {
				continue
			}
			removed, err := w.despawnProjectile(pr.Entity)
			if err != nil {
				return err
			}
			if !removed {
				break
			}
			p.Dead = true
			w.metrics.IncHits()
			w.log.Infof("player hit: entity=%d client=%d projectile=%d owner=%d", p.Entity, p.ClientID, pr.Entity, pr.Owner)
			if err := w.broadcast(protocol.DespawnPlayer{Entity: p.Entity}); err != nil {
				return err
			}
			break
		}
	}
	return nil
}
