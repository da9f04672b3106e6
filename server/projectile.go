package server

import (
	"time"

	"blitz/protocol"
)

// spawnProjectile 在施法者位置生成投射物并立即广播
// 瞄准点与施法者重合（角度退化）时沿用施法者当前朝向
func (w *World) spawnProjectile(caster *PlayerRecord, aim protocol.Vec2) error {
	rotation, ok := facingAngle(caster.Transform.Position, aim)
	if !ok {
		rotation = caster.Transform.Rotation
	}
	pr := &ProjectileRecord{
		Entity: w.ids.Next(),
		Owner:  caster.Entity,
		Transform: protocol.Transform{
			Position: caster.Transform.Position,
			Rotation: rotation,
		},
		Remaining: w.cfg.ProjectileLifetime(),
	}
	w.projectiles[pr.Entity] = pr
	w.metrics.IncAttacks()
	w.log.Debugf("projectile spawned: entity=%d owner=%d rotation=%.3f", pr.Entity, pr.Owner, rotation)
	return w.broadcast(protocol.SpawnProjectile{
		Entity:   pr.Entity,
		Position: pr.Transform.Position,
		Rotation: pr.Transform.Rotation,
	})
}

// advanceProjectiles 沿朝向匀速前进并扣减寿命，寿命耗尽的投射物移除
func (w *World) advanceProjectiles(elapsed time.Duration) error {
	step := w.cfg.ProjectileSpeed * float32(elapsed.Seconds())
	for _, pr := range w.sortedProjectiles() {
		pr.Transform.Position = pr.Transform.Position.Add(pr.Transform.Forward().Scale(step))
		pr.Remaining -= elapsed
		if pr.Remaining > 0 {
			continue
		}
		if _, err := w.despawnProjectile(pr.Entity); err != nil {
			return err
		}
		w.metrics.IncProjectilesExpired()
	}
	return nil
}

// despawnProjectile 移除并广播 DespawnProjectile；已移除的实体不会再次广播
func (w *World) despawnProjectile(entity protocol.ServerEntityID) (bool, error) {
	if _, ok := w.projectiles[entity]; !ok {
		return false, nil
	}
	delete(w.projectiles, entity)
	return true, w.broadcast(protocol.DespawnProjectile{Entity: entity})
}
