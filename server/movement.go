package server

import (
	"time"
)

// movePlayers 按最近输入推进所有存活玩家：朝向指向瞄准点，位置按轴向 × 速度 × 秒数累加
func (w *World) movePlayers(elapsed time.Duration) {
	secs := float32(elapsed.Seconds())
	for _, p := range w.livingPlayers() {
		movePlayer(p, w.cfg.PlayerSpeed, secs)
	}
}

func movePlayer(p *PlayerRecord, speed, secs float32) {
	angle, _ := facingAngle(p.Transform.Position, p.LatestInput.AimPoint)
	p.Transform.Rotation = angle
	delta := p.LatestInput.Axis().Scale(speed * secs)
	p.Transform.Position = p.Transform.Position.Add(delta)
}
