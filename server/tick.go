package server

import (
	"context"
	"time"
)

// Loop 以 TicksPerSecond 驱动 World.Step（可变步长，按实测间隔推进）
type Loop struct {
	world   *World
	tuning  *TuningStore
	metrics *Metrics
	now     func() time.Time
}

// NewLoop 绑定世界与其参数、指标
func NewLoop(w *World) *Loop {
	return &Loop{world: w, tuning: w.tuning, metrics: w.metrics, now: time.Now}
}

// Run 单线程推进世界，直到 ctx 取消或 Step 返回传输层错误
func (l *Loop) Run(ctx context.Context) error {
	cfg := l.tuning.Load()
	interval := cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := l.now()
	l.world.log.Infof("simulation loop started: tps=%d", cfg.TicksPerSecond)
	for {
		select {
		case <-ctx.Done():
			l.world.log.Infof("simulation loop stopped at tick %d", l.world.Tick())
			return nil
		case <-ticker.C:
			// 核心循环：处理输入 → 更新世界 → 广播结果
			now := l.now()
			cfg = l.tuning.Load()
			elapsed, clamped := clampElapsed(now.Sub(last), cfg)
			last = now
			if clamped {
				l.metrics.IncClamped()
			}

			start := l.now()
			if err := l.world.Step(elapsed); err != nil {
				return err
			}
			l.metrics.AddTick(l.now().Sub(start).Nanoseconds())

			// 热更新了 TPS 时重设 ticker
			if next := cfg.TickInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				l.world.log.Infof("tick rate changed: tps=%d", cfg.TicksPerSecond)
			}
		}
	}
}

// clampElapsed 非正值按一个 Tick 预算处理，过大的值截断到 MaxCatchupTicks 个预算
func clampElapsed(dt time.Duration, cfg Tuning) (time.Duration, bool) {
	budget := cfg.TickInterval()
	limit := budget * time.Duration(cfg.MaxCatchupTicks)
	switch {
	case dt <= 0:
		return budget, false
	case dt > limit:
		return limit, true
	}
	return dt, false
}
