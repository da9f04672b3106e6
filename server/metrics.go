package server

import (
	"sync/atomic"
)

// Metrics 记录模拟循环的关键指标（用于监控与调试）
// Tick 线程写，管理接口读
type Metrics struct {
	TickCount          int64 // 统计的 Tick 次数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
	ClampedTicks       int64 // 因卡顿被截断 elapsed 的 Tick 数
	Connects           int64
	Disconnects        int64
	DecodeFailures     int64 // 因解码失败被断开的连接数
	SendFailures       int64 // 因发送失败被断开的连接数
	InputsAccepted     int64
	AttacksAccepted    int64
	RateLimited        int64 // 因同帧限流被拒绝的攻击
	ProjectilesExpired int64
	Hits               int64
	SnapshotsSent      int64
	Players            int64 // 当前玩家数（含阵亡）
	Projectiles        int64 // 当前投射物数
}

func (m *Metrics) IncConnects()           { atomic.AddInt64(&m.Connects, 1) }
func (m *Metrics) IncDisconnects()        { atomic.AddInt64(&m.Disconnects, 1) }
func (m *Metrics) IncDecodeFailures()     { atomic.AddInt64(&m.DecodeFailures, 1) }
func (m *Metrics) IncSendFailures()       { atomic.AddInt64(&m.SendFailures, 1) }
func (m *Metrics) IncInputs()             { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncAttacks()            { atomic.AddInt64(&m.AttacksAccepted, 1) }
func (m *Metrics) IncRateLimited()        { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncProjectilesExpired() { atomic.AddInt64(&m.ProjectilesExpired, 1) }
func (m *Metrics) IncHits()               { atomic.AddInt64(&m.Hits, 1) }
func (m *Metrics) IncSnapshots()          { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *Metrics) IncClamped()            { atomic.AddInt64(&m.ClampedTicks, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// SetPopulation 记录当前实体数量
func (m *Metrics) SetPopulation(players, projectiles int) {
	atomic.StoreInt64(&m.Players, int64(players))
	atomic.StoreInt64(&m.Projectiles, int64(projectiles))
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"clamped_ticks":       atomic.LoadInt64(&m.ClampedTicks),
		"connects":            atomic.LoadInt64(&m.Connects),
		"disconnects":         atomic.LoadInt64(&m.Disconnects),
		"decode_failures":     atomic.LoadInt64(&m.DecodeFailures),
		"send_failures":       atomic.LoadInt64(&m.SendFailures),
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"attacks_accepted":    atomic.LoadInt64(&m.AttacksAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"projectiles_expired": atomic.LoadInt64(&m.ProjectilesExpired),
		"hits":                atomic.LoadInt64(&m.Hits),
		"snapshots_sent":      atomic.LoadInt64(&m.SnapshotsSent),
		"players":             atomic.LoadInt64(&m.Players),
		"projectiles":         atomic.LoadInt64(&m.Projectiles),
	}
}
