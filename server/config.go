package server

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Tuning 可热更新的玩法参数
type Tuning struct {
	TicksPerSecond       int     `json:"ticksPerSecond" jsonschema:"minimum=1,maximum=240,default=60,description=simulation ticks per second"`
	MaxCatchupTicks      int     `json:"maxCatchupTicks" jsonschema:"minimum=1,default=5,description=upper bound of one tick's elapsed time in tick budgets"`
	PlayerSpeed          float32 `json:"playerSpeed" jsonschema:"minimum=0,default=200,description=player speed in units per second"`
	ProjectileSpeed      float32 `json:"projectileSpeed" jsonschema:"minimum=0,default=200,description=projectile speed in units per second"`
	ProjectileLifetimeMs int     `json:"projectileLifetimeMs" jsonschema:"minimum=1,default=1500"`
	PlayerWidth          float32 `json:"playerWidth" jsonschema:"minimum=1,default=64"`
	PlayerHeight         float32 `json:"playerHeight" jsonschema:"minimum=1,default=64"`
	ProjectileWidth      float32 `json:"projectileWidth" jsonschema:"minimum=1,default=64"`
	ProjectileHeight     float32 `json:"projectileHeight" jsonschema:"minimum=1,default=64"`
	MaxAttacksPerTick    int     `json:"maxAttacksPerTick" jsonschema:"minimum=0,default=0,description=0 disables the limit"`
}

// DefaultTuning 默认参数
func DefaultTuning() Tuning {
	return Tuning{
		TicksPerSecond:       60,
		MaxCatchupTicks:      5,
		PlayerSpeed:          200,
		ProjectileSpeed:      200,
		ProjectileLifetimeMs: 1500,
		PlayerWidth:          64,
		PlayerHeight:         64,
		ProjectileWidth:      64,
		ProjectileHeight:     64,
		MaxAttacksPerTick:    0,
	}
}

// ProjectileLifetime 投射物初始寿命
func (t Tuning) ProjectileLifetime() time.Duration {
	return time.Duration(t.ProjectileLifetimeMs) * time.Millisecond
}

// TickInterval 单个 Tick 的时间预算
func (t Tuning) TickInterval() time.Duration {
	return time.Second / time.Duration(t.TicksPerSecond)
}

// Validate 检查参数范围
func (t Tuning) Validate() error {
	var errs []error
	if t.TicksPerSecond < 1 || t.TicksPerSecond > 240 {
		errs = append(errs, fmt.Errorf("ticksPerSecond %d out of range [1,240]", t.TicksPerSecond))
	}
	if t.MaxCatchupTicks < 1 {
		errs = append(errs, fmt.Errorf("maxCatchupTicks %d must be >= 1", t.MaxCatchupTicks))
	}
	if t.PlayerSpeed < 0 || t.ProjectileSpeed < 0 {
		errs = append(errs, errors.New("speeds must be >= 0"))
	}
	if t.ProjectileLifetimeMs < 1 {
		errs = append(errs, fmt.Errorf("projectileLifetimeMs %d must be >= 1", t.ProjectileLifetimeMs))
	}
	if t.PlayerWidth <= 0 || t.PlayerHeight <= 0 || t.ProjectileWidth <= 0 || t.ProjectileHeight <= 0 {
		errs = append(errs, errors.New("bounding box sizes must be > 0"))
	}
	if t.MaxAttacksPerTick < 0 {
		errs = append(errs, fmt.Errorf("maxAttacksPerTick %d must be >= 0", t.MaxAttacksPerTick))
	}
	return errors.Join(errs...)
}

// TuningStore 以原子指针保存当前参数：管理接口写，Tick 线程每帧读一次
type TuningStore struct {
	v atomic.Pointer[Tuning]
}

func NewTuningStore(t Tuning) (*TuningStore, error) {
	s := &TuningStore{}
	if err := s.Store(t); err != nil {
		return nil, err
	}
	return s, nil
}

// Load 返回当前参数的副本
func (s *TuningStore) Load() Tuning {
	return *s.v.Load()
}

// Store 校验后替换参数
func (s *TuningStore) Store(t Tuning) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	s.v.Store(&t)
	return nil
}
