// Package bot 无界面的自动客户端：随机游走、定期攻击，用于压测与本地演示。
package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"blitz/client"
	"blitz/logging"
	"blitz/protocol"
)

// Options 机器人行为参数
type Options struct {
	TickRate    int           // 客户端帧率，默认 60
	TurnEvery   time.Duration // 换方向的平均间隔，默认 1s
	AttackEvery time.Duration // 攻击间隔，默认 700ms；<0 不攻击
	ReportEvery time.Duration // 打印镜像规模的间隔，默认 5s
	Seed        uint64
	Log         *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.TickRate <= 0 {
		o.TickRate = 60
	}
	if o.TurnEvery <= 0 {
		o.TurnEvery = time.Second
	}
	if o.AttackEvery == 0 {
		o.AttackEvery = 700 * time.Millisecond
	}
	if o.ReportEvery <= 0 {
		o.ReportEvery = 5 * time.Second
	}
	o.Log = logging.Or(o.Log)
	return o
}

// Bot 驱动一个 client.Sync
type Bot struct {
	sync *client.Sync
	opts Options
	rng  *rand.Rand

	input      protocol.PlayerInput
	sinceTurn  time.Duration
	sinceShot  time.Duration
	sinceShout time.Duration
}

func New(s *client.Sync, opts Options) *Bot {
	opts = opts.withDefaults()
	return &Bot{
		sync: s,
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// Step 推进一帧：按需换方向、按间隔攻击，然后执行一次客户端同步
func (b *Bot) Step(dt time.Duration) error {
	b.sinceTurn += dt
	b.sinceShot += dt
	b.sinceShout += dt

	if b.sinceTurn >= b.opts.TurnEvery {
		b.sinceTurn = 0
		b.input = b.wander()
	}
	var attacks []protocol.Vec2
	if b.opts.AttackEvery > 0 && b.sinceShot >= b.opts.AttackEvery {
		b.sinceShot = 0
		attacks = append(attacks, b.randomPoint())
	}

	if _, err := b.sync.Tick(b.input, attacks); err != nil {
		return err
	}
	if b.sinceShout >= b.opts.ReportEvery {
		b.sinceShout = 0
		b.opts.Log.Infow("bot status", "players", b.sync.Players(), "mirrored", b.sync.Mirror().Len())
	}
	return nil
}

// Run 以固定帧率运行，直到 ctx 取消或会话结束
func (b *Bot) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(b.opts.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = b.sync.Close()
			return nil
		case <-ticker.C:
			if err := b.Step(interval); err != nil {
				if errors.Is(err, client.ErrSessionEnded) {
					b.opts.Log.Infow("session ended by server")
					return nil
				}
				return err
			}
		}
	}
}

func (b *Bot) wander() protocol.PlayerInput {
	in := protocol.PlayerInput{AimPoint: b.randomPoint()}
	switch b.rng.IntN(3) {
	case 0:
		in.Left = true
	case 1:
		in.Right = true
	}
	switch b.rng.IntN(3) {
	case 0:
		in.Up = true
	case 1:
		in.Down = true
	}
	return in
}

func (b *Bot) randomPoint() protocol.Vec2 {
	return protocol.V(b.rng.Float32()*800-400, b.rng.Float32()*600-300)
}
