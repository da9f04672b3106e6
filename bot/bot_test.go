package bot

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"blitz/client"
	"blitz/server"
	"blitz/transport/memory"
)

func TestBotWandersAndAttacks(t *testing.T) {
	n := memory.NewNetwork()
	metrics := &server.Metrics{}
	w := server.NewWorld(n.Server(), nil, metrics, zap.NewNop().Sugar())
	conn, err := n.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	b := New(client.NewSync(conn, zap.NewNop().Sugar()), Options{
		TurnEvery:   50 * time.Millisecond,
		AttackEvery: 100 * time.Millisecond,
		Seed:        42,
	})

	const dt = 50 * time.Millisecond
	for i := 0; i < 20; i++ {
		if err := b.Step(dt); err != nil {
			t.Fatalf("bot step %d: %v", i, err)
		}
		if err := w.Step(dt); err != nil {
			t.Fatalf("world step %d: %v", i, err)
		}
	}

	snap := metrics.Snapshot()
	if snap["attacks_accepted"].(int64) == 0 {
		t.Fatalf("expected the bot to attack, got %v", snap)
	}
	if snap["inputs_accepted"].(int64) == 0 {
		t.Fatalf("expected the bot to send inputs, got %v", snap)
	}
	if _, ok := w.Player(conn.ID()); !ok {
		t.Fatalf("expected the bot to be in the lobby")
	}
}

func TestBotSeedIsDeterministic(t *testing.T) {
	a := New(nil, Options{Seed: 7})
	b := New(nil, Options{Seed: 7})
	for i := 0; i < 5; i++ {
		if a.wander() != b.wander() {
			t.Fatalf("expected identical wander sequences for the same seed")
		}
	}
}
