package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestServerMessageRoundTripKeepsVariant(t *testing.T) {
	msgs := []ServerMessage{
		PlayerCreate{ID: 42, Entity: 7},
		PlayerDisconnected{ID: 42},
		SpawnProjectile{Entity: 9, Position: V(1.5, -2), Rotation: 0.25},
		DespawnProjectile{Entity: 9},
		DespawnPlayer{Entity: 7},
		RespawnPlayer{Entity: 7},
	}
	for _, msg := range msgs {
		b, err := EncodeServerMessage(msg)
		if err != nil {
			t.Fatalf("encode %T: %v", msg, err)
		}
		got, err := DecodeServerMessage(b)
		if err != nil {
			t.Fatalf("decode %T: %v", msg, err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Fatalf("expected %#v, got %#v", msg, got)
		}
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	b, err := EncodeServerMessage(DespawnPlayer{Entity: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b[0] = 0x7f
	if _, err := DecodeServerMessage(b); !errors.Is(err, ErrUnknownTag) || !errors.Is(err, ErrDecode) {
		t.Fatalf("expected unknown tag decode failure, got %v", err)
	}
}

func TestDecodeRejectsMessageFromOtherChannel(t *testing.T) {
	b, err := EncodeCommand(BasicAttack{AimPoint: V(10, 0)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeServerMessage(b); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected command bytes to fail on server channel, got %v", err)
	}
	if _, err := DecodeInput(b); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected command bytes to fail on input channel, got %v", err)
	}
}

func TestDecodeFailures(t *testing.T) {
	valid, err := EncodeInput(PlayerInput{Right: true, AimPoint: V(3, 4)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cases := map[string][]byte{
		"empty":     nil,
		"tag only":  {valid[0]},
		"truncated": valid[:len(valid)-2],
		"trailing":  append(append([]byte(nil), valid...), 0x00),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeInput(payload); !errors.Is(err, ErrDecode) {
				t.Fatalf("expected decode failure, got %v", err)
			}
		})
	}
}

// msgpack 会把 nil、空数组、map 静默解成零值结构体，这些消息体都必须被拒绝
func TestDecodeRejectsMalformedBodies(t *testing.T) {
	decoders := []struct {
		name   string
		tag    byte
		decode func([]byte) error
	}{
		{"input", tagInput, func(b []byte) error { _, err := DecodeInput(b); return err }},
		{"command", tagBasicAttack, func(b []byte) error { _, err := DecodeCommand(b); return err }},
		{"player create", tagPlayerCreate, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"player disconnected", tagPlayerDisconnected, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"spawn projectile", tagSpawnProjectile, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"despawn projectile", tagDespawnProjectile, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"despawn player", tagDespawnPlayer, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"respawn player", tagRespawnPlayer, func(b []byte) error { _, err := DecodeServerMessage(b); return err }},
		{"snapshot", tagNetworkedEntities, func(b []byte) error { _, err := DecodeNetworkedEntities(b); return err }},
	}
	bodies := map[string][]byte{
		"nil":         {0xc0},
		"empty array": {0x90},
		"empty map":   {0x80},
		"map":         {0x81, 0xa1, 'x', 0x01},
		"array16":     {0xdc, 0x00, 0x00},
		"string":      {0xa1, 'x'},
	}
	for _, d := range decoders {
		for bodyName, body := range bodies {
			payload := append([]byte{d.tag}, body...)
			if err := d.decode(payload); !errors.Is(err, ErrDecode) {
				t.Fatalf("%s with %s body: expected decode failure, got %v", d.name, bodyName, err)
			}
		}
	}
}

func TestDecodeRejectsWrongFieldShapes(t *testing.T) {
	cases := map[string]struct {
		payload []byte
		decode  func([]byte) error
	}{
		// PlayerInput{Up,Down,Left,Right,AimPoint}，AimPoint 为 nil
		"input nil aim": {
			[]byte{tagInput, 0x95, 0xc2, 0xc2, 0xc2, 0xc2, 0xc0},
			func(b []byte) error { _, err := DecodeInput(b); return err },
		},
		// 方向键用整数代替 bool
		"input int flag": {
			[]byte{tagInput, 0x95, 0x01, 0xc2, 0xc2, 0xc2, 0x92, 0xca, 0, 0, 0, 0, 0xca, 0, 0, 0, 0},
			func(b []byte) error { _, err := DecodeInput(b); return err },
		},
		// 少一个字段
		"input short": {
			[]byte{tagInput, 0x94, 0xc2, 0xc2, 0xc2, 0xc2},
			func(b []byte) error { _, err := DecodeInput(b); return err },
		},
		// PlayerCreate 多一个字段
		"player create long": {
			[]byte{tagPlayerCreate, 0x93, 0x01, 0x02, 0x03},
			func(b []byte) error { _, err := DecodeServerMessage(b); return err },
		},
		// PlayerCreate 的 id 为 nil
		"player create nil id": {
			[]byte{tagPlayerCreate, 0x92, 0xc0, 0x02},
			func(b []byte) error { _, err := DecodeServerMessage(b); return err },
		},
		// SpawnProjectile 的 Position 为空数组
		"spawn empty position": {
			[]byte{tagSpawnProjectile, 0x93, 0x01, 0x90, 0xca, 0, 0, 0, 0},
			func(b []byte) error { _, err := DecodeServerMessage(b); return err },
		},
		// 快照中的 Transform 为 nil
		"snapshot nil transform": {
			[]byte{tagNetworkedEntities, 0x93, 0x01, 0x91, 0x07, 0x91, 0xc0},
			func(b []byte) error { _, err := DecodeNetworkedEntities(b); return err },
		},
		// 快照 Tick 为浮点
		"snapshot float tick": {
			[]byte{tagNetworkedEntities, 0x93, 0xca, 0, 0, 0, 0, 0xc0, 0xc0},
			func(b []byte) error { _, err := DecodeNetworkedEntities(b); return err },
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := tc.decode(tc.payload); !errors.Is(err, ErrDecode) {
				t.Fatalf("expected decode failure, got %v", err)
			}
		})
	}
}

func TestEmptySnapshotDecodes(t *testing.T) {
	for name, n := range map[string]NetworkedEntities{
		"nil slices":   {Tick: 3},
		"empty slices": {Tick: 4, Entities: []ServerEntityID{}, Transforms: []Transform{}},
	} {
		b, err := EncodeNetworkedEntities(n)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got, err := DecodeNetworkedEntities(b)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if got.Tick != n.Tick || got.Len() != 0 {
			t.Fatalf("%s: unexpected snapshot %+v", name, got)
		}
	}
}

func TestInputRoundTrip(t *testing.T) {
	in := PlayerInput{Up: true, Left: true, AimPoint: V(-20, 15.5)}
	b, err := EncodeInput(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeInput(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Fatalf("expected %+v, got %+v", in, got)
	}
}

func TestNetworkedEntitiesRejectsMismatchedArrays(t *testing.T) {
	if _, err := EncodeNetworkedEntities(NetworkedEntities{Entities: []ServerEntityID{1}}); err == nil {
		t.Fatalf("expected encode to reject mismatched arrays")
	}

	snapshot := NetworkedEntities{Tick: 5}
	snapshot.Append(1, Transform{Position: V(1, 2)})
	snapshot.Append(2, Transform{Position: V(3, 4), Rotation: 1})
	b, err := EncodeNetworkedEntities(snapshot)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeNetworkedEntities(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tick != 5 || got.Len() != 2 || got.Transforms[1].Position != V(3, 4) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestPlayerInputAxis(t *testing.T) {
	tests := []struct {
		in   PlayerInput
		want Vec2
	}{
		{PlayerInput{}, V(0, 0)},
		{PlayerInput{Right: true}, V(1, 0)},
		{PlayerInput{Left: true, Right: true}, V(0, 0)},
		{PlayerInput{Up: true, Left: true}, V(-1, -1)},
		{PlayerInput{Down: true}, V(0, 1)},
	}
	for _, tt := range tests {
		if got := tt.in.Axis(); got != tt.want {
			t.Fatalf("axis for %+v: expected %+v, got %+v", tt.in, tt.want, got)
		}
	}
}

func TestChannelTables(t *testing.T) {
	cfg, ok := Lookup(ServerChannels(), ChannelNetworkedEntities)
	if !ok || cfg.Reliability != UnreliableSequenced {
		t.Fatalf("expected snapshots to be unreliable-sequenced, got %+v", cfg)
	}
	cfg, ok = Lookup(ServerChannels(), ChannelServerMessages)
	if !ok || cfg.Reliability != ReliableOrdered || cfg.ResendInterval == 0 {
		t.Fatalf("expected server messages to be reliable with resend, got %+v", cfg)
	}
	for _, c := range ClientChannels() {
		if c.Reliability != ReliableOrdered {
			t.Fatalf("expected client channel %d to be reliable", c.Channel)
		}
	}
}
