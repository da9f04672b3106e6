package memory

import (
	"errors"
	"testing"

	"blitz/protocol"
	"blitz/transport"
)

func TestDialProducesConnectEventWithUniqueIDs(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	a, err := n.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	b, err := n.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct client ids, got %d twice", a.ID())
	}
	got := srv.ConnectedEvents()
	if len(got) != 2 || got[0] != a.ID() || got[1] != b.ID() {
		t.Fatalf("expected connect events [%d %d], got %v", a.ID(), b.ID(), got)
	}
	if again := srv.ConnectedEvents(); len(again) != 0 {
		t.Fatalf("expected events to be drained, got %v", again)
	}
}

func TestMessagesKeepOrderPerChannel(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	c, _ := n.Dial()

	for _, b := range []byte{1, 2, 3} {
		if err := c.Send(protocol.ChannelInput, []byte{b}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	_ = c.Send(protocol.ChannelCommand, []byte{9})

	for _, want := range []byte{1, 2, 3} {
		msg, ok := srv.Receive(c.ID(), protocol.ChannelInput)
		if !ok || msg[0] != want {
			t.Fatalf("expected %d, got %v (ok=%v)", want, msg, ok)
		}
	}
	if _, ok := srv.Receive(c.ID(), protocol.ChannelInput); ok {
		t.Fatalf("expected input channel to be empty")
	}
	if msg, ok := srv.Receive(c.ID(), protocol.ChannelCommand); !ok || msg[0] != 9 {
		t.Fatalf("expected command 9, got %v", msg)
	}
}

func TestClientCloseNotifiesServerAndDropsPending(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	c, _ := n.Dial()
	_ = c.Send(protocol.ChannelInput, []byte{1})
	_ = c.Close()

	if got := srv.DisconnectedEvents(); len(got) != 1 || got[0] != c.ID() {
		t.Fatalf("expected disconnect event for %d, got %v", c.ID(), got)
	}
	if _, ok := srv.Receive(c.ID(), protocol.ChannelInput); ok {
		t.Fatalf("expected pending messages to be dropped")
	}
	if err := srv.Send(c.ID(), protocol.ChannelServerMessages, []byte{1}); !errors.Is(err, transport.ErrUnknownClient) {
		t.Fatalf("expected unknown client error, got %v", err)
	}
}

func TestServerDisconnectEndsClientSession(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	c, _ := n.Dial()
	srv.Disconnect(c.ID())

	if c.Connected() {
		t.Fatalf("expected client session to end")
	}
	if err := c.Send(protocol.ChannelInput, []byte{1}); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if got := srv.DisconnectedEvents(); len(got) != 0 {
		t.Fatalf("expected no event for server-initiated disconnect, got %v", got)
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	a, _ := n.Dial()
	b, _ := n.Dial()
	srv.ConnectedEvents()
	if err := srv.Broadcast(protocol.ChannelNetworkedEntities, []byte{5}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	for _, c := range []*Client{a, b} {
		if msg, ok := c.Receive(protocol.ChannelNetworkedEntities); !ok || msg[0] != 5 {
			t.Fatalf("client %d expected broadcast, got %v", c.ID(), msg)
		}
	}
}

// 连接事件被取走之前的广播不投递给新客户端，避免与入场回放重复
func TestBroadcastSkipsClientsNotYetConnected(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	old, _ := n.Dial()
	srv.ConnectedEvents()
	fresh, _ := n.Dial()

	if err := srv.Broadcast(protocol.ChannelServerMessages, []byte{1}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if _, ok := old.Receive(protocol.ChannelServerMessages); !ok {
		t.Fatalf("expected the announced client to receive the broadcast")
	}
	if msg, ok := fresh.Receive(protocol.ChannelServerMessages); ok {
		t.Fatalf("expected no broadcast before the connect event was drained, got %v", msg)
	}

	if got := srv.ConnectedEvents(); len(got) != 1 || got[0] != fresh.ID() {
		t.Fatalf("expected connect event for %d, got %v", fresh.ID(), got)
	}
	if err := srv.Broadcast(protocol.ChannelServerMessages, []byte{2}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if msg, ok := fresh.Receive(protocol.ChannelServerMessages); !ok || msg[0] != 2 {
		t.Fatalf("expected broadcast after the connect event, got %v", msg)
	}
	// 单发不受连接事件影响
	late, _ := n.Dial()
	if err := srv.Send(late.ID(), protocol.ChannelServerMessages, []byte{3}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg, ok := late.Receive(protocol.ChannelServerMessages); !ok || msg[0] != 3 {
		t.Fatalf("expected direct send to reach a session before its connect event, got %v", msg)
	}
}

func TestClosedServerFailsPoll(t *testing.T) {
	n := NewNetwork()
	srv := n.Server()
	c, _ := n.Dial()
	_ = srv.Close()
	if err := srv.Poll(); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if c.Connected() {
		t.Fatalf("expected client to be disconnected after server close")
	}
	if _, err := n.Dial(); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected dial to fail after close, got %v", err)
	}
}
