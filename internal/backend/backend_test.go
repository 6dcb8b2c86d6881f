package backend

import (
	"errors"
	"testing"

	"edmoserver/internal/config"
	"edmoserver/internal/edmoerr"
	"edmoserver/internal/rtc"
)

func TestOnTransportConnectCreatesSessionOnce(t *testing.T) {
	cfg := config.Load()
	cfg.UDPPort = 0
	cfg.SessionLogDir = t.TempDir()

	b, err := New(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	link1 := b.onTransportConnect("robot-A")
	link2 := b.onTransportConnect("robot-A")
	if link1 != link2 {
		t.Fatalf("expected the same fused link to be reused for the same identity")
	}

	if _, ok := b.GetSession("robot-A"); !ok {
		t.Fatalf("expected a session to exist after first connect")
	}
	if len(b.Sessions()) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(b.Sessions()))
	}
}

func TestRegisterPlayerRefusesUnknownIdentity(t *testing.T) {
	cfg := config.Load()
	cfg.UDPPort = 0
	cfg.SessionLogDir = t.TempDir()

	b, err := New(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cb := &rtc.Callbacks{}
	ch := rtc.NewMemoryChannel(cb)
	_, err = b.RegisterPlayer("ghost", ch, cb, "alice")
	if !errors.Is(err, edmoerr.ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
}
