package session

import (
	"testing"

	"edmoserver/internal/codec"
	"edmoserver/internal/rtc"
	"edmoserver/internal/transport/fused"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	var s *Session
	link := fused.New("robot-A", func(cmd codec.Command) { s.HandleCommand(cmd) }, func() { s.Reset() }, nil)
	s = New("robot-A", 3, link, t.TempDir(), nil)
	return s
}

func TestRegisterPlayerPromotesOnConnect(t *testing.T) {
	s := newTestSession(t)

	cb := &rtc.Callbacks{}
	ch := rtc.NewMemoryChannel(cb)
	p, err := s.RegisterPlayer(ch, cb, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Number != -1 {
		t.Fatalf("expected unassigned before connect, got %d", p.Number)
	}

	ch.Open()

	if p.Number != 0 {
		t.Fatalf("expected slot 0 assigned, got %d", p.Number)
	}
	if len(ch.Sent) == 0 {
		t.Fatalf("expected onboarding messages to be sent")
	}
	if ch.Sent[0] != "sys.number 0" {
		t.Fatalf("expected first message to assign slot, got %q", ch.Sent[0])
	}
}

func TestRegisterPlayerRefusesWhenFull(t *testing.T) {
	s := New("robot-A", 1, fused.New("robot-A", nil, nil, nil), t.TempDir(), nil)

	cb1 := &rtc.Callbacks{}
	ch1 := rtc.NewMemoryChannel(cb1)
	if _, err := s.RegisterPlayer(ch1, cb1, "alice"); err != nil {
		t.Fatalf("unexpected error for first player: %v", err)
	}
	ch1.Open()

	cb2 := &rtc.Callbacks{}
	ch2 := rtc.NewMemoryChannel(cb2)
	if _, err := s.RegisterPlayer(ch2, cb2, "bob"); err == nil {
		t.Fatalf("expected error registering beyond capacity")
	}
}

func TestPlayerCloseReturnsSlotAndRemovesPlayer(t *testing.T) {
	s := newTestSession(t)

	cb := &rtc.Callbacks{}
	ch := rtc.NewMemoryChannel(cb)
	p, _ := s.RegisterPlayer(ch, cb, "alice")
	ch.Open()
	if p.Number != 0 {
		t.Fatalf("expected slot 0, got %d", p.Number)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Number != -1 {
		t.Fatalf("expected slot released on disconnect, got %d", p.Number)
	}
	if s.HasPlayers() {
		t.Fatalf("expected no players remaining after onClosed")
	}
}

func TestVoteMessageTogglesWithoutTouchingMotor(t *testing.T) {
	s := newTestSession(t)

	cb := &rtc.Callbacks{}
	ch := rtc.NewMemoryChannel(cb)
	p, _ := s.RegisterPlayer(ch, cb, "alice")
	ch.Open()

	before := s.motors[0].State
	ch.Deliver("vote 1")

	if !p.Voted {
		t.Fatalf("expected vote to register true")
	}
	if s.motors[0].State != before {
		t.Fatalf("vote message should not mutate motor state")
	}
}

func TestPlayerMessageAdjustsAssignedMotor(t *testing.T) {
	s := newTestSession(t)

	cb := &rtc.Callbacks{}
	ch := rtc.NewMemoryChannel(cb)
	_, _ = s.RegisterPlayer(ch, cb, "alice")
	ch.Open()

	ch.Deliver("amp 45")

	if s.motors[0].State.Amp != 45 {
		t.Fatalf("expected motor 0 amp updated, got %v", s.motors[0].State.Amp)
	}
}

func TestIngestMotorTelemetryDropsUnknownMotor(t *testing.T) {
	s := newTestSession(t)

	payload := make([]byte, 29)
	payload[0] = 99 // out of range for a 3-motor session
	s.HandleCommand(codec.Command{Instruction: codec.SendMotorData, Data: payload})

	if s.motorCurrent[0] != nil {
		t.Fatalf("expected no telemetry stored for out-of-range motor id")
	}
}

func TestStartLogCreatesStandardChannels(t *testing.T) {
	s := newTestSession(t)
	if err := s.StartLog(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.StopLog()

	if s.log == nil {
		t.Fatalf("expected log to be active")
	}
}
