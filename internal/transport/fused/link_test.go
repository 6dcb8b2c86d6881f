package fused

import (
	"errors"
	"testing"
)

var errTest = errors.New("fake write failure")

type fakeEndpoint struct {
	writes [][]byte
	fail   bool
}

func (f *fakeEndpoint) Write(packet []byte) error {
	if f.fail {
		return errTest
	}
	f.writes = append(f.writes, packet)
	return nil
}

func TestBindSerialFiresReconnectOnRisingEdge(t *testing.T) {
	fires := 0
	l := New("robot-A", nil, func() { fires++ }, nil)

	l.BindSerial(&fakeEndpoint{})
	if fires != 1 {
		t.Fatalf("expected 1 reconnect fire, got %d", fires)
	}

	l.BindSerial(&fakeEndpoint{})
	if fires != 1 {
		t.Fatalf("expected no additional fire while already connected, got %d", fires)
	}
}

func TestWritePrefersSerialOverUDP(t *testing.T) {
	l := New("robot-A", nil, nil, nil)
	serialEP := &fakeEndpoint{}
	udpEP := &fakeEndpoint{}
	l.BindSerial(serialEP)
	l.BindUDP(udpEP)

	if err := l.Write([]byte("packet")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(serialEP.writes) != 1 {
		t.Fatalf("expected write to go to serial endpoint")
	}
	if len(udpEP.writes) != 0 {
		t.Fatalf("expected no write to udp endpoint")
	}
}

func TestWriteFallsBackToUDPWhenSerialUnbound(t *testing.T) {
	l := New("robot-A", nil, nil, nil)
	udpEP := &fakeEndpoint{}
	l.BindUDP(udpEP)

	if err := l.Write([]byte("packet")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(udpEP.writes) != 1 {
		t.Fatalf("expected write to go to udp endpoint")
	}
}

func TestWriteFailsWhenNoTransportBound(t *testing.T) {
	l := New("robot-A", nil, nil, nil)
	if err := l.Write([]byte("packet")); err == nil {
		t.Fatalf("expected error when no transport is bound")
	}
}

func TestUnbindDropsConnectionAndRebindFiresReconnectAgain(t *testing.T) {
	fires := 0
	l := New("robot-A", nil, func() { fires++ }, nil)

	l.BindSerial(&fakeEndpoint{})
	l.UnbindSerial()
	if l.HasConnection() {
		t.Fatalf("expected link disconnected after unbind")
	}

	l.BindSerial(&fakeEndpoint{})
	if fires != 2 {
		t.Fatalf("expected reconnect to fire again on second rising edge, got %d", fires)
	}
}

func TestUnbindFiresDisconnectOnlyOnFallingEdge(t *testing.T) {
	fires := 0
	l := New("robot-A", nil, nil, func() { fires++ })

	l.BindSerial(&fakeEndpoint{})
	l.BindUDP(&fakeEndpoint{})

	l.UnbindSerial()
	if fires != 0 {
		t.Fatalf("expected no disconnect fire while udp still bound, got %d", fires)
	}

	l.UnbindUDP()
	if fires != 1 {
		t.Fatalf("expected 1 disconnect fire on the falling edge, got %d", fires)
	}

	l.UnbindUDP()
	if fires != 1 {
		t.Fatalf("expected no additional fire from an already-unbound transport, got %d", fires)
	}
}
