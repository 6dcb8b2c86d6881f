package motor

import "testing"

func TestAdjustFromKnownTokens(t *testing.T) {
	m := New(0)
	m.Dirty = false

	m.AdjustFrom("freq 0.5")
	if m.State.Freq != 0.5 {
		t.Fatalf("freq not applied: got %v", m.State.Freq)
	}
	if !m.Dirty {
		t.Fatalf("expected dirty after recognized update")
	}
}

func TestAdjustFromUnknownTokenIgnoredSilently(t *testing.T) {
	m := New(0)
	before := m.State
	m.Dirty = false

	m.AdjustFrom("bogus 1")
	if m.State != before {
		t.Fatalf("state mutated by unknown token: %+v", m.State)
	}
	if m.Dirty {
		t.Fatalf("dirty set by unknown token")
	}
}

func TestAdjustFromRevOrdCoercion(t *testing.T) {
	m := New(0)
	m.AdjustFrom("rev 1")
	if !m.State.Reverse {
		t.Fatalf("expected reverse true")
	}
	m.AdjustFrom("rev 0")
	if m.State.Reverse {
		t.Fatalf("expected reverse false")
	}
	m.AdjustFrom("ord 1")
	if !m.State.Orders {
		t.Fatalf("expected orders true")
	}
	m.AdjustFrom("ord 0")
	if m.State.Orders {
		t.Fatalf("expected orders false")
	}
}

func TestAngleDefaultState(t *testing.T) {
	m := New(0)
	// amp=0 by default, so angle is 0 regardless of phase.
	if got := m.State.Angle(); got != 0 {
		t.Fatalf("expected zero angle for zero amplitude, got %v", got)
	}
}

func TestPositionClampsToServoRange(t *testing.T) {
	s := State{Amp: 1000, Offset: 0, Phase: 0} // angle = amp*sin(0)=0 regardless, use offset to push out of range
	s.Offset = 500
	pos := s.Position(100, 454)
	if pos != 454 {
		t.Fatalf("expected clamp to max position 454, got %v", pos)
	}

	s.Offset = -500
	pos = s.Position(100, 454)
	if pos != 100 {
		t.Fatalf("expected clamp to min position 100, got %v", pos)
	}
}
