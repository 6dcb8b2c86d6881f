// Package motor implements the EDMO oscillator parameter model (spec §3,
// §4.5): the scalar parameter bag, derived angle/position, and the
// dirty-bit tracking that decides which motors get serialized on a tick.
package motor

import (
	"math"
	"strconv"
	"strings"

	"edmoserver/internal/codec"
)

// State is the oscillator parameter bag of one motor, mirroring the
// firmware's own EDMOMotorState.
type State struct {
	Freq       float32
	Amp        float32
	Offset     float32
	PhaseShift float32
	Phase      float32
	Reverse    bool
	Orders     bool
	Output     int32
}

// NewDefaultState returns the firmware's default oscillator state: zero
// amplitude and frequency, offset centered at 90 degrees.
func NewDefaultState() State {
	return State{Offset: 90}
}

// Angle is the derived instantaneous swing angle (spec §3):
// (reverse ? -amp : amp) * sin(phase - phaseShift). The server never
// integrates phase locally — it is maintained by the robot and echoed
// back in telemetry.
func (s State) Angle() float32 {
	amp := s.Amp
	if s.Reverse {
		amp = -amp
	}
	return amp * float32(math.Sin(float64(s.Phase-s.PhaseShift)))
}

// Position maps Angle()+Offset through a clamp to [0,180] then a linear
// map to the servo range [min,max] (spec §3, default [100,454]).
func (s State) Position(min, max int) int {
	constrained := clamp(s.Angle()+s.Offset, 0, 180)
	return mapRange(constrained, 0, 180, float32(min), float32(max))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mapRange(x, inMin, inMax, outMin, outMax float32) int {
	return int((x-inMin)*(outMax-outMin)/(inMax-inMin)) + int(outMin)
}

// Motor is one oscillator slot of a session: its current State plus the
// dirty flag that gates transmission on the next tick.
type Motor struct {
	ID    uint8
	State State
	Dirty bool
}

// New creates a motor in its default state, dirty so its initial
// parameters are pushed on the session's first tick.
func New(id uint8) *Motor {
	return &Motor{ID: id, State: NewDefaultState(), Dirty: true}
}

// AdjustFrom parses a player command of the form "TOKEN VALUE" (spec
// §4.5) and mutates the matching field. Unrecognized tokens, and
// malformed values, are ignored silently — only a recognized, well-formed
// update marks the motor dirty.
func (m *Motor) AdjustFrom(input string) {
	parts := strings.Fields(input)
	if len(parts) < 2 {
		return
	}

	value, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return
	}
	f := float32(value)

	switch strings.ToLower(parts[0]) {
	case "amp":
		m.State.Amp = f
	case "off":
		m.State.Offset = f
	case "freq":
		m.State.Freq = f
	case "phb":
		m.State.PhaseShift = f
	case "rev":
		m.State.Reverse = f != 0
	case "ord":
		m.State.Orders = f != 0
	default:
		return
	}

	m.Dirty = true
}

// AsCommand serializes the motor's current parameters as an
// UPDATE_OSCILLATOR wire packet (spec §4.1/§4.5).
func (m *Motor) AsCommand() []byte {
	reverse := int16(0)
	if m.State.Reverse {
		reverse = 1
	}
	orders := int16(0)
	if m.State.Orders {
		orders = 1
	}

	payload := codec.EncodeOscillatorUpdate(codec.OscillatorUpdate{
		MotorID:    m.ID,
		Freq:       m.State.Freq,
		Amp:        m.State.Amp,
		Offset:     m.State.Offset,
		PhaseShift: m.State.PhaseShift,
		Reverse:    reverse,
		Orders:     orders,
	})

	return codec.Create(codec.UpdateOscillator, payload)
}
