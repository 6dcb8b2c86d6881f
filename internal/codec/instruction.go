// Package codec implements the EDMO binary wire protocol (spec §4.1):
// framing, backslash-escaping, instruction encoding, and the little-endian
// payload layouts exchanged with the robot firmware. Bit-exact
// compatibility with the firmware is required — nothing here may diverge
// from the byte layouts named in spec §4.1/§6.
package codec

// Instruction identifies the kind of command carried by a packet.
type Instruction int8

const (
	Identify         Instruction = 0
	SessionStart     Instruction = 1
	GetTime          Instruction = 2
	UpdateOscillator Instruction = 3
	SendMotorData    Instruction = 4
	SendIMUData      Instruction = 5

	Invalid Instruction = -1
)

// Sanitize maps any out-of-range instruction byte to Invalid, exactly as
// EDMOCommands.sanitize does in the original firmware-facing server.
func Sanitize(raw int) Instruction {
	if raw < 0 || raw > int(SendIMUData) {
		return Invalid
	}
	return Instruction(raw)
}
