package codec

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("hello"),
		[]byte("ED"),
		[]byte("MO"),
		[]byte(`\`),
		[]byte(`a\b`),
		[]byte("EDMOEDMO"),
		{0x00, 0x01, 0xFF, 'E', 'D', 'M', 'O'},
	}

	for _, c := range cases {
		got := Unescape(Escape(append([]byte(nil), c...)))
		if !bytes.Equal(got, c) {
			t.Fatalf("round trip mismatch: input %q, got %q", c, got)
		}
	}
}

func TestEscapeUnescapeRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := r.Intn(40)
		s := make([]byte, n)
		for j := range s {
			s[j] = byte(r.Intn(256))
		}
		got := Unescape(Escape(append([]byte(nil), s...)))
		if !bytes.Equal(got, s) {
			t.Fatalf("round trip mismatch for %v: got %v", s, got)
		}
	}
}

func TestCreateParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"identify", Command{Instruction: Identify, Data: []byte("robot-A")}},
		{"session_start", Command{Instruction: SessionStart, Data: EncodeSessionStart(12345)}},
		{"empty_payload", Command{Instruction: GetTime, Data: nil}},
		{"payload_with_MO", Command{Instruction: SendMotorData, Data: []byte("xxMOxx")}},
		{"payload_with_ED", Command{Instruction: SendIMUData, Data: []byte("xxEDxx")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wire := FromCommand(tc.cmd)
			got := TryParse(wire)
			if got.Instruction != tc.cmd.Instruction {
				t.Fatalf("instruction mismatch: got %v want %v", got.Instruction, tc.cmd.Instruction)
			}
			if !bytes.Equal(got.Data, tc.cmd.Data) {
				t.Fatalf("payload mismatch: got %v want %v", got.Data, tc.cmd.Data)
			}
		})
	}
}

func TestTryParseInvalidInstruction(t *testing.T) {
	// Instruction byte 99 is out of range; Create doesn't clamp it since
	// range validity is TryParse's job on the receiving side.
	raw := append([]byte("ED"), append([]byte{99}, "MO"...)...)
	got := TryParse(raw)
	if got.Instruction != Invalid {
		t.Fatalf("expected Invalid, got %v", got.Instruction)
	}
}

func TestTryParseMissingHeaderFooter(t *testing.T) {
	got := TryParse([]byte("garbage"))
	if got.Instruction != Invalid {
		t.Fatalf("expected Invalid for unframed input, got %v", got.Instruction)
	}
}

func TestFramerRecoversPacketAmongNoise(t *testing.T) {
	f := NewFramer()
	cmd := Command{Instruction: Identify, Data: []byte("robot-A")}
	stream := append([]byte("noiseXY"), FromCommand(cmd)...)
	stream = append(stream, []byte("trailingNoise")...)

	cmds := f.Feed(stream)
	if len(cmds) != 1 {
		t.Fatalf("expected exactly 1 decoded command, got %d: %+v", len(cmds), cmds)
	}
	if cmds[0].Instruction != Identify || string(cmds[0].Data) != "robot-A" {
		t.Fatalf("unexpected decoded command: %+v", cmds[0])
	}
}

func TestFramerHandlesEscapedFooterInPayload(t *testing.T) {
	// S5: a telemetry payload whose bytes contain the literal sequence "MO".
	f := NewFramer()
	payload := append([]byte{0}, []byte("xxMOxx")...)
	wire := Create(SendMotorData, payload)

	cmds := f.Feed(wire)
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if !bytes.Equal(cmds[0].Data, payload) {
		t.Fatalf("escaped payload not recovered: got %v want %v", cmds[0].Data, payload)
	}
}

func TestOscillatorUpdateByteLayout(t *testing.T) {
	u := OscillatorUpdate{MotorID: 0, Freq: 0.5, Amp: 0, Offset: 90, PhaseShift: 0, Reverse: 0, Orders: 0}
	buf := EncodeOscillatorUpdate(u)
	if len(buf) != 21 {
		t.Fatalf("expected 21-byte payload, got %d", len(buf))
	}
	if buf[0] != 0 {
		t.Fatalf("motor id mismatch")
	}
	if got := getFloat32(buf[1:5]); got != 0.5 {
		t.Fatalf("freq mismatch: got %v", got)
	}
	if got := getFloat32(buf[9:13]); got != 90 {
		t.Fatalf("offset mismatch: got %v", got)
	}
}

func TestMotorTelemetryRoundTrip(t *testing.T) {
	want := MotorTelemetry{MotorID: 2, Freq: 1.5, Amp: 45, Offset: 10, PhaseShift: 0.25, Phase: 3.1, Reverse: 1, Orders: 0, Output: 321}

	buf := make([]byte, motorTelemetrySize)
	buf[0] = want.MotorID
	putFloat32(buf[1:5], want.Freq)
	putFloat32(buf[5:9], want.Amp)
	putFloat32(buf[9:13], want.Offset)
	putFloat32(buf[13:17], want.PhaseShift)
	putFloat32(buf[17:21], want.Phase)
	buf[21] = byte(want.Reverse)
	buf[23] = byte(want.Orders)
	binary.LittleEndian.PutUint32(buf[25:29], uint32(want.Output))

	got, err := DecodeMotorTelemetry(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}
