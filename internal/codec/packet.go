package codec

import "bytes"

// header and footer delimit every packet on the wire (spec §4.1).
var (
	header = []byte("ED")
	footer = []byte("MO")
)

// Command is a decoded instruction plus its (already unescaped) payload.
type Command struct {
	Instruction Instruction
	Data        []byte
}

// Create frames instruction and payload into a wire-ready packet: header,
// escaped instruction+payload, footer.
func Create(instruction Instruction, payload []byte) []byte {
	body := make([]byte, 0, len(payload)+1)
	body = append(body, byte(instruction))
	body = append(body, payload...)
	body = Escape(body)

	out := make([]byte, 0, len(header)+len(body)+len(footer))
	out = append(out, header...)
	out = append(out, body...)
	out = append(out, footer...)
	return out
}

// FromCommand re-frames a previously decoded Command, e.g. to retransmit it.
func FromCommand(c Command) []byte {
	return Create(c.Instruction, c.Data)
}

// TryParse strips header/footer from a complete packet and decodes its
// instruction and unescaped payload. A packet lacking the header/footer
// pair yields Command{Invalid, nil}.
func TryParse(packet []byte) Command {
	if !bytes.HasPrefix(packet, header) || !bytes.HasSuffix(packet, footer) {
		return Command{Instruction: Invalid}
	}

	body := packet[len(header) : len(packet)-len(footer)]
	if len(body) == 0 {
		return Command{Instruction: Invalid}
	}

	instruction := Sanitize(int(body[0]))
	data := Unescape(body[1:])

	return Command{Instruction: instruction, Data: data}
}

// Escape doubles every backslash and splits the two-byte header/footer
// sequences with a backslash so they cannot be mistaken for frame
// boundaries inside a payload (spec §4.1).
func Escape(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte(`\`), []byte(`\\`))
	data = bytes.ReplaceAll(data, header, []byte("E\\D"))
	data = bytes.ReplaceAll(data, footer, []byte("M\\O"))
	return data
}

// Unescape reverses Escape: every backslash is dropped and the following
// byte kept verbatim. A trailing lone backslash is dropped.
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' {
			i++
			if i >= len(data) {
				break
			}
		}
		out = append(out, data[i])
	}
	return out
}
