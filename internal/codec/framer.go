package codec

// Framer reassembles packet boundaries out of an arbitrary byte stream
// (spec §4.1 "Framer contract"). It holds exactly one receive buffer and
// is not safe for concurrent use by multiple goroutines — each transport
// endpoint (one serial port, one UDP peer) owns its own Framer.
type Framer struct {
	buf    []byte
	active bool
}

// NewFramer creates an idle framer with an empty receive buffer.
func NewFramer() *Framer {
	return &Framer{}
}

// FeedByte appends one byte to the receive buffer and returns a decoded
// Command whenever a complete packet's footer is recognized. ok is false
// on every byte that does not complete a packet.
func (f *Framer) FeedByte(b byte) (cmd Command, ok bool) {
	f.buf = append(f.buf, b)

	if len(f.buf) >= len(header) && hasSuffix(f.buf, header) {
		f.buf = append([]byte(nil), header...)
		f.active = true
	}

	if !f.active {
		// Bound memory: only the last two bytes are ever needed to
		// recognize a header starting anywhere in the stream.
		if len(f.buf) >= 2 {
			f.buf = f.buf[len(f.buf)-2:]
		}
		return Command{}, false
	}

	if !hasSuffix(f.buf, footer) {
		return Command{}, false
	}

	f.active = false
	cmd = TryParse(f.buf)
	f.buf = nil
	return cmd, true
}

// Feed appends data one byte at a time and returns every complete Command
// recognized along the way, in arrival order.
func (f *Framer) Feed(data []byte) []Command {
	var out []Command
	for _, b := range data {
		if cmd, ok := f.FeedByte(b); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func hasSuffix(buf, suffix []byte) bool {
	if len(buf) < len(suffix) {
		return false
	}
	tail := buf[len(buf)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}
