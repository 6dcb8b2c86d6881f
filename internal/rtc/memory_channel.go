package rtc

import "sync"

// MemoryChannel is an in-memory Channel double used by tests in place of a
// real WebRTC peer (spec §4.7: "for testing it is a pair of in-memory
// queues"). Sent text is appended to Sent; Deliver feeds inbound text to
// OnMessage as if it had arrived over the wire.
type MemoryChannel struct {
	*Callbacks

	mu     sync.Mutex
	Sent   []string
	open   bool
	closed bool
}

// NewMemoryChannel creates a channel that is not yet open; call Open to
// simulate the data channel becoming ready. Send records text whether or
// not the channel is open.
func NewMemoryChannel(callbacks *Callbacks) *MemoryChannel {
	return &MemoryChannel{Callbacks: callbacks}
}

// Open marks the channel ready and fires OnConnect.
func (m *MemoryChannel) Open() {
	m.mu.Lock()
	already := m.open
	m.open = true
	m.mu.Unlock()

	if !already {
		m.fireConnect()
	}
}

// Deliver simulates an inbound message from the remote player.
func (m *MemoryChannel) Deliver(text string) {
	m.fireMessage(text)
}

// Send records outbound text. Unlike PeerChannel it does not distinguish
// buffered-vs-open state beyond recording, since tests assert directly on
// Sent.
func (m *MemoryChannel) Send(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
}

// Close marks the channel closed and fires OnDisconnect (if it was open)
// then OnClosed, mirroring PeerChannel's transition.
func (m *MemoryChannel) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	wasOpen := m.open
	m.closed = true
	m.open = false
	m.mu.Unlock()

	if wasOpen {
		m.fireDisconnect()
	}
	m.fireClosed()
	return nil
}
