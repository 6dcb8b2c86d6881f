// Package rtc implements the player channel (spec §4.7): a thin adapter
// over a duplex text channel with connect/disconnect/close notifications.
// The production implementation wraps a pion/webrtc/v4 DataChannel; a
// second, in-memory implementation exists for tests.
package rtc

// Channel is the player-facing surface a Session talks to. Implementations
// must buffer Send calls until the channel is actually open (spec §4.7).
type Channel interface {
	// Send queues text for delivery; buffered if the channel isn't open yet.
	Send(text string)
	// Close ends the channel, eventually firing OnClosed.
	Close() error
}

// Callbacks is the fixed set of handler slots a Channel notifies, replacing
// the original's ad-hoc "list of callbacks" attributes with named,
// construction-time-registered vectors (spec §9 Design Notes
// "Callbacks-as-lists pattern").
type Callbacks struct {
	OnMessage    []func(text string)
	OnConnect    []func()
	OnDisconnect []func()
	OnClosed     []func()
}

func (c *Callbacks) fireMessage(text string) {
	for _, fn := range c.OnMessage {
		fn(text)
	}
}

func (c *Callbacks) fireConnect() {
	for _, fn := range c.OnConnect {
		fn()
	}
}

func (c *Callbacks) fireDisconnect() {
	for _, fn := range c.OnDisconnect {
		fn()
	}
}

func (c *Callbacks) fireClosed() {
	for _, fn := range c.OnClosed {
		fn()
	}
}
