// Package fused implements the fused link (spec §4.4): per-identity
// routing across the serial and UDP transports, preferring serial for
// writes and firing onReconnect on the rising edge of connectivity.
package fused

import (
	"fmt"
	"sync"

	"edmoserver/internal/codec"
	"edmoserver/internal/collections"
)

// endpoint is the minimal surface a transport endpoint must offer to be
// bound into a Link.
type endpoint interface {
	Write(packet []byte) error
}

// Link is one robot identity's fused view across its connected transports.
// At most one serial and one UDP endpoint are bound at a time; both may be
// bound concurrently.
type Link struct {
	Identity string

	mu     sync.Mutex
	serial endpoint
	udp    endpoint

	onMessage    func(cmd codec.Command)
	onReconnect  func()
	onDisconnect func()
}

// New creates a link with no bound transports yet.
func New(identity string, onMessage func(cmd codec.Command), onReconnect func(), onDisconnect func()) *Link {
	return &Link{Identity: identity, onMessage: onMessage, onReconnect: onReconnect, onDisconnect: onDisconnect}
}

// BindSerial attaches (or replaces) the serial endpoint for this identity,
// firing onReconnect if this is the rising edge of connectivity.
func (l *Link) BindSerial(ep endpoint) {
	l.mu.Lock()
	wasConnected := l.connectedLocked()
	l.serial = ep
	rising := !wasConnected && l.connectedLocked()
	l.mu.Unlock()

	if rising && l.onReconnect != nil {
		l.onReconnect()
	}
}

// BindUDP attaches (or replaces) the UDP endpoint for this identity.
func (l *Link) BindUDP(ep endpoint) {
	l.mu.Lock()
	wasConnected := l.connectedLocked()
	l.udp = ep
	rising := !wasConnected && l.connectedLocked()
	l.mu.Unlock()

	if rising && l.onReconnect != nil {
		l.onReconnect()
	}
}

// UnbindSerial clears the serial endpoint, e.g. on port disconnect, firing
// onDisconnect if this is the falling edge of connectivity (spec §4.4).
func (l *Link) UnbindSerial() {
	l.mu.Lock()
	wasConnected := l.connectedLocked()
	l.serial = nil
	falling := wasConnected && !l.connectedLocked()
	l.mu.Unlock()

	if falling && l.onDisconnect != nil {
		l.onDisconnect()
	}
}

// UnbindUDP clears the UDP endpoint, e.g. on peer staleness eviction,
// firing onDisconnect if this is the falling edge of connectivity.
func (l *Link) UnbindUDP() {
	l.mu.Lock()
	wasConnected := l.connectedLocked()
	l.udp = nil
	falling := wasConnected && !l.connectedLocked()
	l.mu.Unlock()

	if falling && l.onDisconnect != nil {
		l.onDisconnect()
	}
}

// HasConnection reports whether any transport is currently bound.
func (l *Link) HasConnection() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connectedLocked()
}

func (l *Link) connectedLocked() bool {
	return l.serial != nil || l.udp != nil
}

// Deliver routes an inbound decoded command to this link's onMessage
// callback, regardless of which transport it arrived over.
func (l *Link) Deliver(cmd codec.Command) {
	if l.onMessage != nil {
		l.onMessage(cmd)
	}
}

// Write sends packet over serial if bound, else UDP. Returns an error if
// neither transport is currently connected.
func (l *Link) Write(packet []byte) error {
	l.mu.Lock()
	serial, udp := l.serial, l.udp
	l.mu.Unlock()

	if serial != nil {
		return serial.Write(packet)
	}
	if udp != nil {
		return udp.Write(packet)
	}
	return fmt.Errorf("link %s: no transport connected", l.Identity)
}

// Registry is the backend's {identity → Link} table.
type Registry struct {
	links *collections.SafeMap[string, *Link]
}

// NewRegistry creates an empty link registry.
func NewRegistry() *Registry {
	return &Registry{links: collections.NewSafeMap[string, *Link]()}
}

// GetOrCreate returns the existing link for identity, or creates one using
// the supplied callbacks if none exists yet. created reports whether this
// call created a new link. Atomic across concurrent callers (the serial
// and UDP managers each run their own goroutine and may race to be the
// first to see a given identity), backed by SafeMap.GetOrDefault rather
// than a Get-then-Set check.
func (r *Registry) GetOrCreate(identity string, onMessage func(cmd codec.Command), onReconnect func(), onDisconnect func()) (link *Link, created bool) {
	candidate := New(identity, onMessage, onReconnect, onDisconnect)
	link = r.links.GetOrDefault(identity, candidate)
	return link, link == candidate
}

// Get returns the link for identity, if any.
func (r *Registry) Get(identity string) (*Link, bool) {
	return r.links.Get(identity)
}

// All returns a snapshot of every tracked link.
func (r *Registry) All() []*Link {
	return r.links.Values()
}

// Remove deletes identity's link entirely, e.g. once it has no transports
// and its session has been torn down.
func (r *Registry) Remove(identity string) {
	r.links.Delete(identity)
}
