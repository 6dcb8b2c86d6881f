// Package udplink implements the UDP transport (spec §4.3): a single
// broadcast discovery socket, a peer table keyed by remote address, and
// staleness eviction for peers that stop responding.
package udplink

import (
	"fmt"
	"net"
	"sync"
	"time"

	"edmoserver/internal/codec"
	"edmoserver/internal/obs"
)

const staleAfter = 5 * time.Second

// Callbacks mirrors serialport.Callbacks for the UDP side.
type Callbacks struct {
	OnConnect    func(identity string, ep *Endpoint)
	OnMessage    func(identity string, cmd codec.Command)
	OnDisconnect func(identity string)
}

// Manager owns the broadcast socket and the table of identified peers.
type Manager struct {
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	callbacks Callbacks

	mu    sync.Mutex
	peers map[string]*Endpoint // keyed by remote address string
}

// New binds a UDP socket on port and prepares to broadcast IDENTIFY
// requests to broadcastPort on the local subnet.
func New(port, broadcastPort int, callbacks Callbacks) (*Manager, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp discovery socket on port %d: %w", port, err)
	}

	return &Manager{
		conn:      conn,
		broadcast: &net.UDPAddr{IP: net.IPv4bcast, Port: broadcastPort},
		callbacks: callbacks,
		peers:     make(map[string]*Endpoint),
	}, nil
}

// Run starts the read loop (in a goroutine) and the broadcast+eviction
// ticker, blocking until ctxDone closes.
func (m *Manager) Run(ctxDone <-chan struct{}) {
	go m.readLoop()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctxDone:
			m.conn.Close()
			return
		case <-ticker.C:
			m.broadcastIdentify()
			m.evictStale()
		}
	}
}

func (m *Manager) broadcastIdentify() {
	packet := codec.Create(codec.Identify, nil)
	if _, err := m.conn.WriteToUDP(packet, m.broadcast); err != nil {
		obs.Debugf("broadcasting IDENTIFY: %v", err)
	}
}

func (m *Manager) evictStale() {
	now := time.Now()

	m.mu.Lock()
	var stale []*Endpoint
	for addr, ep := range m.peers {
		if now.Sub(ep.lastSeen()) > staleAfter {
			stale = append(stale, ep)
			delete(m.peers, addr)
		}
	}
	m.mu.Unlock()

	for _, ep := range stale {
		if m.callbacks.OnDisconnect != nil {
			m.callbacks.OnDisconnect(ep.identity)
		}
	}
}

// readLoop frames each datagram with its own fresh Framer: datagrams are
// atomic frames (unlike the serial byte stream), and a malformed or
// footerless datagram from one peer must never corrupt the framer state
// used for a different peer's next datagram.
func (m *Manager) readLoop() {
	buf := make([]byte, 2048)

	for {
		n, addr, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		framer := codec.NewFramer()
		m.handleDatagram(addr, framer.Feed(buf[:n]))
	}
}

func (m *Manager) handleDatagram(addr *net.UDPAddr, cmds []codec.Command) {
	key := addr.String()

	m.mu.Lock()
	ep, known := m.peers[key]
	m.mu.Unlock()

	for _, cmd := range cmds {
		if cmd.Instruction == codec.Invalid {
			continue
		}

		if !known {
			if cmd.Instruction != codec.Identify {
				continue
			}
			identity := string(cmd.Data)
			ep = newEndpoint(m.conn, addr, identity)

			m.mu.Lock()
			m.peers[key] = ep
			m.mu.Unlock()

			known = true
			if m.callbacks.OnConnect != nil {
				m.callbacks.OnConnect(identity, ep)
			}
			continue
		}

		ep.touch()
		if m.callbacks.OnMessage != nil {
			m.callbacks.OnMessage(ep.identity, cmd)
		}
	}
}

// Endpoint is one identified UDP peer.
type Endpoint struct {
	conn     *net.UDPConn
	addr     *net.UDPAddr
	identity string

	mu   sync.Mutex
	seen time.Time
}

func newEndpoint(conn *net.UDPConn, addr *net.UDPAddr, identity string) *Endpoint {
	return &Endpoint{conn: conn, addr: addr, identity: identity, seen: time.Now()}
}

func (e *Endpoint) touch() {
	e.mu.Lock()
	e.seen = time.Now()
	e.mu.Unlock()
}

func (e *Endpoint) lastSeen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen
}

// Write sends a framed packet to this peer's stored remote address.
func (e *Endpoint) Write(packet []byte) error {
	_, err := e.conn.WriteToUDP(packet, e.addr)
	if err != nil {
		return fmt.Errorf("write to udp peer %s: %w", e.addr, err)
	}
	return nil
}
