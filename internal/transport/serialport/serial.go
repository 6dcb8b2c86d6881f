// Package serialport implements the serial transport (spec §4.2): periodic
// port enumeration, per-port framed connections, and the IDENTIFY
// handshake that fixes a port's robot identity.
package serialport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"edmoserver/internal/codec"
	"edmoserver/internal/obs"
)

// Callbacks is the set of handlers a Manager notifies as ports come and go.
type Callbacks struct {
	// OnConnect fires on the first IDENTIFY reply a port sends, fixing its
	// identity. Packets received before that reply are dropped.
	OnConnect func(identity string, ep *Endpoint)
	// OnMessage forwards every subsequent decoded command from an
	// identified endpoint.
	OnMessage func(identity string, cmd codec.Command)
	// OnDisconnect fires when an identified endpoint's port closes.
	OnDisconnect func(identity string)
}

// Manager periodically scans for serial ports, opens new ones, and runs
// their read loops. One Manager serves the whole process; Endpoints are
// the individual open ports it tracks.
type Manager struct {
	baud      int
	scanEvery time.Duration
	callbacks Callbacks

	mu   sync.Mutex
	open map[string]*Endpoint // keyed by port path
}

// New creates a serial port manager. Call Run to start scanning.
func New(baud int, scanEvery time.Duration, callbacks Callbacks) *Manager {
	return &Manager{
		baud:      baud,
		scanEvery: scanEvery,
		callbacks: callbacks,
		open:      make(map[string]*Endpoint),
	}
}

// Run blocks, scanning for new ports every scanEvery until ctxDone closes.
func (m *Manager) Run(ctxDone <-chan struct{}) {
	ticker := time.NewTicker(m.scanEvery)
	defer ticker.Stop()

	for {
		m.scan()
		select {
		case <-ctxDone:
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) scan() {
	ports, err := serial.GetPortsList()
	if err != nil {
		obs.Errorf("listing serial ports: %v", err)
		return
	}

	for _, path := range ports {
		m.mu.Lock()
		_, already := m.open[path]
		m.mu.Unlock()
		if already {
			continue
		}
		go m.openPort(path)
	}
}

func (m *Manager) openPort(path string) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: m.baud})
	if err != nil {
		obs.Debugf("opening serial port %s: %v", path, err)
		return
	}
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		port.Close()
		obs.Errorf("setting read timeout on %s: %v", path, err)
		return
	}

	ep := &Endpoint{path: path, port: port}

	m.mu.Lock()
	m.open[path] = ep
	m.mu.Unlock()

	if _, err := port.Write(codec.Create(codec.Identify, nil)); err != nil {
		obs.Errorf("writing IDENTIFY to %s: %v", path, err)
		m.closePort(ep, "")
		return
	}

	m.readLoop(ep)
}

func (m *Manager) readLoop(ep *Endpoint) {
	framer := codec.NewFramer()
	buf := make([]byte, 256)
	identity := ""

	for {
		n, err := ep.port.Read(buf)
		if err != nil {
			m.closePort(ep, identity)
			return
		}
		if n == 0 {
			continue
		}

		for _, cmd := range framer.Feed(buf[:n]) {
			if cmd.Instruction == codec.Invalid {
				obs.Debugf("malformed frame from %s", ep.path)
				continue
			}

			if identity == "" {
				if cmd.Instruction != codec.Identify {
					continue
				}
				identity = string(cmd.Data)
				ep.identity = identity
				if m.callbacks.OnConnect != nil {
					m.callbacks.OnConnect(identity, ep)
				}
				continue
			}

			if m.callbacks.OnMessage != nil {
				m.callbacks.OnMessage(identity, cmd)
			}
		}
	}
}

func (m *Manager) closePort(ep *Endpoint, identity string) {
	m.mu.Lock()
	delete(m.open, ep.path)
	m.mu.Unlock()

	ep.port.Close()

	if identity != "" && m.callbacks.OnDisconnect != nil {
		m.callbacks.OnDisconnect(identity)
	}
}

// Endpoint is one open serial port, bound to an identity once the IDENTIFY
// handshake completes.
type Endpoint struct {
	path     string
	identity string
	port     serial.Port
}

// Write sends a framed packet to the robot on the other end of this port.
func (e *Endpoint) Write(packet []byte) error {
	_, err := e.port.Write(packet)
	if err != nil {
		return fmt.Errorf("write to serial port %s: %w", e.path, err)
	}
	return nil
}
