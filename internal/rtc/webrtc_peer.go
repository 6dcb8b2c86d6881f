package rtc

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"edmoserver/internal/collections"
	"edmoserver/internal/obs"
)

// PeerChannel is the production Channel, wrapping a pion/webrtc/v4 data
// channel. The server answers an SDP offer from the browser; the data
// channel itself is created by the remote (offering) side and arrives via
// OnDataChannel, mirroring the original's WebRTCPeer.
type PeerChannel struct {
	remoteID string

	pc *webrtc.PeerConnection
	*Callbacks

	mu          sync.Mutex
	dataChannel *webrtc.DataChannel
	sendBuffer  *collections.SafeQueue[string]

	connected bool
	closed    bool
}

// NewPeerChannel creates a peer connection for remoteID (typically the
// requesting player's network address, used only for logging) and wires
// its ICE state transitions to the connect/disconnect/closed callbacks of
// spec §4.7.
func NewPeerChannel(remoteID string, callbacks *Callbacks) (*PeerChannel, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &PeerChannel{
		remoteID:   remoteID,
		pc:         pc,
		Callbacks:  callbacks,
		sendBuffer: collections.NewSafeQueue[string](),
	}

	pc.OnDataChannel(p.onDataChannel)
	pc.OnICEConnectionStateChange(p.onICEStateChange)

	return p, nil
}

// InitiateConnection answers an SDP offer from the player's browser and
// returns the local SDP answer to relay back over the signalling
// WebSocket (spec §6 "GET /ws/{identity}").
func (p *PeerChannel) InitiateConnection(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	<-gatherComplete

	return *p.pc.LocalDescription(), nil
}

// Send queues text for delivery; buffered until the data channel opens.
func (p *PeerChannel) Send(text string) {
	p.mu.Lock()
	dc := p.dataChannel
	p.mu.Unlock()

	if dc == nil {
		p.sendBuffer.Enqueue(text)
		return
	}
	if err := dc.SendText(text); err != nil {
		obs.Errorf("sending to player %s: %v", p.remoteID, err)
	}
}

// Close tears down the peer connection, firing OnDisconnect (if connected)
// then OnClosed. Idempotent.
func (p *PeerChannel) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	dc := p.dataChannel
	p.mu.Unlock()

	if dc != nil {
		_ = dc.Close()
	}
	err := p.pc.Close()
	p.onClosedTransition()
	return err
}

func (p *PeerChannel) onDataChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dataChannel = dc
	p.mu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		text := string(msg.Data)
		if text == "CLOSE" {
			_ = p.Close()
			return
		}
		p.fireMessage(text)
	})

	dc.OnOpen(func() {
		for {
			text, ok := p.sendBuffer.Dequeue()
			if !ok {
				break
			}
			if err := dc.SendText(text); err != nil {
				obs.Errorf("flushing buffered message to player %s: %v", p.remoteID, err)
			}
		}
	})
}

func (p *PeerChannel) onICEStateChange(state webrtc.ICEConnectionState) {
	switch state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		p.setConnected(true)
	case webrtc.ICEConnectionStateChecking:
		p.setConnected(false)
	case webrtc.ICEConnectionStateFailed:
		p.setConnected(false)
		_ = p.Close()
	case webrtc.ICEConnectionStateClosed:
		p.onClosedTransition()
	}
}

func (p *PeerChannel) setConnected(connected bool) {
	p.mu.Lock()
	already := p.connected == connected
	p.connected = connected
	p.mu.Unlock()

	if already {
		return
	}
	if connected {
		p.fireConnect()
	} else {
		p.fireDisconnect()
	}
}

func (p *PeerChannel) onClosedTransition() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	wasConnected := p.connected
	p.connected = false
	p.closed = true
	p.mu.Unlock()

	if wasConnected {
		p.fireDisconnect()
	}
	p.fireClosed()
}
