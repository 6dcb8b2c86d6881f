// Package backend implements the top-level coordinator (spec §4.9): owns
// the two transports, the {identity -> session} registry bound through
// fused links, the 40Hz tick scheduler, and the player-onboarding entry
// point used by the HTTP bootstrap (C11).
package backend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"edmoserver/internal/codec"
	"edmoserver/internal/collections"
	"edmoserver/internal/config"
	"edmoserver/internal/edmoerr"
	"edmoserver/internal/eventbus"
	"edmoserver/internal/obs"
	"edmoserver/internal/rtc"
	"edmoserver/internal/session"
	"edmoserver/internal/transport/fused"
	"edmoserver/internal/transport/serialport"
	"edmoserver/internal/transport/udplink"
)

// defaultMotorCount is the oscillator count used for newly-discovered
// sessions, mirroring the original's EDMOSession(protocol, 3, ...) default.
const defaultMotorCount = 3

// Backend owns every live robot link and session and drives the tick loop.
type Backend struct {
	cfg *config.Config

	serialMgr *serialport.Manager
	udpMgr    *udplink.Manager

	links    *fused.Registry
	sessions *collections.SafeMap[string, *session.Session]

	events *eventbus.Bus
}

// New wires up the serial and UDP transports against a shared fused-link
// registry; identities are not yet known to either transport until Run is
// called and a device is discovered.
func New(cfg *config.Config) (*Backend, error) {
	b := &Backend{
		cfg:      cfg,
		links:    fused.NewRegistry(),
		sessions: collections.NewSafeMap[string, *session.Session](),
		events:   eventbus.New(),
	}

	b.serialMgr = serialport.New(cfg.SerialBaud, 2*time.Second, serialport.Callbacks{
		OnConnect: func(identity string, ep *serialport.Endpoint) {
			b.onTransportConnect(identity).BindSerial(ep)
		},
		OnMessage: func(identity string, cmd codec.Command) {
			if link, ok := b.links.Get(identity); ok {
				link.Deliver(cmd)
			}
		},
		OnDisconnect: func(identity string) {
			if link, ok := b.links.Get(identity); ok {
				link.UnbindSerial()
			}
		},
	})

	udpMgr, err := udplink.New(cfg.UDPPort, cfg.UDPBroadcastPort, udplink.Callbacks{
		OnConnect: func(identity string, ep *udplink.Endpoint) {
			b.onTransportConnect(identity).BindUDP(ep)
		},
		OnMessage: func(identity string, cmd codec.Command) {
			if link, ok := b.links.Get(identity); ok {
				link.Deliver(cmd)
			}
		},
		OnDisconnect: func(identity string) {
			if link, ok := b.links.Get(identity); ok {
				link.UnbindUDP()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start backend: %w", err)
	}
	b.udpMgr = udpMgr

	return b, nil
}

// onTransportConnect finds or creates the fused link for identity, and on
// first sight of the identity also creates its session (spec §4.9).
func (b *Backend) onTransportConnect(identity string) *fused.Link {
	link, created := b.links.GetOrCreate(identity,
		func(cmd codec.Command) {
			if s, ok := b.sessions.Get(identity); ok {
				s.HandleCommand(cmd)
			}
		},
		func() {
			if s, ok := b.sessions.Get(identity); ok {
				s.Reset()
			}
		},
		func() {
			obs.Debugf("edmo %s disconnected", identity)
			b.events.PublishData("edmo.disconnected", identity)
		},
	)

	if created {
		obs.Debugf("edmo %s connected", identity)
		sess := session.New(identity, defaultMotorCount, link, b.cfg.SessionLogDir, b.removeSession)
		b.sessions.Set(identity, sess)
		sess.Reset()
		b.events.PublishData("edmo.connected", identity)
	}

	return link
}

func (b *Backend) removeSession(s *session.Session) {
	b.sessions.Delete(s.Identity)
	b.events.PublishData("edmo.session_removed", s.Identity)
}

// Events returns the server's event bus, used by the admin console's
// subscribe/unsubscribe/publish commands (spec §9 Design Notes).
func (b *Backend) Events() *eventbus.Bus {
	return b.events
}

// TickHz reports the configured control-loop rate, used by the admin
// console's "getHz" command.
func (b *Backend) TickHz() int {
	return b.cfg.TickHz
}

// Run starts the transports' discovery loops and the tick scheduler,
// blocking until ctx is cancelled.
func (b *Backend) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.serialMgr.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		b.udpMgr.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		return b.runTickLoop(ctx)
	})

	return g.Wait()
}

func (b *Backend) runTickLoop(ctx context.Context) error {
	interval := time.Second / time.Duration(b.cfg.TickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.tick(ctx, interval)
		}
	}
}

func (b *Backend) tick(ctx context.Context, budget time.Duration) {
	start := time.Now()

	sessions := b.sessions.Values()
	g, _ := errgroup.WithContext(ctx)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			s.Tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		obs.Errorf("tick: %v", err)
	}

	if elapsed := time.Since(start); elapsed > budget {
		obs.Debugf("tick overran budget: took %v, budget %v", elapsed, budget)
	}
}

// Sessions returns a snapshot of every active session, for the HTTP/admin
// surfaces.
func (b *Backend) Sessions() []*session.Session {
	return b.sessions.Values()
}

// GetSession looks up a session by robot identity.
func (b *Backend) GetSession(identity string) (*session.Session, bool) {
	return b.sessions.Get(identity)
}

// RegisterPlayer is the onboarding entry point used by the HTTP WebSocket
// handler (spec §4.9, §6): given an identity and an already-constructed
// player channel, validates that the identity has an active session with
// a free slot and registers the player.
func (b *Backend) RegisterPlayer(identity string, channel rtc.Channel, callbacks *rtc.Callbacks, playerName string) (*session.Player, error) {
	sess, ok := b.sessions.Get(identity)
	if !ok {
		return nil, fmt.Errorf("register player for %s: %w", identity, edmoerr.ErrUnknownIdentity)
	}
	return sess.RegisterPlayer(channel, callbacks, playerName)
}

// Shutdown closes every active session, flushing logs and tearing down
// player channels.
func (b *Backend) Shutdown() {
	for _, s := range b.sessions.Values() {
		s.Close()
	}
}
