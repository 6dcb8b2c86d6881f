package session

import (
	"fmt"

	"edmoserver/internal/rtc"
)

// Player is one participant in a session: a named channel holding (or
// waiting for) a motor slot. Lifecycle: waiting -> active -> (disconnected
// -> waiting) -> closed (spec §3 "Player").
type Player struct {
	Name    string
	Channel rtc.Channel
	Number  int // -1 if unassigned
	Voted   bool

	session *Session
}

// newPlayer wires the player's handlers into callbacks, following the
// original's pattern of appending to the peer's callback lists
// (WebRTCPeer.onMessage.append(self.onMessage), etc.) rather than the
// fixed-single-handler style.
func newPlayer(s *Session, channel rtc.Channel, callbacks *rtc.Callbacks, name string) *Player {
	p := &Player{Name: name, Channel: channel, Number: -1, session: s}

	callbacks.OnMessage = append(callbacks.OnMessage, p.onMessage)
	callbacks.OnConnect = append(callbacks.OnConnect, p.onConnect)
	callbacks.OnDisconnect = append(callbacks.OnDisconnect, p.onDisconnect)
	callbacks.OnClosed = append(callbacks.OnClosed, p.onClosed)

	return p
}

func (p *Player) onMessage(text string) { p.session.handlePlayerMessage(p, text) }
func (p *Player) onConnect()            { p.session.playerConnected(p) }
func (p *Player) onDisconnect()         { p.session.playerDisconnected(p) }
func (p *Player) onClosed()             { p.session.playerLeft(p) }

func (p *Player) send(text string) {
	p.Channel.Send(text)
}

func (p *Player) assignNumber(number int) {
	p.send(fmt.Sprintf("sys.number %d", number))
	p.Number = number
	p.send(fmt.Sprintf("ID %d", number))
}

// PlayerInfo is the JSON-serializable player summary used in PlayerInfo
// broadcasts and the HTTP session-info surface (spec §4.6, §6).
type PlayerInfo struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Voted  bool   `json:"voted"`
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{Number: p.Number, Name: p.Name, Voted: p.Voted}
}

func removePlayer(players []*Player, target *Player) []*Player {
	for i, p := range players {
		if p == target {
			return append(players[:i], players[i+1:]...)
		}
	}
	return players
}
