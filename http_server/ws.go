package http_server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"edmoserver/internal/edmoerr"
	"edmoserver/internal/obs"
	"edmoserver/internal/rtc"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handshakeMessage is the player-onboarding signalling envelope (spec §6
// "GET /ws/{identity}"): the first text frame a connecting browser sends.
type handshakeMessage struct {
	PlayerName string `json:"playerName"`
	Handshake  string `json:"handshake"`
}

// wsHandler upgrades to a WebSocket, reads the SDP offer, answers it with a
// pion/webrtc/v4 peer connection, and hands the resulting data channel to
// the session as a new player. An identity with no session is refused with
// HTTP 404 before the upgrade. After the upgrade, refusals close with
// 4404/4401 (custom WebSocket close codes since HTTP status codes aren't
// available post-upgrade) mirroring the original's 404 (unknown identity)
// / 401 (no free slot).
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	if _, ok := s.b.GetSession(identity); !ok {
		http.Error(w, "no active session for "+identity, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obs.Errorf("upgrading websocket for %s: %v", identity, err)
		return
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		obs.Debugf("reading handshake for %s: %v", identity, err)
		return
	}

	var msg handshakeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		closeWith(conn, 4400, "malformed handshake")
		return
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: msg.Handshake}

	callbacks := &rtc.Callbacks{}
	peer, err := rtc.NewPeerChannel(r.RemoteAddr, callbacks)
	if err != nil {
		obs.Errorf("creating peer connection for %s: %v", identity, err)
		closeWith(conn, 4500, "peer connection setup failed")
		return
	}

	if _, err := s.b.RegisterPlayer(identity, peer, callbacks, msg.PlayerName); err != nil {
		_ = peer.Close()
		if errors.Is(err, edmoerr.ErrUnknownIdentity) {
			closeWith(conn, 4404, "unknown identity")
		} else {
			closeWith(conn, 4401, "session full")
		}
		return
	}

	answer, err := peer.InitiateConnection(offer)
	if err != nil {
		_ = peer.Close()
		obs.Errorf("answering SDP offer for %s: %v", identity, err)
		closeWith(conn, 4500, "SDP negotiation failed")
		return
	}

	reply, err := json.Marshal(handshakeMessage{Handshake: answer.SDP})
	if err != nil {
		obs.Errorf("encoding SDP answer for %s: %v", identity, err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
		obs.Debugf("writing SDP answer for %s: %v", identity, err)
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
}
