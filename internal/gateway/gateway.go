// Package gateway dispatches inbound transport events to the matchmaking,
// room, and relay components and emits the resulting outbound notifications.
//
// The gateway is the single owner of all mutable shared state: the match
// queue, the room table, the connection registry, and the conn->identifier
// map. One mutex is held for the duration of each logical operation
// (enqueue+match, join+readiness check, disconnect cleanup), so every
// handler sees read-modify-write atomicity over that state — two
// connections' events never interleave mid-operation. Without this, two
// join-queue events could each observe a lone compatible partner and
// double-match it.
package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pulse/video-app/internal/matching"
	"github.com/pulse/video-app/internal/metrics"
	"github.com/pulse/video-app/internal/presence"
	"github.com/pulse/video-app/internal/protocol"
	"github.com/pulse/video-app/internal/registry"
	"github.com/pulse/video-app/internal/relay"
	"github.com/pulse/video-app/internal/room"
)

// presenceTimeout bounds the fire-and-forget presence writes so a slow Redis
// never backs up into event handling.
const presenceTimeout = 3 * time.Second

// Conn is the transport surface the gateway needs from a connection.
// *ws.Connection satisfies it; tests substitute fakes.
type Conn interface {
	ConnID() string
	WriteMessage(data []byte) error
}

// PresenceTracker mirrors participant status into an external store for
// operational visibility. *presence.Store satisfies it; the gateway never
// reads the mirror back.
type PresenceTracker interface {
	Track(ctx context.Context, identifier, status, connID string) error
	Clear(ctx context.Context, identifier, connID string) error
}

// Gateway routes events between the transport layer and the core components.
type Gateway struct {
	mu       sync.Mutex
	queue    *matching.Queue
	rooms    *room.Manager
	reg      *registry.Registry
	relay    *relay.Relay
	idByConn map[Conn]string      // transport -> bound participant identifier
	queuedAt map[string]time.Time // identifier -> enqueue time, for wait metrics
	presence PresenceTracker      // optional; nil disables presence tracking
}

// New creates a gateway over fresh queue, room, and registry state. The
// presence tracker may be nil.
func New(pres PresenceTracker) *Gateway {
	reg := registry.New()
	return &Gateway{
		queue:    matching.NewQueue(),
		rooms:    room.NewManager(),
		reg:      reg,
		relay:    relay.New(reg),
		idByConn: make(map[Conn]string),
		queuedAt: make(map[string]time.Time),
		presence: pres,
	}
}

// ---------------------------------------------------------------------------
// Queue events
// ---------------------------------------------------------------------------

// HandleJoinQueue binds the connection to the participant identifier,
// dedup-enqueues the participant, and immediately attempts a match. On
// success both parties receive match-found, with the earlier-queued side
// designated initiator.
func (g *Gateway) HandleJoinQueue(conn Conn, msg protocol.JoinQueueMsg) {
	gender, err := matching.ParseGender(msg.Gender)
	if err != nil {
		g.sendError(conn, "invalid_gender", "gender must be male or female")
		return
	}
	category, err := matching.ParseCategory(msg.Category)
	if err != nil {
		g.sendError(conn, "invalid_category", "category must be straight, gay or lesbian")
		return
	}

	g.mu.Lock()
	g.bind(msg.UID, conn)

	g.queue.Enqueue(matching.Participant{
		Identifier: msg.UID,
		Gender:     gender,
		Category:   category,
	})
	g.queuedAt[msg.UID] = time.Now()
	metrics.QueueSize.Set(float64(g.queue.Len()))

	log.Printf("[gateway] join-queue uid=%s gender=%s category=%s (queue=%d)",
		msg.UID, gender, category, g.queue.Len())

	pair, matched := matching.TryMatch(g.queue)
	if matched {
		g.announceMatch(pair)
		metrics.QueueSize.Set(float64(g.queue.Len()))
	}
	g.mu.Unlock()

	g.trackPresence(msg.UID, presence.StatusQueued, conn.ConnID())
}

// announceMatch sends match-found to both sides of a pairing. Called with
// the gateway mutex held.
func (g *Gateway) announceMatch(pair matching.Pair) {
	metrics.MatchesTotal.WithLabelValues(string(pair.Initiator.Category)).Inc()
	for _, id := range []string{pair.Initiator.Identifier, pair.Responder.Identifier} {
		if t, ok := g.queuedAt[id]; ok {
			metrics.MatchWait.Observe(time.Since(t).Seconds())
			delete(g.queuedAt, id)
		}
	}

	log.Printf("[gateway] match found: %s (initiator) <-> %s",
		pair.Initiator.Identifier, pair.Responder.Identifier)

	g.sendTo(pair.Initiator.Identifier, protocol.TypeMatchFound, protocol.MatchFoundMsg{
		PeerID:    pair.Responder.Identifier,
		Initiator: true,
	})
	g.sendTo(pair.Responder.Identifier, protocol.TypeMatchFound, protocol.MatchFoundMsg{
		PeerID:    pair.Initiator.Identifier,
		Initiator: false,
	})
}

// HandleLeaveQueue removes the identifier from the queue. Leaving while not
// queued is a no-op.
func (g *Gateway) HandleLeaveQueue(conn Conn, msg protocol.LeaveQueueMsg) {
	g.mu.Lock()
	removed := g.queue.DequeueByIdentifier(msg.UID)
	delete(g.queuedAt, msg.UID)
	metrics.QueueSize.Set(float64(g.queue.Len()))
	g.mu.Unlock()

	if removed {
		log.Printf("[gateway] leave-queue uid=%s", msg.UID)
		g.clearPresence(msg.UID, conn.ConnID())
	}
}

// ---------------------------------------------------------------------------
// Room events
// ---------------------------------------------------------------------------

// HandleJoinCallRoom binds the connection and joins the named room. When the
// room reaches two members, every member receives peer-ready exactly once
// per room lifetime instance.
func (g *Gateway) HandleJoinCallRoom(conn Conn, msg protocol.JoinCallRoomMsg) {
	g.mu.Lock()
	g.bind(msg.UID, conn)

	res := g.rooms.Join(msg.Room, msg.UID)
	metrics.RoomsActive.Set(float64(g.rooms.Len()))

	if res.AlreadyMember {
		g.mu.Unlock()
		return
	}

	log.Printf("[gateway] join-call-room room=%s uid=%s members=%d",
		msg.Room, msg.UID, len(res.Members))

	if res.BecameReady {
		for _, member := range res.Members {
			g.sendTo(member, protocol.TypePeerReady, protocol.PeerReadyMsg{Room: msg.Room})
		}
	}
	g.mu.Unlock()

	g.trackPresence(msg.UID, presence.StatusInCall, conn.ConnID())
}

// HandleLeaveCallRoom removes the identifier from the named room, notifies
// remaining members, and destroys the room at zero membership. Leaving a
// room the identifier is not in is a no-op.
func (g *Gateway) HandleLeaveCallRoom(conn Conn, msg protocol.LeaveCallRoomMsg) {
	g.mu.Lock()
	res := g.rooms.Leave(msg.Room, msg.UID)
	metrics.RoomsActive.Set(float64(g.rooms.Len()))

	if res.Removed {
		log.Printf("[gateway] leave-call-room room=%s uid=%s closed=%v",
			msg.Room, msg.UID, res.Closed)
		for _, member := range res.Remaining {
			g.sendTo(member, protocol.TypePeerDisconnected, protocol.PeerDisconnectedMsg{UID: msg.UID})
		}
	}
	g.mu.Unlock()

	// The mirror must not keep reporting in_call after an explicit leave.
	if res.Removed {
		g.clearPresence(msg.UID, conn.ConnID())
	}
}

// ---------------------------------------------------------------------------
// Signaling relay events
// ---------------------------------------------------------------------------

// HandleSendOffer relays a session offer to the named recipient.
func (g *Gateway) HandleSendOffer(conn Conn, msg protocol.SendOfferMsg) {
	g.forward(conn, protocol.TypeReceiveOffer, msg.To, protocol.ReceiveOfferMsg{
		From:  g.senderIdentity(conn, msg.From),
		Offer: msg.Offer,
	})
}

// HandleSendAnswer relays a session answer to the named recipient.
func (g *Gateway) HandleSendAnswer(conn Conn, msg protocol.SendAnswerMsg) {
	g.forward(conn, protocol.TypeReceiveAnswer, msg.To, protocol.ReceiveAnswerMsg{
		From:   g.senderIdentity(conn, msg.From),
		Answer: msg.Answer,
	})
}

// HandleSendIce relays an ICE candidate to the named recipient.
func (g *Gateway) HandleSendIce(conn Conn, msg protocol.SendIceMsg) {
	g.forward(conn, protocol.TypeReceiveIce, msg.To, protocol.ReceiveIceMsg{
		From:          g.senderIdentity(conn, msg.From),
		Candidate:     msg.Candidate,
		SdpMid:        msg.SdpMid,
		SdpMLineIndex: msg.SdpMLineIndex,
	})
}

// forward relays a tagged payload and converts an unreachable recipient into
// a relay-failed notification to the sender, so a lost handshake step is
// visible instead of silently dropped.
func (g *Gateway) forward(conn Conn, kind, to string, payload interface{}) {
	g.mu.Lock()
	err := g.relay.Forward(kind, to, payload)
	g.mu.Unlock()

	if err == nil {
		metrics.SignalsRelayed.WithLabelValues(kind).Inc()
		return
	}

	metrics.SignalsDropped.WithLabelValues(kind).Inc()
	log.Printf("[gateway] relay %s to=%s failed: %v", kind, to, err)
	g.send(conn, protocol.TypeRelayFailed, protocol.RelayFailedMsg{To: to, Kind: kind})
}

// senderIdentity returns the sender's bound identifier, falling back to the
// client-declared one if the connection has not bound yet. The bound
// identity wins so a client cannot sign someone else's name to an offer.
func (g *Gateway) senderIdentity(conn Conn, declared string) string {
	g.mu.Lock()
	bound := g.idByConn[conn]
	g.mu.Unlock()
	if bound != "" {
		return bound
	}
	return declared
}

// ---------------------------------------------------------------------------
// Disconnect
// ---------------------------------------------------------------------------

// HandleDisconnect runs the full cleanup for a closed transport: dequeue,
// leave every room (notifying remaining members), and unbind. Each step is
// an independent no-op when inapplicable, so the cleanup runs
// unconditionally even for a connection that never joined anything.
//
// If the identifier has since been rebound to a newer connection (a
// reconnect raced the old transport's close), the whole cleanup is skipped:
// the queue entry, room memberships, and binding all belong to the newer
// connection now.
func (g *Gateway) HandleDisconnect(conn Conn) {
	g.mu.Lock()
	identifier, bound := g.idByConn[conn]
	delete(g.idByConn, conn)

	if !bound {
		g.mu.Unlock()
		return
	}

	if cur, ok := g.reg.Resolve(identifier); !ok || cur != registry.Handle(conn) {
		// Stale disconnect: a newer connection owns the identifier.
		g.mu.Unlock()
		log.Printf("[gateway] stale disconnect conn=%s uid=%s (superseded)", conn.ConnID(), identifier)
		return
	}

	g.queue.DequeueByIdentifier(identifier)
	delete(g.queuedAt, identifier)
	metrics.QueueSize.Set(float64(g.queue.Len()))

	for _, dep := range g.rooms.LeaveAll(identifier) {
		log.Printf("[gateway] disconnect swept uid=%s from room=%s closed=%v",
			identifier, dep.Room, dep.Closed)
		for _, member := range dep.Remaining {
			g.sendTo(member, protocol.TypePeerDisconnected, protocol.PeerDisconnectedMsg{UID: identifier})
		}
	}
	metrics.RoomsActive.Set(float64(g.rooms.Len()))

	g.reg.UnbindIfCurrent(identifier, conn)
	g.mu.Unlock()

	log.Printf("[gateway] disconnect cleanup uid=%s conn=%s", identifier, conn.ConnID())
	g.clearPresence(identifier, conn.ConnID())
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// bind records the identifier -> connection association in both directions.
// Called with the gateway mutex held. Last write wins, which is what makes
// reconnect-with-same-identifier work.
func (g *Gateway) bind(identifier string, conn Conn) {
	g.reg.Bind(identifier, conn)
	g.idByConn[conn] = identifier
}

// sendTo delivers a server message to the identifier's current transport.
// Called with the gateway mutex held. An unbound identifier is logged and
// skipped; callers that need a stronger guarantee use the relay.
func (g *Gateway) sendTo(identifier, msgType string, payload interface{}) {
	handle, ok := g.reg.Resolve(identifier)
	if !ok {
		log.Printf("[gateway] no binding for uid=%s, dropping %s", identifier, msgType)
		return
	}

	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[gateway] build %s for uid=%s: %v", msgType, identifier, err)
		return
	}
	if err := handle.WriteMessage(data); err != nil {
		log.Printf("[gateway] send %s to uid=%s: %v", msgType, identifier, err)
	}
}

// send delivers a server message directly to a connection.
func (g *Gateway) send(conn Conn, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[gateway] build %s for conn=%s: %v", msgType, conn.ConnID(), err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[gateway] send %s to conn=%s: %v", msgType, conn.ConnID(), err)
	}
}

// sendError reports a rejected event back to the client.
func (g *Gateway) sendError(conn Conn, code, message string) {
	g.send(conn, protocol.TypeError, protocol.ErrorMsg{Code: code, Message: message})
}

// trackPresence mirrors a status change into Redis without blocking the
// event path.
func (g *Gateway) trackPresence(identifier, status, connID string) {
	if g.presence == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		if err := g.presence.Track(ctx, identifier, status, connID); err != nil {
			log.Printf("[gateway] presence track uid=%s: %v", identifier, err)
		}
	}()
}

// clearPresence removes a presence record still owned by the given connection.
func (g *Gateway) clearPresence(identifier, connID string) {
	if g.presence == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		if err := g.presence.Clear(ctx, identifier, connID); err != nil {
			log.Printf("[gateway] presence clear uid=%s: %v", identifier, err)
		}
	}()
}
