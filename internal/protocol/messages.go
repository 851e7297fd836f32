// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
// Field names mirror the client protocol (camelCase, e.g. peerId, sdpMid).
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinQueue     = "join-queue"
	TypeLeaveQueue    = "leave-queue"
	TypeJoinCallRoom  = "join-call-room"
	TypeLeaveCallRoom = "leave-call-room"
	TypeSendOffer     = "send-offer"
	TypeSendAnswer    = "send-answer"
	TypeSendIce       = "send-ice"
	TypePing          = "ping"
)

// Server -> Client message types.
const (
	TypeMatchFound       = "match-found"
	TypePeerReady        = "peer-ready"
	TypePeerDisconnected = "peer-disconnected"
	TypeReceiveOffer     = "receive-offer"
	TypeReceiveAnswer    = "receive-answer"
	TypeReceiveIce       = "receive-ice"
	TypeRelayFailed      = "relay-failed"
	TypeError            = "error"
	TypePong             = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinQueueMsg is sent by the client to enter the matchmaking queue with its
// stable participant identifier, gender, and matching category.
type JoinQueueMsg struct {
	Type     string `json:"type"`
	UID      string `json:"uid"`
	Gender   string `json:"gender"`
	Category string `json:"category"`
}

// Validate checks that all required fields are present. It runs at the
// boundary, before the message reaches any shared state.
func (m JoinQueueMsg) Validate() error {
	if m.UID == "" {
		return fmt.Errorf("protocol: join-queue missing uid")
	}
	if m.Gender == "" {
		return fmt.Errorf("protocol: join-queue missing gender")
	}
	if m.Category == "" {
		return fmt.Errorf("protocol: join-queue missing category")
	}
	return nil
}

// LeaveQueueMsg is sent by the client to leave the matchmaking queue.
type LeaveQueueMsg struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

// Validate checks that the participant identifier is present.
func (m LeaveQueueMsg) Validate() error {
	if m.UID == "" {
		return fmt.Errorf("protocol: leave-queue missing uid")
	}
	return nil
}

// JoinCallRoomMsg is sent by the client to join a named two-party call room
// after a match has been announced.
type JoinCallRoomMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
	UID  string `json:"uid"`
}

// Validate checks that both the room name and participant identifier are present.
func (m JoinCallRoomMsg) Validate() error {
	if m.Room == "" {
		return fmt.Errorf("protocol: join-call-room missing room")
	}
	if m.UID == "" {
		return fmt.Errorf("protocol: join-call-room missing uid")
	}
	return nil
}

// LeaveCallRoomMsg is sent by the client to leave a call room.
type LeaveCallRoomMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
	UID  string `json:"uid"`
}

// Validate checks that both the room name and participant identifier are present.
func (m LeaveCallRoomMsg) Validate() error {
	if m.Room == "" {
		return fmt.Errorf("protocol: leave-call-room missing room")
	}
	if m.UID == "" {
		return fmt.Errorf("protocol: leave-call-room missing uid")
	}
	return nil
}

// SendOfferMsg carries a WebRTC session offer to be relayed to a peer.
// From is advisory: the server prefers the sender's bound identifier when
// one exists, so a client cannot impersonate another participant.
type SendOfferMsg struct {
	Type  string `json:"type"`
	From  string `json:"from"`
	To    string `json:"to"`
	Offer string `json:"offer"`
}

// Validate checks that the recipient identifier is present.
func (m SendOfferMsg) Validate() error {
	if m.To == "" {
		return fmt.Errorf("protocol: send-offer missing to")
	}
	return nil
}

// SendAnswerMsg carries a WebRTC session answer to be relayed to a peer.
type SendAnswerMsg struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	To     string `json:"to"`
	Answer string `json:"answer"`
}

// Validate checks that the recipient identifier is present.
func (m SendAnswerMsg) Validate() error {
	if m.To == "" {
		return fmt.Errorf("protocol: send-answer missing to")
	}
	return nil
}

// SendIceMsg carries a WebRTC ICE candidate to be relayed to a peer.
type SendIceMsg struct {
	Type          string `json:"type"`
	From          string `json:"from"`
	To            string `json:"to"`
	Candidate     string `json:"candidate"`
	SdpMid        string `json:"sdpMid"`
	SdpMLineIndex int    `json:"sdpMLineIndex"`
}

// Validate checks that the recipient identifier is present.
func (m SendIceMsg) Validate() error {
	if m.To == "" {
		return fmt.Errorf("protocol: send-ice missing to")
	}
	return nil
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// MatchFoundMsg is sent by the server to both sides of a successful pairing.
// Exactly one side receives Initiator=true (the earlier-queued participant)
// so that the WebRTC handshake has a single, deterministic starter.
type MatchFoundMsg struct {
	Type      string `json:"type"`
	PeerID    string `json:"peerId"`
	Initiator bool   `json:"initiator"`
}

// PeerReadyMsg is sent to all room members when the room reaches two members
// and the handshake can begin.
type PeerReadyMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// PeerDisconnectedMsg is sent to remaining room members when a member
// disconnects or leaves.
type PeerDisconnectedMsg struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

// ReceiveOfferMsg delivers a relayed WebRTC offer to the recipient.
type ReceiveOfferMsg struct {
	Type  string `json:"type"`
	From  string `json:"from"`
	Offer string `json:"offer"`
}

// ReceiveAnswerMsg delivers a relayed WebRTC answer to the recipient.
type ReceiveAnswerMsg struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	Answer string `json:"answer"`
}

// ReceiveIceMsg delivers a relayed ICE candidate to the recipient.
type ReceiveIceMsg struct {
	Type          string `json:"type"`
	From          string `json:"from"`
	Candidate     string `json:"candidate"`
	SdpMid        string `json:"sdpMid"`
	SdpMLineIndex int    `json:"sdpMLineIndex"`
}

// RelayFailedMsg tells the sender that a signaling payload could not be
// delivered because the recipient has no live connection. The client can
// react (e.g. return to the queue) instead of waiting on a dead handshake.
type RelayFailedMsg struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing or validation. An error is returned for unknown
// or server-only message types, and for payloads with missing required
// fields — a malformed event is rejected before it can touch shared state.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoinQueue:
		var m JoinQueueMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeLeaveQueue:
		var m LeaveQueueMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeJoinCallRoom:
		var m JoinCallRoomMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeLeaveCallRoom:
		var m LeaveCallRoomMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeSendOffer:
		var m SendOfferMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeSendAnswer:
		var m SendAnswerMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypeSendIce:
		var m SendIceMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil {
			err = m.Validate()
		}
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
