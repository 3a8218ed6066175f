// Package signal is the WebSocket signaling hub that brokers peer-to-peer
// transfers. It pairs a host and a single peer in a room, relays their
// handshake descriptors and connectivity candidates verbatim, and emits
// presence events. The file bytes themselves never touch the server; they
// flow over the data channel the two sides negotiate.
package signal

import "encoding/json"

// Envelope is the framing for every signaling message, inbound and outbound.
// Payloads of relayed types stay opaque to the hub.
type Envelope struct {
	Type     string          `json:"type"`
	RoomCode string          `json:"roomCode,omitempty"`
	HostID   string          `json:"hostId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Inbound envelope types.
const (
	TypeJoin         = "join"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeFileInfo     = "file-info"
)

// Outbound envelope types.
const (
	TypeReady      = "ready"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeError      = "error"
)

// Participant roles.
const (
	RoleHost = "host"
	RolePeer = "peer"
)

// filePayload carries the host-announced file metadata, on join and on
// file-info updates.
type filePayload struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// readyPayload tells a joiner which role it got; peers also learn the
// announced file metadata.
type readyPayload struct {
	Role     string `json:"role"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// errorPayload is the body of an error envelope.
type errorPayload struct {
	Message string `json:"message"`
}

func mustMarshal(env *Envelope) []byte {
	b, err := json.Marshal(env)
	if err != nil {
		// Envelopes are built from plain structs; marshaling cannot fail.
		panic(err)
	}
	return b
}

func errorEnvelope(message string) []byte {
	payload, _ := json.Marshal(errorPayload{Message: message})
	return mustMarshal(&Envelope{Type: TypeError, Payload: payload})
}
