package models

// Типи подій, якими обмінюються клієнт і хаб.
const (
	// Outbound (hub → client).
	TypeSessionStarted      = "sessionStarted"
	TypeSessionClosed       = "sessionClosed"
	TypePartnerDisconnected = "partnerDisconnected"
	TypeSearching           = "searching"
	TypeSystemInfo          = "system_info"
	TypeError               = "error"

	// Both directions.
	TypeMessage = "message"
	TypePicture = "picture"

	// Inbound (client → hub).
	TypeCloseChatRoom = "closeChatRoom"
	TypeSearch        = "search"
)

// SystemSenderID marks events generated by the hub itself.
const SystemSenderID = "system"

// ChatMessage is the wire envelope for every event on a client connection.
// Picture is base64-encoded by encoding/json.
type ChatMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
	Content  string `json:"content,omitempty"`
	Picture  []byte `json:"picture,omitempty"`
}

// SessionEvent is published for observers of the session lifecycle.
type SessionEvent struct {
	Kind   string   `json:"kind"` // "opened", "closed", "queued", "dequeued"
	RoomID string   `json:"room_id,omitempty"`
	Users  []string `json:"users,omitempty"`
	Reason string   `json:"reason,omitempty"`
	At     int64    `json:"at"`
}
