package ws

import (
	"encoding/json"
	"time"
)

// Client -> server event types.
const (
	EventJoinRoom      = "join-room"
	EventSendMessage   = "send-message"
	EventRecordEmotion = "record-emotion"
	EventSignal        = "signal"
)

// Server -> client event types.
const (
	EventJoinedRoomSuccess = "joined-room-success"
	EventJoinError         = "join-error"
	EventNewMessage        = "new-message"
	EventMessageError      = "message-error"
	EventNewEmotionEvent   = "new-emotion-event"
	EventUserConnected     = "user-connected"
	EventUserDisconnected  = "user-disconnected"
)

// ClientEvent is the envelope every inbound frame decodes into; Type
// selects which fields are meaningful.
type ClientEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Message string `json:"message,omitempty"`

	Emotion    string  `json:"emotion,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Signal relay: To is the target connection id, Signal is an opaque
	// WebRTC payload (SDP/ICE) forwarded without inspection.
	To     string          `json:"to,omitempty"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

// ChatPayload mirrors one chat log entry.
type ChatPayload struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EmotionPayload mirrors one emotion log entry.
type EmotionPayload struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ServerEvent is the outbound envelope.
type ServerEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	ConnID   string `json:"conn_id,omitempty"`
	Error    string `json:"error,omitempty"`

	Chat    *ChatPayload    `json:"chat,omitempty"`
	Emotion *EmotionPayload `json:"emotion,omitempty"`

	// Signal relay: From is the sender's connection id.
	From   string          `json:"from,omitempty"`
	Signal json.RawMessage `json:"signal,omitempty"`
}
