package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/classverse/classroom_backend/internal/models"
)

// conferenceClient is one websocket connection. id doubles as the
// signaling address peers use for WebRTC signal relay.
//
// roomID is the session binding set by the read pump on a successful
// join; groupID mirrors it but is owned by the hub goroutine. There is no
// resume protocol: a reconnect is a fresh client that must join again.
type conferenceClient struct {
	hub      *ConferenceHub
	conn     *websocket.Conn
	send     chan []byte
	id       string
	userID   string
	username string
	roomID   string
	groupID  string
}

func newConferenceClient(hub *ConferenceHub, conn *websocket.Conn, connID, userID, username string) *conferenceClient {
	return &conferenceClient{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		id:       connID,
		userID:   userID,
		username: username,
	}
}

// queue sends an event back to this client. It goes through the hub so a
// concurrent eviction cannot race the channel close.
func (c *conferenceClient) queue(event ServerEvent) {
	c.hub.SendToConn(c.id, event)
}

func (c *conferenceClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var ev ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case EventJoinRoom:
			c.handleJoinRoom(ev)
		case EventSendMessage:
			c.handleSendMessage(ev)
		case EventRecordEmotion:
			c.handleRecordEmotion(ev)
		case EventSignal:
			c.handleSignal(ev)
		}
	}
}

func (c *conferenceClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conferenceClient) isParticipant(roomID string) bool {
	var count int64
	if err := c.hub.db.Model(&models.RoomParticipant{}).
		Where("room_id_ref = ? AND user_id_ref = ?", roomID, c.userID).
		Count(&count).Error; err != nil {
		log.Printf("ws: participant lookup for room %s: %v", roomID, err)
		return false
	}
	return count > 0
}

func (c *conferenceClient) handleJoinRoom(ev ClientEvent) {
	if ev.RoomID == "" {
		c.queue(ServerEvent{Type: EventJoinError, Error: "room id is required"})
		return
	}
	var room models.ConferenceRoom
	if err := c.hub.db.Where("id = ?", ev.RoomID).First(&room).Error; err != nil {
		c.queue(ServerEvent{Type: EventJoinError, RoomID: ev.RoomID, Error: "room not found"})
		return
	}
	if room.Status == models.RoomStatusEnded {
		c.queue(ServerEvent{Type: EventJoinError, RoomID: ev.RoomID, Error: "room has ended"})
		return
	}
	if !c.isParticipant(room.ID) {
		c.queue(ServerEvent{Type: EventJoinError, RoomID: ev.RoomID, Error: "not a participant of this room"})
		return
	}

	c.roomID = room.ID
	c.hub.join <- joinEvent{client: c, roomID: room.ID}
}

func (c *conferenceClient) handleSendMessage(ev ClientEvent) {
	roomID := ev.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if c.roomID == "" || roomID == "" || ev.Message == "" {
		c.queue(ServerEvent{Type: EventMessageError, RoomID: roomID, Error: "missing data to send message"})
		return
	}

	var room models.ConferenceRoom
	if err := c.hub.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		c.queue(ServerEvent{Type: EventMessageError, RoomID: roomID, Error: "room not found"})
		return
	}
	if !c.isParticipant(room.ID) {
		c.queue(ServerEvent{Type: EventMessageError, RoomID: roomID, Error: "not authorized to send messages in this room"})
		return
	}

	msg := models.ChatMessage{
		RoomIDRef: room.ID,
		UserIDRef: c.userID,
		Username:  c.username,
		Message:   ev.Message,
		Timestamp: time.Now().UTC(),
	}
	if err := c.hub.db.Create(&msg).Error; err != nil {
		log.Printf("ws: append chat message to room %s: %v", room.ID, err)
		c.queue(ServerEvent{Type: EventMessageError, RoomID: roomID, Error: "server error sending message"})
		return
	}

	c.hub.BroadcastToRoom(room.ID, ServerEvent{
		Type:   EventNewMessage,
		RoomID: room.ID,
		Chat: &ChatPayload{
			UserID:    msg.UserIDRef,
			Username:  msg.Username,
			Message:   msg.Message,
			Timestamp: msg.Timestamp,
		},
	}, nil)
}

// handleRecordEmotion drops invalid events without a reply; emitters are
// automated (the emotion detector), not users awaiting feedback.
func (c *conferenceClient) handleRecordEmotion(ev ClientEvent) {
	roomID := ev.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	if c.roomID == "" || roomID == "" || ev.Emotion == "" {
		return
	}

	var room models.ConferenceRoom
	if err := c.hub.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		return
	}
	if !c.isParticipant(room.ID) {
		return
	}

	event := models.EmotionEvent{
		RoomIDRef:  room.ID,
		UserIDRef:  c.userID,
		Username:   c.username,
		Emotion:    ev.Emotion,
		Confidence: ev.Confidence,
		Timestamp:  time.Now().UTC(),
	}
	if err := c.hub.db.Create(&event).Error; err != nil {
		log.Printf("ws: append emotion event to room %s: %v", room.ID, err)
		return
	}

	c.hub.BroadcastToRoom(room.ID, ServerEvent{
		Type:   EventNewEmotionEvent,
		RoomID: room.ID,
		Emotion: &EmotionPayload{
			UserID:     event.UserIDRef,
			Username:   event.Username,
			Emotion:    event.Emotion,
			Confidence: event.Confidence,
			Timestamp:  event.Timestamp,
		},
	}, nil)
}

// handleSignal forwards an opaque WebRTC payload to one peer. The payload
// is never inspected; unknown targets are dropped.
func (c *conferenceClient) handleSignal(ev ClientEvent) {
	if ev.To == "" {
		return
	}
	c.hub.SendToConn(ev.To, ServerEvent{
		Type:   EventSignal,
		From:   c.id,
		Signal: ev.Signal,
	})
}
