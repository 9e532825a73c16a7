package ws

import (
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
	maxFrameSize   = 64 * 1024
)

type roomEvent struct {
	roomID  string
	payload []byte
	skip    *conferenceClient
}

type directEvent struct {
	connID  string
	payload []byte
}

type joinEvent struct {
	client *conferenceClient
	roomID string
}

// ConferenceHub owns every live conference connection and the room-scoped
// broadcast groups. All map access happens on the Run goroutine; clients
// talk to the hub through channels only.
type ConferenceHub struct {
	db *gorm.DB

	register   chan *conferenceClient
	unregister chan *conferenceClient
	join       chan joinEvent
	broadcast  chan roomEvent
	direct     chan directEvent

	clients map[string]*conferenceClient
	rooms   map[string]map[*conferenceClient]struct{}
}

func NewConferenceHub(db *gorm.DB) *ConferenceHub {
	return &ConferenceHub{
		db:         db,
		register:   make(chan *conferenceClient),
		unregister: make(chan *conferenceClient),
		join:       make(chan joinEvent),
		broadcast:  make(chan roomEvent, 256),
		direct:     make(chan directEvent, 256),
		clients:    make(map[string]*conferenceClient),
		rooms:      make(map[string]map[*conferenceClient]struct{}),
	}
}

func (h *ConferenceHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
		case client := <-h.unregister:
			h.handleUnregister(client)
		case ev := <-h.join:
			h.handleJoin(ev)
		case ev := <-h.broadcast:
			h.handleBroadcast(ev)
		case ev := <-h.direct:
			if client, ok := h.clients[ev.connID]; ok {
				h.send(client, ev.payload)
			}
		}
	}
}

func (h *ConferenceHub) handleJoin(ev joinEvent) {
	client := ev.client
	// A connection is bound to at most one room; re-joining moves it.
	if client.groupID != "" && client.groupID != ev.roomID {
		h.removeFromRoom(client)
	}
	group, ok := h.rooms[ev.roomID]
	if !ok {
		group = make(map[*conferenceClient]struct{})
		h.rooms[ev.roomID] = group
	}
	group[client] = struct{}{}
	client.groupID = ev.roomID

	connected := mustMarshal(ServerEvent{
		Type:     EventUserConnected,
		RoomID:   ev.roomID,
		UserID:   client.userID,
		Username: client.username,
		ConnID:   client.id,
	})
	for member := range group {
		if member == client {
			continue
		}
		h.send(member, connected)
	}
	h.send(client, mustMarshal(ServerEvent{
		Type:   EventJoinedRoomSuccess,
		RoomID: ev.roomID,
		ConnID: client.id,
	}))
}

func (h *ConferenceHub) handleUnregister(client *conferenceClient) {
	if stored, ok := h.clients[client.id]; !ok || stored != client {
		return
	}
	delete(h.clients, client.id)
	roomID := client.groupID
	h.removeFromRoom(client)
	close(client.send)

	if roomID == "" {
		return
	}
	gone := mustMarshal(ServerEvent{
		Type:   EventUserDisconnected,
		RoomID: roomID,
		UserID: client.userID,
		ConnID: client.id,
	})
	for member := range h.rooms[roomID] {
		h.send(member, gone)
	}
}

func (h *ConferenceHub) handleBroadcast(ev roomEvent) {
	for member := range h.rooms[ev.roomID] {
		if member == ev.skip {
			continue
		}
		h.send(member, ev.payload)
	}
}

// send never blocks the hub; a client that cannot keep up is dropped.
func (h *ConferenceHub) send(client *conferenceClient, payload []byte) {
	select {
	case client.send <- payload:
	default:
		delete(h.clients, client.id)
		h.removeFromRoom(client)
		close(client.send)
		client.conn.Close()
	}
}

func (h *ConferenceHub) removeFromRoom(client *conferenceClient) {
	if client.groupID == "" {
		return
	}
	if group, ok := h.rooms[client.groupID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.rooms, client.groupID)
		}
	}
	client.groupID = ""
}

// BroadcastToRoom delivers an event to every connection in a room's
// broadcast group; skip (optional) is excluded.
func (h *ConferenceHub) BroadcastToRoom(roomID string, event ServerEvent, skip *conferenceClient) {
	h.broadcast <- roomEvent{roomID: roomID, payload: mustMarshal(event), skip: skip}
}

// SendToConn delivers an event to one connection id; unknown ids are a
// no-op, matching the relay's dumb-pipe contract.
func (h *ConferenceHub) SendToConn(connID string, event ServerEvent) {
	h.direct <- directEvent{connID: connID, payload: mustMarshal(event)}
}

func mustMarshal(event ServerEvent) []byte {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: marshal %s event: %v", event.Type, err)
		return []byte(`{}`)
	}
	return data
}
