package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
)

const wsTestSecret = "ws-test-secret"

var wsDBCounter atomic.Int64

func newWSTestServer(t *testing.T) (*gorm.DB, *httptest.Server) {
	t.Helper()
	dsn := fmt.Sprintf("file:wstest%d?mode=memory&cache=shared", wsDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ConferenceRoom{},
		&models.RoomParticipant{},
		&models.ChatMessage{},
		&models.EmotionEvent{},
	))

	hub := NewConferenceHub(db)
	go hub.Run()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	authMW := middleware.Authenticated(db, middleware.AuthConfig{
		JWTSecret: wsTestSecret,
		ExpiresIn: time.Hour,
	})
	r.GET("/ws", authMW, ConferenceHandler(hub))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return db, srv
}

func wsSeedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "irrelevant",
		Role:     models.RoleStudent,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func wsSeedRoom(t *testing.T, db *gorm.DB, host models.User, participants ...models.User) models.ConferenceRoom {
	t.Helper()
	room := models.ConferenceRoom{Title: "Test Room", HostIDRef: host.ID}
	require.NoError(t, db.Create(&room).Error)
	for _, p := range append([]models.User{host}, participants...) {
		require.NoError(t, db.Create(&models.RoomParticipant{
			RoomIDRef: room.ID,
			UserIDRef: p.ID,
		}).Error)
	}
	return room
}

func dialWS(t *testing.T, srv *httptest.Server, user models.User) *websocket.Conn {
	t.Helper()
	token, err := middleware.SignToken(user, middleware.AuthConfig{
		JWTSecret: wsTestSecret,
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Cookie", middleware.CookieNameForRole(user.Role)+"="+token)
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev ClientEvent) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ev))
}

func readEvent(t *testing.T, conn *websocket.Conn) ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev ServerEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil skips unrelated frames (presence notifications mostly) until
// one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) ServerEvent {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if ev.Type == eventType {
			return ev
		}
	}
	t.Fatalf("never received %q event", eventType)
	return ServerEvent{}
}

func TestDialRequiresAuth(t *testing.T) {
	_, srv := newWSTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinRoom(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	room := wsSeedRoom(t, db, host)

	conn := dialWS(t, srv, host)
	sendEvent(t, conn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})

	ev := readEvent(t, conn)
	assert.Equal(t, EventJoinedRoomSuccess, ev.Type)
	assert.Equal(t, room.ID, ev.RoomID)
	assert.NotEmpty(t, ev.ConnID)
}

func TestJoinRoomErrors(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	outsider := wsSeedUser(t, db, "outsider")
	room := wsSeedRoom(t, db, host)
	ended := wsSeedRoom(t, db, host)
	require.NoError(t, db.Model(&ended).Update("status", models.RoomStatusEnded).Error)

	tcases := []struct {
		name    string
		user    models.User
		roomID  string
		wantErr string
	}{
		{name: "missing room id", user: host, roomID: "", wantErr: "room id is required"},
		{name: "unknown room", user: host, roomID: "no-such-room", wantErr: "room not found"},
		{name: "ended room", user: host, roomID: ended.ID, wantErr: "room has ended"},
		{name: "not a participant", user: outsider, roomID: room.ID, wantErr: "not a participant of this room"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			conn := dialWS(t, srv, tc.user)
			sendEvent(t, conn, ClientEvent{Type: EventJoinRoom, RoomID: tc.roomID})
			ev := readEvent(t, conn)
			assert.Equal(t, EventJoinError, ev.Type)
			assert.Equal(t, tc.wantErr, ev.Error)
		})
	}
}

func TestPresenceNotifications(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	guest := wsSeedUser(t, db, "guest")
	room := wsSeedRoom(t, db, host, guest)

	hostConn := dialWS(t, srv, host)
	sendEvent(t, hostConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, hostConn, EventJoinedRoomSuccess)

	guestConn := dialWS(t, srv, guest)
	sendEvent(t, guestConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, guestConn, EventJoinedRoomSuccess)

	connected := readUntil(t, hostConn, EventUserConnected)
	assert.Equal(t, guest.ID, connected.UserID)
	assert.Equal(t, guest.Username, connected.Username)
	assert.NotEmpty(t, connected.ConnID)

	guestConn.Close()
	gone := readUntil(t, hostConn, EventUserDisconnected)
	assert.Equal(t, guest.ID, gone.UserID)
}

func TestChatMessageBroadcastAndPersist(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	guest := wsSeedUser(t, db, "guest")
	room := wsSeedRoom(t, db, host, guest)

	hostConn := dialWS(t, srv, host)
	sendEvent(t, hostConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, hostConn, EventJoinedRoomSuccess)

	guestConn := dialWS(t, srv, guest)
	sendEvent(t, guestConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, guestConn, EventJoinedRoomSuccess)
	readUntil(t, hostConn, EventUserConnected)

	sendEvent(t, hostConn, ClientEvent{Type: EventSendMessage, Message: "hello everyone"})

	// The sender hears its own message too.
	for _, conn := range []*websocket.Conn{hostConn, guestConn} {
		ev := readUntil(t, conn, EventNewMessage)
		require.NotNil(t, ev.Chat)
		assert.Equal(t, "hello everyone", ev.Chat.Message)
		assert.Equal(t, host.ID, ev.Chat.UserID)
		assert.Equal(t, host.Username, ev.Chat.Username)
	}

	var stored models.ChatMessage
	require.NoError(t, db.Where("room_id_ref = ?", room.ID).First(&stored).Error)
	assert.Equal(t, "hello everyone", stored.Message)
}

func TestSendMessageWithoutJoin(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	wsSeedRoom(t, db, host)

	conn := dialWS(t, srv, host)
	sendEvent(t, conn, ClientEvent{Type: EventSendMessage, Message: "premature"})

	ev := readEvent(t, conn)
	assert.Equal(t, EventMessageError, ev.Type)
	assert.Equal(t, "missing data to send message", ev.Error)
}

func TestEmotionEventBroadcastAndPersist(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	guest := wsSeedUser(t, db, "guest")
	room := wsSeedRoom(t, db, host, guest)

	hostConn := dialWS(t, srv, host)
	sendEvent(t, hostConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, hostConn, EventJoinedRoomSuccess)

	guestConn := dialWS(t, srv, guest)
	sendEvent(t, guestConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, guestConn, EventJoinedRoomSuccess)

	sendEvent(t, guestConn, ClientEvent{
		Type:       EventRecordEmotion,
		Emotion:    "happy",
		Confidence: 0.87,
	})

	ev := readUntil(t, hostConn, EventNewEmotionEvent)
	require.NotNil(t, ev.Emotion)
	assert.Equal(t, "happy", ev.Emotion.Emotion)
	assert.Equal(t, guest.ID, ev.Emotion.UserID)
	assert.InDelta(t, 0.87, ev.Emotion.Confidence, 1e-9)

	var stored models.EmotionEvent
	require.NoError(t, db.Where("room_id_ref = ?", room.ID).First(&stored).Error)
	assert.Equal(t, "happy", stored.Emotion)
}

func TestSignalRelay(t *testing.T) {
	db, srv := newWSTestServer(t)
	host := wsSeedUser(t, db, "host")
	guest := wsSeedUser(t, db, "guest")
	room := wsSeedRoom(t, db, host, guest)

	hostConn := dialWS(t, srv, host)
	sendEvent(t, hostConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	readUntil(t, hostConn, EventJoinedRoomSuccess)

	guestConn := dialWS(t, srv, guest)
	sendEvent(t, guestConn, ClientEvent{Type: EventJoinRoom, RoomID: room.ID})
	joined := readUntil(t, guestConn, EventJoinedRoomSuccess)
	guestConnID := joined.ConnID

	// The host learns the guest's connection id from the presence event
	// and signals it directly.
	connected := readUntil(t, hostConn, EventUserConnected)
	offer := json.RawMessage(`{"sdp":"fake-offer"}`)
	sendEvent(t, hostConn, ClientEvent{
		Type:   EventSignal,
		To:     connected.ConnID,
		Signal: offer,
	})

	ev := readUntil(t, guestConn, EventSignal)
	assert.NotEmpty(t, ev.From)
	assert.NotEqual(t, guestConnID, ev.From)
	assert.JSONEq(t, string(offer), string(ev.Signal))
}
