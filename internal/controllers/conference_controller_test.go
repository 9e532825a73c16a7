package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/models"
)

func createRoom(t *testing.T, db *gorm.DB, host models.User, title string) models.ConferenceRoom {
	t.Helper()
	room := models.ConferenceRoom{Title: title, HostIDRef: host.ID}
	require.NoError(t, db.Create(&room).Error)
	require.NoError(t, db.Create(&models.RoomParticipant{
		RoomIDRef: room.ID,
		UserIDRef: host.ID,
	}).Error)
	return room
}

func addParticipant(t *testing.T, db *gorm.DB, user models.User, room models.ConferenceRoom) {
	t.Helper()
	require.NoError(t, db.Create(&models.RoomParticipant{
		RoomIDRef: room.ID,
		UserIDRef: user.ID,
	}).Error)
}

func TestCreateConferenceRoom(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")

	w := doJSON(t, r, http.MethodPost, "/api/conference/rooms", map[string]string{
		"title": "Morning Lecture",
	}, authCookie(t, host))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	room := decodeBody(t, w)["room"].(map[string]any)
	assert.Equal(t, "Morning Lecture", room["title"])
	assert.Equal(t, models.RoomStatusWaiting, room["status"])
	assert.Equal(t, host.ID, room["hostId"])

	// The host is a participant from the start.
	var n int64
	db.Model(&models.RoomParticipant{}).
		Where("room_id_ref = ? AND user_id_ref = ?", room["id"], host.ID).
		Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestListRoomsExcludesEnded(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	viewer := createUser(t, db, models.RoleStudent, "viewer")

	open := createRoom(t, db, host, "Open")
	ended := createRoom(t, db, host, "Done")
	require.NoError(t, db.Model(&ended).Update("status", models.RoomStatusEnded).Error)

	w := doJSON(t, r, http.MethodGet, "/api/conference/rooms", nil, authCookie(t, viewer))
	require.Equal(t, http.StatusOK, w.Code)
	rooms := decodeBody(t, w)["rooms"].([]any)
	require.Len(t, rooms, 1)
	first := rooms[0].(map[string]any)
	assert.Equal(t, open.ID, first["id"])
	assert.Equal(t, host.Username, first["host"].(map[string]any)["username"])
}

func TestJoinConferenceRoom(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	student := createUser(t, db, models.RoleStudent, "stud")
	room := createRoom(t, db, host, "Lecture")

	w := doJSON(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/join", nil, authCookie(t, student))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Re-joining does not duplicate the membership row.
	w = doJSON(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/join", nil, authCookie(t, student))
	assert.Equal(t, http.StatusOK, w.Code)

	var n int64
	db.Model(&models.RoomParticipant{}).
		Where("room_id_ref = ? AND user_id_ref = ?", room.ID, student.ID).
		Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestJoinEndedRoom(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	student := createUser(t, db, models.RoleStudent, "stud")
	room := createRoom(t, db, host, "Over")
	require.NoError(t, db.Model(&room).Update("status", models.RoomStatusEnded).Error)

	w := doJSON(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/join", nil, authCookie(t, student))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomParticipantsOnly(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	member := createUser(t, db, models.RoleStudent, "member")
	outsider := createUser(t, db, models.RoleStudent, "outsider")
	room := createRoom(t, db, host, "Lecture")
	addParticipant(t, db, member, room)

	w := doJSON(t, r, http.MethodGet, "/api/conference/rooms/"+room.ID, nil, authCookie(t, member))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody(t, w)["room"].(map[string]any)
	assert.Len(t, got["participants"].([]any), 2)

	w = doJSON(t, r, http.MethodGet, "/api/conference/rooms/"+room.ID, nil, authCookie(t, outsider))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateRoomStatus(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	other := createUser(t, db, models.RoleStudent, "other")
	room := createRoom(t, db, host, "Lecture")
	addParticipant(t, db, other, room)

	statusURL := "/api/conference/rooms/" + room.ID + "/status"

	// Non-host cannot change status.
	w := doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": models.RoomStatusActive}, authCookie(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": models.RoomStatusActive}, authCookie(t, host))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// No going backwards, no unknown states.
	w = doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": models.RoomStatusWaiting}, authCookie(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": "Paused"}, authCookie(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": models.RoomStatusEnded}, authCookie(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPut, statusURL, map[string]string{"status": models.RoomStatusActive}, authCookie(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomChatLog(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	student := createUser(t, db, models.RoleStudent, "stud")
	outsider := createUser(t, db, models.RoleStudent, "outsider")
	room := createRoom(t, db, host, "Lecture")
	addParticipant(t, db, student, room)

	chatURL := "/api/conference/rooms/" + room.ID + "/chat"

	// Two messages in a row both land in the log.
	w := doJSON(t, r, http.MethodPost, chatURL, map[string]string{"message": "hello"}, authCookie(t, host))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPost, chatURL, map[string]string{"message": "hi there"}, authCookie(t, student))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, chatURL, nil, authCookie(t, student))
	require.Equal(t, http.StatusOK, w.Code)
	log := decodeBody(t, w)["chatLog"].([]any)
	require.Len(t, log, 2)
	assert.Equal(t, "hello", log[0].(map[string]any)["message"])
	assert.Equal(t, host.Username, log[0].(map[string]any)["username"])
	assert.Equal(t, "hi there", log[1].(map[string]any)["message"])

	w = doJSON(t, r, http.MethodPost, chatURL, map[string]string{"message": "let me in"}, authCookie(t, outsider))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodGet, chatURL, nil, authCookie(t, outsider))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoomSubmissions(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{}
	r := newTestRouter(t, db, uploader)
	host := createUser(t, db, models.RoleTeacher, "host")
	student := createUser(t, db, models.RoleStudent, "stud")
	room := createRoom(t, db, host, "Lab")
	addParticipant(t, db, student, room)

	subURL := "/api/conference/rooms/" + room.ID + "/submissions"

	w := doMultipart(t, r, http.MethodPost, subURL,
		map[string]string{"description": "my lab report"},
		"submissionFile", "report.pdf", "pdf-bytes",
		authCookie(t, student))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, uploader.uploads, 1)
	assert.Contains(t, uploader.uploads[0], "conference_submissions/"+room.ID)

	w = doJSON(t, r, http.MethodGet, subURL, nil, authCookie(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	subs := decodeBody(t, w)["submissions"].([]any)
	require.Len(t, subs, 1)
	first := subs[0].(map[string]any)
	assert.Equal(t, student.Username, first["username"])
	assert.Equal(t, "report.pdf", first["originalFileName"])
	assert.Equal(t, "my lab report", first["description"])
}

func TestRoomSubmissionUploadFailure(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{failUpload: true}
	r := newTestRouter(t, db, uploader)
	host := createUser(t, db, models.RoleTeacher, "host")
	room := createRoom(t, db, host, "Lab")

	w := doMultipart(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/submissions",
		map[string]string{"description": "doomed"},
		"submissionFile", "report.pdf", "pdf-bytes",
		authCookie(t, host))
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	var n int64
	db.Model(&models.Submission{}).Count(&n)
	assert.EqualValues(t, 0, n, "nothing recorded when the host rejects the upload")
	assert.Empty(t, uploader.destroys)
}

func TestRoomSubmissionCleansUpOnStoreFailure(t *testing.T) {
	db := newTestDB(t)
	uploader := &fakeUploader{}
	r := newTestRouter(t, db, uploader)
	host := createUser(t, db, models.RoleTeacher, "host")
	room := createRoom(t, db, host, "Lab")

	// Break the store after the upload step so the handler has a live
	// remote asset and a failed insert.
	require.NoError(t, db.Migrator().DropTable(&models.Submission{}))

	w := doMultipart(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/submissions",
		map[string]string{"description": "orphan candidate"},
		"submissionFile", "report.pdf", "pdf-bytes",
		authCookie(t, host))
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

	require.Len(t, uploader.uploads, 1)
	require.Len(t, uploader.destroys, 1, "the uploaded asset must be destroyed when the insert fails")
	assert.Equal(t, uploader.uploads[0], uploader.destroys[0])
}

func TestRoomSubmissionMissingFile(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	room := createRoom(t, db, host, "Lab")

	w := doMultipart(t, r, http.MethodPost, "/api/conference/rooms/"+room.ID+"/submissions",
		map[string]string{"description": "empty handed"},
		"", "", "",
		authCookie(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomEmotionLog(t *testing.T) {
	db := newTestDB(t)
	r := newTestRouter(t, db, &fakeUploader{})
	host := createUser(t, db, models.RoleTeacher, "host")
	a := createUser(t, db, models.RoleStudent, "anika")
	b := createUser(t, db, models.RoleStudent, "borna")
	room := createRoom(t, db, host, "Lecture")
	addParticipant(t, db, a, room)
	addParticipant(t, db, b, room)

	emoURL := "/api/conference/rooms/" + room.ID + "/emotions"

	w := doJSON(t, r, http.MethodPost, emoURL, map[string]any{
		"emotion":    "happy",
		"confidence": 0.91,
	}, authCookie(t, a))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Confidence arriving as a string is accepted too.
	w = doJSON(t, r, http.MethodPost, emoURL, map[string]any{
		"emotion":    "confused",
		"confidence": "0.40",
	}, authCookie(t, b))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, emoURL, nil, authCookie(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	log := decodeBody(t, w)["emotionLog"].([]any)
	require.Len(t, log, 2)
	assert.Equal(t, "happy", log[0].(map[string]any)["emotion"])
	assert.InDelta(t, 0.40, log[1].(map[string]any)["confidence"].(float64), 1e-9)

	w = doJSON(t, r, http.MethodGet, emoURL+"?userId="+b.ID, nil, authCookie(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	log = decodeBody(t, w)["emotionLog"].([]any)
	require.Len(t, log, 1)
	assert.Equal(t, "confused", log[0].(map[string]any)["emotion"])
}
