package storage

import (
	"log/slog"
	"time"

	"pairchat/backend/internal/models"
)

// Journal records the session lifecycle outside the process: room audit rows
// in PostgreSQL, the waiting pool mirror in Redis, and Pub/Sub events.
// Every write is best-effort; failures are logged and never reach the caller.
type Journal struct {
	Storage Storage
	Log     *slog.Logger
	Now     func() time.Time
}

func NewJournal(s Storage, log *slog.Logger) *Journal {
	return &Journal{Storage: s, Log: log, Now: time.Now}
}

func (j *Journal) RoomOpened(room models.ChatRoom) {
	if err := j.Storage.SaveRoom(&room); err != nil {
		j.Log.Error("Failed to save room", "room_id", room.RoomID, "error", err)
	}
	j.publish(models.SessionEvent{
		Kind:   "opened",
		RoomID: room.RoomID,
		Users:  []string{room.User1ID, room.User2ID},
	})
}

func (j *Journal) RoomClosed(roomID, reason string) {
	if err := j.Storage.CloseRoom(roomID, reason); err != nil {
		j.Log.Error("Failed to close room", "room_id", roomID, "error", err)
	}
	j.publish(models.SessionEvent{Kind: "closed", RoomID: roomID, Reason: reason})
}

func (j *Journal) Queued(userID string) {
	if err := j.Storage.AddUserToSearchQueue(userID); err != nil {
		j.Log.Warn("Failed to mirror queued user", "user_id", userID, "error", err)
	}
	j.publish(models.SessionEvent{Kind: "queued", Users: []string{userID}})
}

func (j *Journal) Dequeued(userID string) {
	if err := j.Storage.RemoveUserFromSearchQueue(userID); err != nil {
		j.Log.Warn("Failed to mirror dequeued user", "user_id", userID, "error", err)
	}
	j.publish(models.SessionEvent{Kind: "dequeued", Users: []string{userID}})
}

func (j *Journal) publish(evt models.SessionEvent) {
	evt.At = j.Now().Unix()
	if err := j.Storage.PublishEvent(evt); err != nil {
		j.Log.Warn("Failed to publish session event", "kind", evt.Kind, "error", err)
	}
}
