package models

import "time"

// ChatRoom is the audit record of a 1-on-1 chat session between two users.
// The live session state is kept in memory by the chat hub; this row only
// records that the pairing happened and when it ended.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID string `gorm:"primaryKey"`
	// User1ID is the anonymous ID of the user whose arrival created the room.
	User1ID string `gorm:"index"`
	// User2ID is the anonymous ID of the partner taken from the waiting pool.
	User2ID string `gorm:"index"`
	// IsActive indicates whether the chat room is currently active.
	IsActive bool
	// StartedAt is the timestamp when the chat room was created.
	StartedAt time.Time
	// EndedAt is the timestamp when the chat room was closed.
	EndedAt *time.Time
	// EndReason records why the room ended ("closed" or "disconnected").
	EndReason string
}
