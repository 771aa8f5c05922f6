package domain

import "time"

// ChatMessage is a message stored in a project chat room. System messages
// have no sender.
type ChatMessage struct {
	ID              int64     `db:"id" json:"id"`
	Room            string    `db:"room" json:"room"`
	Text            string    `db:"text" json:"text"`
	Sender          *string   `db:"sender" json:"sender"`
	IsSystemMessage bool      `db:"is_system_message" json:"isSystemMessage"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
