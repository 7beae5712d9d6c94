package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Record printed by the most recent info command, JSON encoded.
	SettingKeyLastResolved = "last_resolved"

	// Scheduled inbox import status.
	SettingKeyInboxLastAt      = "inbox_last_at"
	SettingKeyInboxLastStatus  = "inbox_last_status"
	SettingKeyInboxLastMessage = "inbox_last_message"
)
