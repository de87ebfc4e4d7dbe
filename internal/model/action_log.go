package model

import "time"

// ActionLog records a user action such as login or purchase.
// Entries are written best-effort and never block the action itself.
type ActionLog struct {
	ID         uint      `json:"log_id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index"`
	Action     string    `json:"action" gorm:"size:255;not null;index"`
	Details    string    `json:"details" gorm:"type:text"`
	ActionDate time.Time `json:"action_date" gorm:"index"`
}
