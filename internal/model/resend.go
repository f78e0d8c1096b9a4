package model

import "time"

type ResendRequest struct {
	ID       int    `gorm:"primaryKey;autoIncrement"`
	Email    string `gorm:"uniqueIndex;not null"`
	LastSent time.Time
	Count    int // Sends since the counter was last reset, used for logging abuse
}
