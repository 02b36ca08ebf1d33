package auth

import "time"

// Account is a chat client. Each account owns exactly one conversation and
// its ID doubles as the chat id.
type Account struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}
