package jobs

import "time"

const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusDone      = "DONE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

const TypeReminder = "REMINDER_DISPATCH"

type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	ChatID int64  `gorm:"index;not null"`

	// Name addresses the job for lookup and cancellation; reminders use the memo ID.
	Name    string `gorm:"type:text;index;not null;default:''"`
	Type    string `gorm:"type:text;not null"`
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Reminder is the payload of a REMINDER_DISPATCH job.
type Reminder struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}
