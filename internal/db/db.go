package db

import (
	"fmt"

	"todobot/internal/auth"
	"todobot/internal/chat"
	"todobot/internal/jobs"
	"todobot/internal/store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&store.ChatState{},
		&chat.Message{},
		&jobs.Job{},
		&auth.Account{},
	); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_messages_chat on messages(chat_id, id);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		// reminders are looked up by memo id
		`create index if not exists idx_jobs_name on jobs(name, status);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
