package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/jobassist-backend/internal/domain/chat"
	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
)

// AutoMigrateOwned migrates the tables this service writes.
func AutoMigrateOwned(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.Conversation{},
		&chat.Message{},
	)
}

// AutoMigrateAll also creates the job/client/property read models. Those are
// owned by other services in production; this is for local runs and tests.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&jobsite.User{},
		&jobsite.Client{},
		&jobsite.Property{},
		&jobsite.Job{},
		&jobsite.Equipment{},
		&jobsite.JobEvent{},
		&jobsite.Note{},
	); err != nil {
		return err
	}
	return AutoMigrateOwned(db)
}
