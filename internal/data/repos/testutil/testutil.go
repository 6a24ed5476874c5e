package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/jobassist-backend/internal/data/db"
	"github.com/yungbote/jobassist-backend/internal/domain/jobsite"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

var dbSeq atomic.Int64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB opens a private in-memory sqlite database with every table migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func Create(tb testing.TB, gdb *gorm.DB, rows ...any) {
	tb.Helper()
	for _, row := range rows {
		if err := gdb.Create(row).Error; err != nil {
			tb.Fatalf("seed %T: %v", row, err)
		}
	}
}

// Fixture is a single job with its client, property and technician.
type Fixture struct {
	TenantID string
	Job      jobsite.Job
	Client   jobsite.Client
	Property jobsite.Property
	User     jobsite.User
}

// SeedJob inserts a job graph under tenantID using ids derived from jobID.
func SeedJob(tb testing.TB, gdb *gorm.DB, tenantID, jobID string) Fixture {
	tb.Helper()
	userID := jobID + "-tech"
	scheduled := time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)
	fx := Fixture{
		TenantID: tenantID,
		User:     jobsite.User{ID: userID, TenantID: tenantID, Name: "Dana Tech", Email: "dana@example.com"},
		Client:   jobsite.Client{ID: jobID + "-client", TenantID: tenantID, Name: "Acme Dental", ClientType: "commercial", Phone: "555-0100", Email: "ops@acme.test"},
		Property: jobsite.Property{ID: jobID + "-prop", TenantID: tenantID, ClientID: jobID + "-client", AddressLine1: "12 Main St", City: "Springfield", State: "IL", PostalCode: "62701", AccessNotes: "Roof hatch key at front desk"},
	}
	fx.Job = jobsite.Job{
		ID:             jobID,
		TenantID:       tenantID,
		ClientID:       fx.Client.ID,
		PropertyID:     fx.Property.ID,
		AssignedUserID: &userID,
		JobType:        "repair",
		ScheduledAt:    &scheduled,
		Status:         "in_progress",
		Summary:        "RTU-2 not cooling",
	}
	Create(tb, gdb, &fx.User, &fx.Client, &fx.Property, &fx.Job)
	return fx
}
