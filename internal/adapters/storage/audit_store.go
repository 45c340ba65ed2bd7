package storage

import (
	"context"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
)

// AuditStore persists audit.Service's lifecycle entries to SQLite. It is a
// trimmed sibling of SQLiteAdapter: the original migrates device, probe and
// vulnerability tables this scope has no domain model for, so AuditStore
// only ever migrates domain.AuditLog.
type AuditStore struct {
	db *gorm.DB
}

var _ ports.AuditRepository = (*AuditStore)(nil)

// NewAuditStore opens (creating if absent) a SQLite database at path and
// migrates the audit log table, following the same WAL/busy-timeout tuning
// the original storage adapter applies.
func NewAuditStore(path string) (*AuditStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.AuditLog{}); err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	return &AuditStore{db: db}, nil
}

func (a *AuditStore) SaveAuditLog(ctx context.Context, log domain.AuditLog) error {
	return a.db.WithContext(ctx).Create(&log).Error
}

func (a *AuditStore) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	if err := a.db.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (a *AuditStore) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
