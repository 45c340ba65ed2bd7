package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func setupInMemoryAuditStore(t *testing.T) *AuditStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuditLog{}))
	return &AuditStore{db: db}
}

func TestAuditStore_SaveAndListAuditLogs(t *testing.T) {
	store := setupInMemoryAuditStore(t)
	ctx := context.Background()

	entry, err := domain.NewAuditLog("system", "system", domain.ActionSSHConnect, "router1", "connected", "")
	require.NoError(t, err)

	require.NoError(t, store.SaveAuditLog(ctx, *entry))

	logs, err := store.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionSSHConnect, logs[0].Action)
	assert.Equal(t, "router1", logs[0].Target)
}

func TestAuditStore_ListAuditLogs_OrdersMostRecentFirst(t *testing.T) {
	store := setupInMemoryAuditStore(t)
	ctx := context.Background()

	first, _ := domain.NewAuditLog("system", "system", domain.ActionGPSDConnect, "gpsd", "first", "")
	require.NoError(t, store.SaveAuditLog(ctx, *first))

	second, _ := domain.NewAuditLog("system", "system", domain.ActionGPSDState, "gpsd", "second", "")
	second.Timestamp = first.Timestamp.Add(1)
	require.NoError(t, store.SaveAuditLog(ctx, *second))

	logs, err := store.ListAuditLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].Details)
}

func TestAuditStore_ListAuditLogs_RespectsLimit(t *testing.T) {
	store := setupInMemoryAuditStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry, _ := domain.NewAuditLog("system", "system", domain.ActionInfo, "x", "x", "")
		require.NoError(t, store.SaveAuditLog(ctx, *entry))
	}

	logs, err := store.ListAuditLogs(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}
