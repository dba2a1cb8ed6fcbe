package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/doubtdesk/doubtdesk-backend/pkg/db"
	"github.com/doubtdesk/doubtdesk-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *db.Client {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS credit_packs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  amount_paise INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  total_doubts INTEGER NOT NULL,
  small_count INTEGER NOT NULL DEFAULT 0,
  medium_count INTEGER NOT NULL DEFAULT 0,
  large_count INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)

	return db.NewWithConn(conn)
}

func starterPack(name string, amountPaise int64, active bool) *models.CreditPack {
	return &models.CreditPack{
		ID:          uuid.New(),
		Name:        name,
		AmountPaise: amountPaise,
		Currency:    "INR",
		TotalDoubts: 13,
		SmallCount:  10,
		MediumCount: 2,
		LargeCount:  1,
		Active:      active,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))
	ctx := context.Background()

	pack := starterPack("Starter", 49900, true)
	require.NoError(t, repo.Create(ctx, pack))

	loaded, err := repo.Get(ctx, pack.ID)
	require.NoError(t, err)
	assert.Equal(t, "Starter", loaded.Name)
	assert.Equal(t, int64(49900), loaded.AmountPaise)
	assert.Equal(t, 13, loaded.TotalDoubts)
	assert.True(t, loaded.Active)
}

func TestRepositoryGetMissingPack(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListActiveOrdersByPrice(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, starterPack("Plus", 99900, true)))
	require.NoError(t, repo.Create(ctx, starterPack("Starter", 49900, true)))
	require.NoError(t, repo.Create(ctx, starterPack("Retired", 19900, false)))

	packs, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "Starter", packs[0].Name)
	assert.Equal(t, "Plus", packs[1].Name)
}

func TestRepositorySetActiveHidesPack(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))
	ctx := context.Background()

	pack := starterPack("Starter", 49900, true)
	require.NoError(t, repo.Create(ctx, pack))
	require.NoError(t, repo.SetActive(ctx, pack.ID, false))

	packs, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, packs)

	loaded, err := repo.Get(ctx, pack.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Active)
}
