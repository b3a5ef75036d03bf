package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Kjdragan/codescribe/internal/db"
	"github.com/Kjdragan/codescribe/internal/models"
	"github.com/Kjdragan/codescribe/internal/store"
)

func setupStore(t *testing.T) (*store.CustomerStore, *gorm.DB) {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "customers.db")), db.Options(false))
	require.NoError(t, err, "failed to connect test database")
	require.NoError(t, db.SetupSchema(context.Background(), testDB))

	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store.NewCustomerStore(testDB), testDB
}

func TestCreateThenRead(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "test@example.com", "Test User", "Test customer for validation")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Test User", got.FullName)
	assert.Equal(t, "Test customer for validation", got.Bio)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateDuplicateEmail(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	original, err := s.Create(ctx, "dup@example.com", "Original", "first bio")
	require.NoError(t, err)

	_, err = s.Create(ctx, "dup@example.com", "Impostor", "second bio")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	got, err := s.GetByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, "Original", got.FullName)
	assert.Equal(t, "first bio", got.Bio)
}

func TestGetByEmailMissingIsNotAnError(t *testing.T) {
	s, _ := setupStore(t)

	got, err := s.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateMissingEmailIsSilentNoOp(t *testing.T) {
	s, testDB := setupStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "keep@example.com", "Keep", "unchanged")
	require.NoError(t, err)

	affected, err := s.UpdateByEmail(ctx, "ghost@example.com", "Ghost", "boo")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	var rows []models.Customer
	require.NoError(t, testDB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Keep", rows[0].FullName)
	assert.Equal(t, "unchanged", rows[0].Bio)
}

func TestDeleteMissingEmailIsSilentNoOp(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "keep@example.com", "Keep", "unchanged")
	require.NoError(t, err)

	affected, err := s.DeleteByEmail(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCustomerLifecycle(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "a@x.com", "A", "bio1")
	require.NoError(t, err)

	affected, err := s.UpdateByEmail(ctx, "a@x.com", "A2", "bio2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A2", got.FullName)
	assert.Equal(t, "bio2", got.Bio)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, created.ID, got.ID)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond, "created_at must not change on update")

	affected, err = s.DeleteByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err = s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCountWithSeed(t *testing.T) {
	s, testDB := setupStore(t)
	ctx := context.Background()

	_, err := db.Seed(ctx, testDB)
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(db.SampleCustomers)), count)

	john, err := s.GetByEmail(ctx, "johndoe@gmail.com")
	require.NoError(t, err)
	require.NotNil(t, john)
	assert.Equal(t, "John Doe", john.FullName)
}
