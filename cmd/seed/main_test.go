package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shop_api/internal/config"
	"github.com/Skotchmaster/shop_api/internal/db"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/service"
)

func TestSeed(t *testing.T) {
	cfg := config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "seed.db"),
	}
	ctx := context.Background()

	require.NoError(t, seed(ctx, cfg, "alice", "s3cret"))
	require.NoError(t, seed(ctx, cfg, "alice", "other"))
	assert.ErrorIs(t, seed(ctx, cfg, "", "x"), service.ErrValidation)

	// The file is released after each run, so it can be reopened here.
	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	user, err := repo.NewGormRepo(gdb).GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
}

func TestSeed_BadDriver(t *testing.T) {
	cfg := config.Config{DatabaseDriver: "oracle", DatabaseURL: "x"}
	assert.Error(t, seed(context.Background(), cfg, "alice", "pw"))
}
