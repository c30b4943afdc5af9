package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/models"
)

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	db := database.NewDatabase(map[string]interface{}{"path": database.MemoryPath, "log_level": "silent"})
	require.NoError(t, db.Connect())
	defer db.Close()

	_, err := migrations.Apply(ctx, db.DB(), logger)
	require.NoError(t, err)

	created, err := seedIfEmpty(ctx, db, logger)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	again, err := seedIfEmpty(ctx, db, logger)
	require.NoError(t, err)
	assert.Empty(t, again)

	var count int64
	require.NoError(t, db.DB().Model(&models.Job{}).Count(&count).Error)
	assert.Equal(t, int64(len(created)), count)
}
