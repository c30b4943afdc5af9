package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/job-tracker/internal/api"
	"github.com/ksred/job-tracker/internal/config"
	"github.com/ksred/job-tracker/internal/database"
	"github.com/ksred/job-tracker/internal/database/migrations"
	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
	"github.com/ksred/job-tracker/internal/utils"
)

func setupAPIServer(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log := utils.NewLogger(utils.LoggerConfig{Level: "error"})
	_, err = migrations.Apply(context.Background(), db, log)
	require.NoError(t, err)

	wrapped := &database.Database{}
	wrapped.SetDB(db)

	server, err := api.NewServer(config.NewDefault(), wrapped, services.NewJobService(db, log), log)
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	apiURL = srv.URL
	jsonOutput = true
	t.Cleanup(func() {
		apiURL = ""
		jsonOutput = false
	})
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	setupAPIServer(t)

	out, err := run(t, newAddCmd(),
		"--title", "Go Developer",
		"--company", "Gopher Co",
		"--remote-type", "remote",
		"--salary-min", "80000",
		"--notes", "referral",
	)
	require.NoError(t, err)

	var job models.Job
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Positive(t, job.ID)
	assert.Equal(t, models.RemoteTypeRemote, job.RemoteType)
	require.NotNil(t, job.SalaryMin)
	assert.Equal(t, int64(80000), *job.SalaryMin)
	assert.Nil(t, job.SalaryMax)
	assert.Nil(t, job.Location)

	out, err = run(t, newUpdateStatusCmd(), idArg(job.ID), "interview")
	require.NoError(t, err)
	var updated models.Job
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, models.StatusInterview, updated.Status)
	assert.Equal(t, job.Notes, updated.Notes)

	out, err = run(t, newSearchCmd(), "gopher", "--status", "interview")
	require.NoError(t, err)
	assert.Contains(t, out, "Gopher Co")

	out, err = run(t, newStatsCmd())
	require.NoError(t, err)
	var stats services.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusInterview])

	out, err = run(t, newDeleteCmd(), idArg(job.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted job")

	_, err = run(t, newDeleteCmd(), idArg(job.ID))
	assert.Error(t, err)
}

func TestCommands_InvalidInput(t *testing.T) {
	setupAPIServer(t)

	_, err := run(t, newAddCmd(), "--title", "Dev")
	assert.Error(t, err)

	_, err = run(t, newUpdateStatusCmd(), "1", "hired")
	assert.ErrorContains(t, err, "invalid status")

	_, err = run(t, newDeleteCmd(), "abc")
	assert.ErrorContains(t, err, "invalid job id")
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseID(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSalaryRange(t *testing.T) {
	lo, hi := int64(50000), int64(70000)

	assert.Equal(t, "50000-70000", salaryRange(models.Job{SalaryMin: &lo, SalaryMax: &hi}))
	assert.Equal(t, "50000+", salaryRange(models.Job{SalaryMin: &lo}))
	assert.Equal(t, "up to 70000", salaryRange(models.Job{SalaryMax: &hi}))
	assert.Equal(t, "-", salaryRange(models.Job{}))
}

func idArg(id int64) string {
	return strconv.FormatInt(id, 10)
}
