package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skilltrace/internal/config"
	"github.com/abhisek/skilltrace/internal/curriculum/curriculumtest"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	content := filepath.Join(dir, "content")
	require.NoError(t, os.MkdirAll(content, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(content, "maths.yaml"), curriculumtest.Fixture, 0o644))

	return &config.Config{
		Database: config.DatabaseConfig{Driver: store.DriverSQLite, DSN: filepath.Join(dir, "test.db")},
		Content:  config.ContentConfig{Dir: content},
		Cache:    config.CacheConfig{Driver: config.CacheSQL, Keep: 1},
		Mastery:  config.MasteryConfig{MinAttempts: 3},
		Exam:     config.ExamConfig{Strategy: "stratified", DefaultCount: 5},
		Timezone: "UTC",
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNew_WiresEngine(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), quiet())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cache)
	assert.False(t, a.Insights.Enabled())
	assert.Equal(t, "UTC", a.Location.String())

	_, err = a.Store.LearnerRepo().Create(ctx, store.Learner{ID: "kid", Name: "Maya", YearLevel: 3})
	require.NoError(t, err)
	for _, q := range []string{"pv-1", "pv-2", "pv-3"} {
		_, err := a.Recorder.Record(ctx, ingest.AttemptInput{LearnerID: "kid", QuestionID: q})
		require.NoError(t, err)
	}

	records, err := a.Mastery.ComputeMastery(ctx, "kid")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, records[0].MasteryScore)

	// A second computation advances and prunes the stored snapshots.
	_, err = a.Recorder.Record(ctx, ingest.AttemptInput{LearnerID: "kid", QuestionID: "pv-4"})
	require.NoError(t, err)
	_, err = a.Mastery.ComputeMastery(ctx, "kid")
	require.NoError(t, err)

	var n int
	require.NoError(t, a.Store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM mastery_snapshots").Scan(&n))
	assert.Equal(t, 1, n)

	deps := a.APIDeps()
	assert.Contains(t, deps.Checks, "database")
	assert.NotContains(t, deps.Checks, "cache")
	assert.Equal(t, 5, a.APIOptions().DefaultExamCount)
}

func TestNew_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheNone

	a, err := New(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer a.Close()

	snaps, err := a.snapshotStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snaps)
}

func TestNew_BadContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Content.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), cfg, quiet())
	assert.Error(t, err)
}
