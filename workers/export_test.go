package workers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
	err         error
	calls       int
}

func (u *fakeUploader) Put(_ context.Context, key string, body []byte, contentType string) error {
	u.calls++
	if u.err != nil {
		return u.err
	}
	u.key, u.body, u.contentType = key, body, contentType
	return nil
}

func newTestStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "quest.db"))
	s, err := store.OpenSQLite(context.Background(), dsn, "entries")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for i, w := range []string{"0xA", "0xB", "0xC"} {
		_, err := s.CreateEntry(ctx, store.NewEntry{
			Email:             fmt.Sprintf("p%d@x.com", i),
			WalletAddress:     w,
			EasterEggUnlocked: true,
		})
		require.NoError(t, err)
	}
	_, err := s.MarkSolved(ctx, "0xB")
	require.NoError(t, err)
}

func TestSnapshotExporter_Export(t *testing.T) {
	st := newTestStore(t)
	seed(t, st)
	up := &fakeUploader{}
	m := metrics.New(prometheus.NewRegistry())

	e := NewSnapshotExporter(st, up, "exports", logger.Discard(), m)
	e.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }

	res, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.True(t, strings.HasPrefix(res.Key, "exports/entries-20260504T030201Z-"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".csv"))
	assert.Equal(t, res.Key, up.key)
	assert.Equal(t, "text/csv", up.contentType)

	records, err := csv.NewReader(strings.NewReader(string(up.body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "0xA", records[1][2])
	assert.Equal(t, "0xB", records[2][2])
	assert.Equal(t, "true", records[2][4])
	assert.Equal(t, "false", records[3][4])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("ok")))
}

func TestSnapshotExporter_UploadFailure(t *testing.T) {
	st := newTestStore(t)
	up := &fakeUploader{err: errors.New("bucket gone")}
	m := metrics.New(prometheus.NewRegistry())

	e := NewSnapshotExporter(st, up, "", logger.Discard(), m)
	_, err := e.Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("error")))
}

func TestSnapshotExporter_StoreFailureSkipsUpload(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Close())
	up := &fakeUploader{}

	e := NewSnapshotExporter(st, up, "exports/", logger.Discard(), metrics.New(prometheus.NewRegistry()))
	_, err := e.Export(context.Background())
	require.Error(t, err)
	assert.Zero(t, up.calls)
}

type fakeWarmer struct{ calls int }

func (w *fakeWarmer) Warm(context.Context) (int64, error) {
	w.calls++
	return 0, nil
}

func TestScheduler_RefreshStats(t *testing.T) {
	st := newTestStore(t)
	seed(t, st)
	m := metrics.New(prometheus.NewRegistry())
	w := &fakeWarmer{}

	s := &Scheduler{store: st, warmer: w, log: logger.Discard(), metrics: m, timeout: time.Second}
	s.RefreshStats()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvedEntries))
	assert.Equal(t, 1, w.calls)
}

func TestStartScheduler_NoJobs(t *testing.T) {
	st := newTestStore(t)
	s, err := StartScheduler(SchedulerConfig{}, st, nil, nil, logger.Discard(), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, s.Shutdown())
}
