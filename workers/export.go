// workers/export.go
package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/models"
	"quest-entry-service/store"

	"github.com/google/uuid"
)

// Uploader stores a finished snapshot object.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// ExportResult describes one uploaded snapshot.
type ExportResult struct {
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}

var csvHeader = []string{"id", "email", "walletAddress", "easterEggUnlocked", "easterEggSolved", "createdAt"}

// SnapshotExporter dumps every entry as CSV and uploads it.
type SnapshotExporter struct {
	Store    store.Store
	Uploader Uploader
	Prefix   string
	Log      *logger.Logger
	Metrics  *metrics.Metrics

	now func() time.Time
}

func NewSnapshotExporter(st store.Store, up Uploader, prefix string, log *logger.Logger, m *metrics.Metrics) *SnapshotExporter {
	return &SnapshotExporter{
		Store:    st,
		Uploader: up,
		Prefix:   prefix,
		Log:      log,
		Metrics:  m,
		now:      time.Now,
	}
}

// Export writes the snapshot. Nothing is uploaded if reading the store fails.
func (e *SnapshotExporter) Export(ctx context.Context) (ExportResult, error) {
	res, err := e.export(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if e.Metrics != nil {
		e.Metrics.Exports.WithLabelValues(status).Inc()
	}
	return res, err
}

func (e *SnapshotExporter) export(ctx context.Context) (ExportResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return ExportResult{}, err
	}

	rows := 0
	err := e.Store.EachEntry(ctx, func(en models.Entry) error {
		rows++
		return w.Write(entryRecord(en))
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to read entries: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ExportResult{}, err
	}

	key := e.objectKey()
	if err := e.Uploader.Put(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return ExportResult{}, err
	}

	e.Log.WithJob("export").WithField("key", key).WithField("rows", rows).Info("snapshot uploaded")
	return ExportResult{Key: key, Rows: rows}, nil
}

func (e *SnapshotExporter) objectKey() string {
	prefix := e.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	stamp := e.now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%sentries-%s-%s.csv", prefix, stamp, uuid.NewString()[:8])
}

func entryRecord(en models.Entry) []string {
	return []string{
		en.ID,
		en.Email,
		en.WalletAddress,
		strconv.FormatBool(en.EasterEggUnlocked),
		strconv.FormatBool(en.EasterEggSolved),
		en.CreatedAt.UTC().Format(time.RFC3339),
	}
}
