// Package audit keeps the trail of postings whose body is not plain text.
//
// Every finding becomes one JSON line in <dir>/<site>/suspicious_content_YYYY-MM-DD.log. When a
// blob store is configured the embedded document is snapshotted as well, under a content hash,
// and the line carries the snapshot URI.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/hash/sha256"
	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
)

// DefaultDir is used when Config.Dir is empty.
const DefaultDir = "logs/suspicious_content"

const (
	filePrefix  = "suspicious_content_"
	dateLayout  = "2006-01-02"
	snapshotExt = ".html"
)

// Config wires a Trail.
type Config struct {
	Dir    string
	Blob   crawler.BlobStore
	Clock  crawler.Clock
	Logger *zap.Logger
}

// Trail implements crawler.Auditor.
type Trail struct {
	dir    string
	blob   crawler.BlobStore
	clock  crawler.Clock
	logger *zap.Logger

	mu    sync.Mutex
	files map[crawler.Platform]*dailyFile
}

var _ crawler.Auditor = (*Trail)(nil)

// dailyFile is the open log for one site and day.
type dailyFile struct {
	day    string
	file   *os.File
	logger *zap.Logger
}

// New prepares the audit directory.
func New(cfg Config) (*Trail, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = utcClock{}
	}
	return &Trail{
		dir:    dir,
		blob:   cfg.Blob,
		clock:  clock,
		logger: logger.Named("audit"),
		files:  make(map[crawler.Platform]*dailyFile),
	}, nil
}

// Record appends the finding to the site's trail for the day it was detected. Failures are
// logged and swallowed.
func (t *Trail) Record(ctx context.Context, f crawler.SuspiciousFinding) {
	at := f.DetectedAt
	if at.IsZero() {
		at = t.clock.Now()
	}
	metrics.ObserveSuspiciousContent(string(f.Site), f.Kind)

	snapshot := t.snapshot(ctx, f, at)

	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.fileFor(f.Site, at)
	if err != nil {
		t.logger.Warn("audit trail unavailable", zap.String("site", string(f.Site)), zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.String("timestamp", at.Format(time.RFC3339)),
		zap.String("type", f.Kind),
		zap.String("url", f.URL),
		zap.String("sample", f.Sample),
		zap.Error(f.Err()),
	}
	if f.PostingURL != "" && f.PostingURL != f.URL {
		fields = append(fields, zap.String("posting_url", f.PostingURL))
	}
	if snapshot != "" {
		fields = append(fields, zap.String("snapshot", snapshot))
	}
	out.logger.Info("suspicious_content", fields...)
}

// snapshot stores the raw document once per distinct content and returns its URI.
func (t *Trail) snapshot(ctx context.Context, f crawler.SuspiciousFinding, at time.Time) string {
	if t.blob == nil || len(f.HTML) == 0 {
		return ""
	}
	key := sha256.ObjectPath(path.Join(string(f.Site), at.Format(dateLayout)), f.HTML, snapshotExt)
	uri, err := t.blob.PutObject(ctx, key, "text/html; charset=utf-8", bytes.NewReader(f.HTML))
	if err != nil {
		t.logger.Warn("snapshot failed", zap.String("url", f.URL), zap.Error(err))
		return ""
	}
	return uri
}

// fileFor returns the day's log for site, rolling over when the date changes. Callers hold mu.
func (t *Trail) fileFor(site crawler.Platform, at time.Time) (*dailyFile, error) {
	day := at.Format(dateLayout)
	if cur, ok := t.files[site]; ok {
		if cur.day == day {
			return cur, nil
		}
		_ = cur.logger.Sync()
		_ = cur.file.Close()
		delete(t.files, site)
	}

	siteDir := filepath.Join(t.dir, string(site))
	if err := os.MkdirAll(siteDir, 0o750); err != nil {
		return nil, fmt.Errorf("create site dir: %w", err)
	}
	name := filepath.Join(siteDir, filePrefix+day+".log")
	// #nosec G304 -- name is built from the configured dir, a known platform and a date.
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), zapcore.InfoLevel)
	df := &dailyFile{day: day, file: file, logger: zap.New(core)}
	t.files[site] = df
	return df, nil
}

// Path returns the log file a finding for site at the given time goes to.
func (t *Trail) Path(site crawler.Platform, at time.Time) string {
	return filepath.Join(t.dir, string(site), filePrefix+at.Format(dateLayout)+".log")
}

// Close flushes and closes every open log.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for site, f := range t.files {
		_ = f.logger.Sync()
		if err := f.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s audit log: %w", site, err))
		}
		delete(t.files, site)
	}
	return errors.Join(errs...)
}

// encoderConfig writes bare JSON objects. The finding carries its own timestamp.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
