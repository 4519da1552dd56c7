// Package tailer implements the single cooperative task that wakes on a
// fixed interval, scans every enabled tail source for new bytes, and
// feeds completed lines through the parser and into the Event Writer.
// Offsets are durable rows in the relational store, not in-process file
// handles, so a tick resumes cleanly after a restart.
package tailer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/ianaindex"

	"loglite/internal/metrics"
	"loglite/internal/parser"
	"loglite/internal/store"
	"loglite/internal/workerpool"
	"loglite/pkg/types"
)

// Writer is the subset of the Event Writer the Tailer needs.
type Writer interface {
	Admit(appID string, events []types.Event) (int, error)
	Commit() error
}

// Tailer owns the single background tick loop.
type Tailer struct {
	sources    *store.SourceStore
	offsets    *store.OffsetStore
	writer     Writer
	logger     *logrus.Logger
	interval   time.Duration
	maxWorkers int
}

func New(sources *store.SourceStore, offsets *store.OffsetStore, writer Writer, logger *logrus.Logger, interval time.Duration, maxWorkers int) *Tailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Tailer{
		sources:    sources,
		offsets:    offsets,
		writer:     writer,
		logger:     logger,
		interval:   interval,
		maxWorkers: maxWorkers,
	}
}

// Run blocks, ticking every configured interval until ctx is canceled.
func (t *Tailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick performs exactly one scan-and-admit cycle over every enabled tail
// source. It is exported so callers (tests, a manual admin trigger) can
// run a cycle synchronously.
func (t *Tailer) Tick(ctx context.Context) {
	sources, err := t.sources.ListEnabledTail()
	if err != nil {
		t.logger.WithError(err).Error("tailer: failed to list sources")
		return
	}
	if len(sources) == 0 {
		return
	}

	jobs := make([]workerpool.Job, 0, len(sources))
	for _, src := range sources {
		src := src
		jobs = append(jobs, func(ctx context.Context) error {
			t.scanSource(src)
			return nil
		})
	}

	_ = workerpool.Run(ctx, t.maxWorkers, jobs)
}

func (t *Tailer) scanSource(src types.Source) {
	files, err := resolveCandidates(src)
	if err != nil {
		t.logger.WithError(err).WithField("source_id", src.ID).Warn("tailer: failed to resolve candidates")
		return
	}

	for _, path := range files {
		if err := t.scanFile(src, path); err != nil {
			t.logger.WithError(err).WithFields(logrus.Fields{
				"source_id": src.ID,
				"file_path": path,
			}).Warn("tailer: failed to scan file")
			metrics.TailerErrorsTotal.WithLabelValues(strconv.FormatInt(src.ID, 10)).Inc()
		}
	}
}

func (t *Tailer) scanFile(src types.Source, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A previously seen file vanished; leave its offset untouched.
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	offset, err := t.offsets.Get(src.ID, path)
	if err != nil {
		return err
	}
	if info.Size() < offset {
		offset = 0
	}
	metrics.TailerLagBytes.WithLabelValues(strconv.FormatInt(src.ID, 10), path).Set(float64(info.Size() - offset))
	if info.Size() == offset {
		return nil
	}

	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return err
	}

	// The offset advances in raw file bytes, so the trailing partial line
	// is cut before decoding: decoded text length can differ from the
	// byte range it came from.
	completeLen := completePrefixLen(buf)
	if completeLen == 0 {
		return nil
	}

	text := decode(buf[:completeLen], src.Encoding)

	result, _ := parser.ParseAuto(text, time.Now().UTC())
	if result.Dropped > 0 {
		metrics.ParseDroppedTotal.WithLabelValues(src.AppID, path).Add(float64(result.Dropped))
	}

	for i := range result.Events {
		result.Events[i].Source = path
	}

	accepted, err := t.writer.Admit(src.AppID, result.Events)
	if err != nil {
		return err
	}
	if err := t.writer.Commit(); err != nil {
		return err
	}
	if accepted < len(result.Events) {
		t.logger.WithFields(logrus.Fields{
			"source_id": src.ID,
			"file_path": path,
			"accepted":  accepted,
			"submitted": len(result.Events),
		}).Warn("tailer: partial admission")
	}

	return t.offsets.Upsert(src.ID, path, offset+int64(completeLen))
}

// completePrefixLen returns the byte length of buf up to and including
// its last LF; bytes after that are a partial line held back for the
// next tick.
func completePrefixLen(buf []byte) int {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// decode converts raw bytes to text in the source's configured encoding,
// replacing invalid sequences rather than failing. An unknown encoding
// name falls back to treating the bytes as UTF-8.
func decode(raw []byte, enc string) string {
	if enc == "" || strings.EqualFold(enc, "utf-8") {
		return strings.ToValidUTF8(string(raw), "�")
	}
	e, err := ianaindex.IANA.Encoding(enc)
	if err != nil || e == nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	decoded, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(decoded)
}

// resolveCandidates expands a Source's path into the set of files to
// scan this tick.
func resolveCandidates(src types.Source) ([]string, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{src.Path}, nil
	}

	var include, exclude glob.Glob
	if src.IncludeGlob != "" {
		include, err = glob.Compile(src.IncludeGlob)
		if err != nil {
			return nil, err
		}
	}
	if src.ExcludeGlob != "" {
		exclude, err = glob.Compile(src.ExcludeGlob)
		if err != nil {
			return nil, err
		}
	}

	var out []string
	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != src.Path && !src.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if include != nil && !include.Match(name) {
			return nil
		}
		if exclude != nil && exclude.Match(name) {
			return nil
		}
		out = append(out, path)
		return nil
	}

	if err := filepath.WalkDir(src.Path, walk); err != nil {
		return nil, err
	}
	return out, nil
}
