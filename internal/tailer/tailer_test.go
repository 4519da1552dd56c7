package tailer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"loglite/internal/store"
	"loglite/pkg/types"
)

// fakeWriter records admitted events without touching the relational
// store or index, isolating the Tailer's offset and reassembly logic.
type fakeWriter struct {
	admitted []types.Event
}

func (w *fakeWriter) Admit(appID string, events []types.Event) (int, error) {
	for _, ev := range events {
		ev.AppID = appID
		w.admitted = append(w.admitted, ev)
	}
	return len(events), nil
}

func (w *fakeWriter) Commit() error { return nil }

func newEnv(t *testing.T) (*store.SourceStore, *store.OffsetStore, *fakeWriter) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(dir + "/t.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewSourceStore(db), store.NewOffsetStore(db), &fakeWriter{}
}

func registerSource(t *testing.T, sources *store.SourceStore, path string) types.Source {
	t.Helper()
	src, err := sources.Create(types.Source{
		AppID:   "app1",
		Kind:    types.SourceKindTail,
		Path:    path,
		Enabled: true,
	})
	require.NoError(t, err)
	return src
}

func TestTickResumesFromCommittedOffset(t *testing.T) {
	sources, offsets, w := newEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0o644))

	src := registerSource(t, sources, path)
	tl := New(sources, offsets, w, logrus.New(), time.Minute, 2)
	tl.scanSource(src)

	require.Len(t, w.admitted, 3)

	off, err := offsets.Get(src.ID, path)
	require.NoError(t, err)
	require.EqualValues(t, 29, off)

	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\nline three\nline four\nline five\n"), 0o644))
	w.admitted = nil
	tl.scanSource(src)

	require.Len(t, w.admitted, 2)
	require.Equal(t, "line four", w.admitted[0].Message)
	require.Equal(t, "line five", w.admitted[1].Message)
}

func TestTickHoldsBackPartialLine(t *testing.T) {
	sources, offsets, w := newEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("complete line\nincomplete"), 0o644))

	src := registerSource(t, sources, path)
	tl := New(sources, offsets, w, logrus.New(), time.Minute, 2)
	tl.scanSource(src)

	require.Len(t, w.admitted, 1)
	require.Equal(t, "complete line", w.admitted[0].Message)

	off, err := offsets.Get(src.ID, path)
	require.NoError(t, err)
	require.EqualValues(t, len("complete line\n"), off)
}

func TestTickResetsOffsetOnTruncation(t *testing.T) {
	sources, offsets, w := newEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("a very long first generation line\n"), 0o644))

	src := registerSource(t, sources, path)
	tl := New(sources, offsets, w, logrus.New(), time.Minute, 2)
	tl.scanSource(src)
	require.Len(t, w.admitted, 1)

	require.NoError(t, os.WriteFile(path, []byte("new\n"), 0o644))
	w.admitted = nil
	tl.scanSource(src)

	require.Len(t, w.admitted, 1)
	require.Equal(t, "new", w.admitted[0].Message)
}

func TestResolveCandidatesAppliesIncludeThenExcludeGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log.bak"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	files, err := resolveCandidates(types.Source{
		Path:        dir,
		IncludeGlob: "*.log*",
		ExcludeGlob: "*.bak",
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, filepath.Join(dir, "app.log"), files[0])
}
