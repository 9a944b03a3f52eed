package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.pdf"), "report-a")
	write(t, filepath.Join(root, "b.PNG"), "report-b")
	write(t, filepath.Join(root, "sub", "c.jpg"), "report-a")
	write(t, filepath.Join(root, "notes.txt"), "ignored")
	write(t, filepath.Join(root, ".hidden", "d.pdf"), "report-d")

	docs, stats, err := ScanDirectory(context.Background(), root, true, nil)
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Accepted)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(0), stats.Failed)

	byPath := map[string]Document{}
	for _, d := range docs {
		byPath[filepath.Base(d.Path)] = d
	}
	assert.False(t, byPath["a.pdf"].Deduplicated)
	assert.True(t, byPath["c.jpg"].Deduplicated)
	assert.Equal(t, byPath["a.pdf"].HashHex, byPath["c.jpg"].HashHex)
	assert.Len(t, byPath["b.PNG"].HashHex, 64)
}

func TestScanDirectory_IncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ".hidden", "d.pdf"), "report-d")
	docs, _, err := ScanDirectory(context.Background(), root, false, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestScanDirectory_RequiresRoot(t *testing.T) {
	_, _, err := ScanDirectory(context.Background(), "  ", true, nil)
	assert.Error(t, err)
}

func TestDeduperAcrossScans(t *testing.T) {
	d := NewDeduper()
	first, dup := d.Seen("h1", "/a.pdf")
	assert.False(t, dup)
	assert.Equal(t, "/a.pdf", first)
	first, dup = d.Seen("h1", "/b.pdf")
	assert.True(t, dup)
	assert.Equal(t, "/a.pdf", first)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("/x/report.pdf"))
	assert.False(t, IsHidden("."))
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "existing.pdf"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evCh, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	var got []string
	next := func() string {
		select {
		case p := <-evCh:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	got = append(got, filepath.Base(next()))

	write(t, filepath.Join(root, "ignored.txt"), "x")
	write(t, filepath.Join(root, "new.png"), "png")
	got = append(got, filepath.Base(next()))

	sort.Strings(got)
	assert.Equal(t, []string{"existing.pdf", "new.png"}, got)

	cancel()
	for range evCh {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
