package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "pdf-b")
	writeFile(t, filepath.Join(root, "a.PNG"), "png-a")
	writeFile(t, filepath.Join(root, "notes.txt"), "txt")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "pdf-c")
	writeFile(t, filepath.Join(root, "sub", "d.jpeg"), "jpeg-d")
	extra := filepath.Join(t.TempDir(), "e.tiff")
	writeFile(t, extra, "tiff-e")

	ing := NewFSIngestor(Options{SkipHidden: true}, quiet())
	paths, _, stats := ing.Collect([]string{root, extra, filepath.Join(root, "b.pdf")})

	want := []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "d.jpeg"),
		extra,
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if stats.Matched != 5 || stats.Succeeded != 4 || stats.Deduplicated != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCollectHiddenIncluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "pdf-c")

	paths, _, _ := NewFSIngestor(Options{}, quiet()).Collect([]string{root})
	if len(paths) != 1 {
		t.Fatalf("paths = %v, want the hidden pdf", paths)
	}
}

func TestCollectSkipDuplicateContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "same")
	writeFile(t, filepath.Join(root, "copy-of-a.pdf"), "same")
	writeFile(t, filepath.Join(root, "z.pdf"), "different")

	paths, results, stats := NewFSIngestor(Options{SkipDuplicates: true}, quiet()).Collect([]string{root})
	want := []string{filepath.Join(root, "a.pdf"), filepath.Join(root, "z.pdf")}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("stats = %+v", stats)
	}
	for _, r := range results {
		if r.HashHex == "" {
			t.Errorf("result without hash: %+v", r)
		}
	}
}

func TestCollectMissingRoot(t *testing.T) {
	paths, results, stats := NewFSIngestor(Options{}, quiet()).Collect([]string{filepath.Join(t.TempDir(), "gone")})
	if len(paths) != 0 || stats.Failed != 1 || len(results) != 1 || results[0].Err == "" {
		t.Errorf("paths=%v results=%+v stats=%+v", paths, results, stats)
	}
}

func TestAllowedExt(t *testing.T) {
	if !AllowedExt(nil, ".PDF") || AllowedExt(nil, ".txt") {
		t.Error("default set mismatch")
	}
	custom := map[string]struct{}{"pdf": {}}
	if AllowedExt(custom, ".png") {
		t.Error("custom set should reject png")
	}
}
