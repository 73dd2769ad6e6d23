package backup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stylegen/internal/background"
	"stylegen/internal/storage"
)

func newSink(t *testing.T, client *http.Client) (*Sink, *storage.FileStore, *background.Supervisor) {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sup := background.New(nil)
	sink := NewSink(Options{
		Store:      fs,
		Supervisor: sup,
		HTTPClient: client,
		Now:        func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC) },
	})
	return sink, fs, sup
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out
}

func TestCaptureDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "PNGDATA")
	}))
	defer ts.Close()

	sink, fs, sup := newSink(t, ts.Client())
	payload := map[string]any{"id": "task/1", "results": []any{map[string]any{"url": ts.URL + "/a.png"}}}

	if n := sink.Capture(context.Background(), payload); n != 1 {
		t.Fatalf("Capture scheduled %d", n)
	}
	if n := sink.Capture(context.Background(), payload); n != 0 {
		t.Fatalf("duplicate capture scheduled %d", n)
	}
	if err := sup.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	files := listFiles(t, fs.BasePath())
	if len(files) != 1 || hits.Load() != 1 {
		t.Fatalf("files=%v hits=%d", files, hits.Load())
	}
	if !strings.HasPrefix(files[0], "backups/2026-04-02/task_1-") || !strings.HasSuffix(files[0], ".png") {
		t.Fatalf("unexpected key %s", files[0])
	}
}

func TestCaptureDataURL(t *testing.T) {
	sink, fs, sup := newSink(t, nil)
	sink.Capture(context.Background(), map[string]any{"image": "data:image/jpeg;base64,aGVsbG8="})
	_ = sup.Wait(context.Background())

	files := listFiles(t, fs.BasePath())
	if len(files) != 1 || !strings.HasSuffix(files[0], ".jpg") {
		t.Fatalf("unexpected files %v", files)
	}
	data, _ := os.ReadFile(filepath.Join(fs.BasePath(), filepath.FromSlash(files[0])))
	if string(data) != "hello" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestCaptureFailureIsRetriedLater(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		_, _ = io.WriteString(w, "x")
	}))
	defer ts.Close()

	sink, fs, sup := newSink(t, ts.Client())
	payload := map[string]any{"url": ts.URL + "/b"}
	sink.Capture(context.Background(), payload)
	_ = sup.Wait(context.Background())
	if st := sup.Stats(); st.Failed != 1 {
		t.Fatalf("expected a failed task, got %+v", st)
	}

	fail.Store(false)
	if n := sink.Capture(context.Background(), payload); n != 1 {
		t.Fatalf("failed url should be capturable again, scheduled %d", n)
	}
	_ = sup.Wait(context.Background())
	if files := listFiles(t, fs.BasePath()); len(files) != 1 {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestCaptureWithoutArtifacts(t *testing.T) {
	sink, _, _ := newSink(t, nil)
	if n := sink.Capture(context.Background(), map[string]any{"status": "running"}); n != 0 {
		t.Fatalf("scheduled %d", n)
	}
	var nilSink *Sink
	if n := nilSink.Capture(context.Background(), map[string]any{"url": "https://x"}); n != 0 {
		t.Fatal("nil sink should be inert")
	}
}
