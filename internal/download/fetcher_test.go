package download

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/mod-installer/internal/curseforge"
	"github.com/handiism/mod-installer/internal/http"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/retry"
)

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

func testPolicy(s *recordingSleeper) *retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = s.Sleep
	return p
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) Record(e ProgressEvent) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) Phases(artifact string) []Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Phase
	for _, e := range l.events {
		if e.Artifact == artifact {
			out = append(out, e.Phase)
		}
	}
	return out
}

func (l *eventLog) All() []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ProgressEvent(nil), l.events...)
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// flakyServer fails the first failures requests for every path with 503.
func flakyServer(t *testing.T, failures int32, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestFetcher(sleeper *recordingSleeper, events *eventLog) *Fetcher {
	return NewFetcher(http.NewClient(http.Config{}), nil, testPolicy(sleeper), ioutils.ExtractOptions{}, events.Record)
}

func TestFetch_Normal(t *testing.T) {
	srv, hits := flakyServer(t, 0, []byte("jar bytes"))
	root := t.TempDir()
	sleeper := &recordingSleeper{}
	events := &eventLog{}

	out := newTestFetcher(sleeper, events).Fetch(context.Background(),
		model.Artifact{Filename: "jei.jar", URL: srv.URL + "/jei.jar"}, root)

	require.True(t, out.OK(), out.String())
	assert.Equal(t, 1, out.Attempts)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, sleeper.Waits())

	data, err := os.ReadFile(filepath.Join(root, "jei.jar"))
	require.NoError(t, err)
	assert.Equal(t, "jar bytes", string(data))
	assert.Equal(t, []Phase{PhaseDownloading, PhaseCompleted}, events.Phases("jei.jar"))
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	defer srv.Close()
	root := t.TempDir()
	sleeper := &recordingSleeper{}
	events := &eventLog{}

	out := newTestFetcher(sleeper, events).Fetch(context.Background(),
		model.Artifact{Filename: "missing.jar", URL: srv.URL + "/missing.jar"}, root)

	assert.Equal(t, model.ReasonNotFound, out.Reason)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, sleeper.Waits())
	assert.NoFileExists(t, filepath.Join(root, "missing.jar"))
	assert.Equal(t, []Phase{PhaseDownloading, PhaseFailed}, events.Phases("missing.jar"))
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	srv, hits := flakyServer(t, 2, []byte("third time lucky"))
	root := t.TempDir()
	sleeper := &recordingSleeper{}
	events := &eventLog{}

	out := newTestFetcher(sleeper, events).Fetch(context.Background(),
		model.Artifact{Filename: "flaky.jar", URL: srv.URL + "/flaky.jar"}, root)

	require.True(t, out.OK(), out.String())
	assert.Equal(t, 3, out.Attempts)
	assert.EqualValues(t, 3, hits.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.Waits())
	assert.Equal(t, []Phase{
		PhaseDownloading, PhaseRetrying,
		PhaseDownloading, PhaseRetrying,
		PhaseDownloading, PhaseCompleted,
	}, events.Phases("flaky.jar"))
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	srv, hits := flakyServer(t, 1000, nil)
	sleeper := &recordingSleeper{}

	out := newTestFetcher(sleeper, &eventLog{}).Fetch(context.Background(),
		model.Artifact{Filename: "down.jar", URL: srv.URL + "/down.jar"}, t.TempDir())

	assert.Equal(t, model.ReasonExhaustedRetries, out.Reason)
	assert.Equal(t, 5, out.Attempts)
	assert.EqualValues(t, 5, hits.Load())
	assert.Len(t, sleeper.Waits(), 4)
	assert.Contains(t, out.Detail, "503")
}

func TestFetch_InvalidURL(t *testing.T) {
	tests := map[string]string{
		"no scheme":  "edge.forgecdn.net/files/1/2/a.jar",
		"ftp scheme": "ftp://example.com/a.jar",
		"no host":    "https:///a.jar",
	}

	for name, rawURL := range tests {
		t.Run(name, func(t *testing.T) {
			out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(context.Background(),
				model.Artifact{Filename: "a.jar", URL: rawURL}, t.TempDir())

			assert.Equal(t, model.ReasonInvalidURL, out.Reason)
			assert.Equal(t, 0, out.Attempts)
		})
	}
}

func TestFetch_Canceled(t *testing.T) {
	srv, _ := flakyServer(t, 1000, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(ctx,
		model.Artifact{Filename: "a.jar", URL: srv.URL + "/a.jar"}, t.TempDir())

	assert.Equal(t, model.ReasonCanceled, out.Reason)
}

func TestFetch_ResolvesCurseForgeLandingPage(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte("jei"))
	}))
	defer srv.Close()

	f := NewFetcher(http.NewClient(http.Config{}), curseforge.NewResolver(srv.URL+"/files"),
		testPolicy(&recordingSleeper{}), ioutils.ExtractOptions{}, nil)

	out := f.Fetch(context.Background(), model.Artifact{
		Filename: "jei-1.20.jar",
		URL:      "https://www.curseforge.com/minecraft/mc-mods/jei/files/4712345",
	}, t.TempDir())

	require.True(t, out.OK(), out.String())
	assert.Equal(t, srv.URL+"/files/4712/345/jei-1.20.jar", out.URL)
	assert.Equal(t, "/files/4712/345/jei-1.20.jar", gotPath.Load())
}

func TestFetch_ExtractsArchive(t *testing.T) {
	archive := zipBytes(t, map[string]string{
		"settings.cfg":    "a=1",
		"nested/more.cfg": "b=2",
	})
	srv, _ := flakyServer(t, 0, archive)
	root := t.TempDir()
	events := &eventLog{}

	out := newTestFetcher(&recordingSleeper{}, events).Fetch(context.Background(), model.Artifact{
		Filename: "config/pack.zip",
		URL:      srv.URL + "/pack.zip",
		Mode:     model.ModeExtract,
	}, root)

	require.True(t, out.OK(), out.String())
	assert.NoFileExists(t, filepath.Join(root, "config", "pack.zip"))
	assert.FileExists(t, filepath.Join(root, "config", "settings.cfg"))
	assert.FileExists(t, filepath.Join(root, "config", "nested", "more.cfg"))
	assert.Equal(t, []Phase{PhaseDownloading, PhaseExtracting, PhaseCompleted}, events.Phases("config/pack.zip"))
	for _, e := range events.All() {
		if e.Phase == PhaseDownloading || e.Phase == PhaseExtracting {
			assert.Equal(t, LevelInfo, e.Level, e.Message)
		}
	}
}

func TestFetch_BackslashFilename(t *testing.T) {
	srv, _ := flakyServer(t, 0, zipBytes(t, map[string]string{"a.cfg": "a=1"}))
	root := t.TempDir()

	out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(context.Background(), model.Artifact{
		Filename: `cfg\pack.zip`,
		URL:      srv.URL + "/pack.zip",
		Mode:     model.ModeExtract,
	}, root)

	require.True(t, out.OK(), out.String())
	assert.FileExists(t, filepath.Join(root, "cfg", "a.cfg"))
	assert.NoFileExists(t, filepath.Join(root, "a.cfg"))
	assert.Equal(t, []string{"cfg"}, dirNames(t, root))
	assert.Equal(t, []string{"a.cfg"}, dirNames(t, filepath.Join(root, "cfg")))
}

func TestFetch_ArchiveContainingItsOwnName(t *testing.T) {
	srv, _ := flakyServer(t, 0, zipBytes(t, map[string]string{
		"pack.zip": "inner",
		"a.cfg":    "a=1",
	}))
	root := t.TempDir()

	out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(context.Background(), model.Artifact{
		Filename: "pack.zip",
		URL:      srv.URL + "/pack.zip",
		Mode:     model.ModeExtract,
	}, root)

	require.True(t, out.OK(), out.String())
	data, err := os.ReadFile(filepath.Join(root, "pack.zip"))
	require.NoError(t, err)
	assert.Equal(t, "inner", string(data))
	assert.Equal(t, []string{"a.cfg", "pack.zip"}, dirNames(t, root))
}

// scriptedDownloader reports partial progress and fails for the first
// failures attempts, then writes body.
type scriptedDownloader struct {
	failures int
	body     []byte
	calls    int
}

func (d *scriptedDownloader) DownloadFile(_ context.Context, _, destPath string, onProgress func(written, total int64)) error {
	d.calls++
	total := int64(len(d.body))
	if d.calls <= d.failures {
		if onProgress != nil {
			onProgress(total/2, total)
		}
		return errors.New("connection reset")
	}
	if onProgress != nil {
		onProgress(total, total)
	}
	return os.WriteFile(destPath, d.body, 0o644)
}

func TestFetch_ReceivedBytesCountEachArtifactOnce(t *testing.T) {
	d := &scriptedDownloader{failures: 2, body: []byte("0123456789")}
	var received int64
	f := NewFetcher(d, nil, testPolicy(&recordingSleeper{}), ioutils.ExtractOptions{}, nil).
		forRun("run", func(delta int64) { received += delta })

	out := f.Fetch(context.Background(), model.Artifact{Filename: "a.jar", URL: "https://example.com/a.jar"}, t.TempDir())

	require.True(t, out.OK(), out.String())
	assert.Equal(t, 3, out.Attempts)
	assert.EqualValues(t, 10, received)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetch_CorruptArchive(t *testing.T) {
	srv, _ := flakyServer(t, 0, []byte("this is not an archive"))
	root := t.TempDir()

	out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(context.Background(), model.Artifact{
		Filename: "broken.zip",
		URL:      srv.URL + "/broken.zip",
		Mode:     model.ModeExtract,
	}, root)

	assert.Equal(t, model.ReasonExtractionFailed, out.Reason)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, dirNames(t, root))
}

func TestFetch_FilenameOutsideRoot(t *testing.T) {
	out := newTestFetcher(&recordingSleeper{}, &eventLog{}).Fetch(context.Background(),
		model.Artifact{Filename: "../escape.jar", URL: "https://example.com/escape.jar"}, t.TempDir())

	assert.Equal(t, model.ReasonUnexpected, out.Reason)
	assert.Equal(t, 0, out.Attempts)
}
