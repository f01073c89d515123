package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/fingerprint"
	ferrors "git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/render"
)

// fakeRenderer writes "<source content>|<format>" to the output path.
type fakeRenderer struct {
	calls atomic.Int32
	mu    sync.Mutex
	jobs  []render.Job
	fail  func(job render.Job, call int32) error
}

func (f *fakeRenderer) Render(_ context.Context, job render.Job) error {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(job, n); err != nil {
			return err
		}
	}
	src, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o750); err != nil {
		return err
	}
	return os.WriteFile(job.OutputPath, append(src, []byte("|"+string(job.Format))...), 0o600)
}

type countingRecorder struct {
	mu       sync.Mutex
	checks   map[string]int
	outcomes map[string]int
	retries  int
	runs     int
	workers  []int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{checks: map[string]int{}, outcomes: map[string]int{}}
}

func (r *countingRecorder) IncCacheCheck(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[reason]++
}

func (r *countingRecorder) IncDocumentOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

func (r *countingRecorder) ObserveRenderDuration(string, time.Duration, bool) {}
func (r *countingRecorder) ObserveRunDuration(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

func (r *countingRecorder) IncRenderRetry(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *countingRecorder) SetWorkers(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, n)
}

type fixture struct {
	cfg      *config.Config
	store    *docstate.Store
	renderer *fakeRenderer
	recorder *countingRecorder
	conv     *Converter
}

func newFixture(t *testing.T, format config.Format, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.SourceDir = filepath.Join(dir, "docs")
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.TempDir = filepath.Join(dir, "temp")
	cfg.DBPath = filepath.Join(dir, "state.db")
	cfg.Format = format
	cfg.Render.Retry.Initial = time.Millisecond
	cfg.Render.Retry.Max = time.Millisecond
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.MkdirAll(cfg.SourceDir, 0o750))
	for name, content := range files {
		writeSource(t, cfg, name, content)
	}

	store, err := docstate.Open(docstate.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{cfg: cfg, store: store, renderer: &fakeRenderer{}, recorder: newCountingRecorder()}
	f.conv, err = New(cfg, store, f.renderer, WithRecorder(f.recorder))
	require.NoError(t, err)
	return f
}

func writeSource(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.SourceDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func mustFingerprint(t *testing.T, path string) string {
	t.Helper()
	fp, err := fingerprint.File(path)
	require.NoError(t, err)
	return fp
}

func TestDiscover(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{
		"b.md":       "b",
		"a.md":       "a",
		"README.md":  "readme",
		".hidden.md": "x",
		"notes.txt":  "x",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.SourceDir, "sub.md"), 0o750))

	got, err := f.conv.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.cfg.SourceDir, "a.md"),
		filepath.Join(f.cfg.SourceDir, "b.md"),
	}, got)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	f := newFixture(t, config.FormatPDF, nil)
	f.cfg.SourceDir = filepath.Join(t.TempDir(), "absent")

	_, err := f.conv.Discover()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestConvertAllThenSkip(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"one.md": "# One", "two.md": "# Two"})
	ctx := context.Background()

	summary, err := f.conv.ConvertAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Converted)
	assert.NotEmpty(t, summary.RunID)
	assert.FileExists(t, filepath.Join(f.cfg.OutputDir, "pdf", "one.pdf"))
	assert.NoDirExists(t, f.cfg.TempDir)

	rec, err := f.store.Get(ctx, "pdf/one.md")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.HasOutput())
	assert.Equal(t, f.cfg.RenderConfig(), rec.Config)

	summary, err = f.conv.ConvertAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, int32(2), f.renderer.calls.Load())

	assert.Equal(t, 2, f.recorder.checks[string(docstate.ReasonNoRecord)])
	assert.Equal(t, 2, f.recorder.checks[string(docstate.ReasonFresh)])
	assert.Equal(t, 2, f.recorder.outcomes[string(OutcomeConverted)])
	assert.Equal(t, 2, f.recorder.outcomes[string(OutcomeSkipped)])
	assert.Equal(t, 2, f.recorder.runs)
}

func TestConvertOneRegeneratesOnChanges(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "v1"})
	ctx := context.Background()
	src := filepath.Join(f.cfg.SourceDir, "doc.md")
	out := f.conv.OutputPath(src)

	outcome, err := f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)

	writeSource(t, f.cfg, "doc.md", "v2")
	outcome, err = f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)

	require.NoError(t, os.Remove(out))
	outcome, err = f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)

	require.NoError(t, os.WriteFile(out, []byte("tampered"), 0o600))
	outcome, err = f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)

	outcome, err = f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	assert.Equal(t, 1, f.recorder.checks[string(docstate.ReasonSourceChanged)])
	assert.Equal(t, 1, f.recorder.checks[string(docstate.ReasonOutputMissing)])
	assert.Equal(t, 1, f.recorder.checks[string(docstate.ReasonOutputModified)])
}

func TestConfigChangeInvalidatesPDF(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "v1"})
	ctx := context.Background()
	src := filepath.Join(f.cfg.SourceDir, "doc.md")

	_, err := f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)

	f.cfg.Profile = "a4-screen"
	conv, err := New(f.cfg, f.store, f.renderer, WithRecorder(f.recorder))
	require.NoError(t, err)
	outcome, err := conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)
	assert.Equal(t, 1, f.recorder.checks[string(docstate.ReasonConfigChanged)])
}

func TestFormatsKeepSeparateRecords(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "v1"})
	ctx := context.Background()
	src := filepath.Join(f.cfg.SourceDir, "doc.md")
	_, err := f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)

	epubCfg := *f.cfg
	epubCfg.Format = config.FormatEPUB
	epubCfg.Profile = ""
	require.NoError(t, epubCfg.Validate())
	epub, err := New(&epubCfg, f.store, f.renderer)
	require.NoError(t, err)

	outcome, err := epub.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)

	outcome, err = f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	rec, err := f.store.Get(ctx, "epub/doc.md")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "kindle-basic", rec.Config.StyleProfile)
	assert.Empty(t, rec.Config.PageMargins)
	assert.False(t, rec.Config.PageNumbers)
	assert.Equal(t, ".epub", filepath.Ext(epub.OutputPath(src)))
}

func TestRetryableFailureIsRetried(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "v1"})
	f.renderer.fail = func(_ render.Job, call int32) error {
		if call == 1 {
			return ferrors.RenderError("timed out").Retryable().Build()
		}
		return nil
	}

	outcome, err := f.conv.ConvertOne(context.Background(), filepath.Join(f.cfg.SourceDir, "doc.md"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConverted, outcome)
	assert.Equal(t, int32(2), f.renderer.calls.Load())
	assert.Equal(t, 1, f.recorder.retries)
}

func TestPermanentFailureIsReported(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"bad.md": "x", "good.md": "y"})
	f.renderer.fail = func(job render.Job, _ int32) error {
		if filepath.Base(job.SourcePath) == "bad.md" {
			return ferrors.RenderError("converter failed").Build()
		}
		return nil
	}
	ctx := context.Background()

	summary, err := f.conv.ConvertAll(ctx)
	require.NoError(t, err)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 1, summary.Converted)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, filepath.Join(f.cfg.SourceDir, "bad.md"), summary.Failures[0].Path)
	assert.Equal(t, 0, f.recorder.retries)

	rec, err := f.store.Get(ctx, "pdf/bad.md")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestConvertAllCancelled(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"a.md": "a", "b.md": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.conv.ConvertAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConvertAllSequentialWhenNotParallel(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"a.md": "a", "b.md": "b", "c.md": "c"})
	f.cfg.Parallel = false

	var inFlight, peak atomic.Int32
	f.renderer.fail = func(render.Job, int32) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	summary, err := f.conv.ConvertAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Converted)
	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, []int{1, 0}, f.recorder.workers)
}

func TestForget(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "v1"})
	ctx := context.Background()
	src := filepath.Join(f.cfg.SourceDir, "doc.md")
	_, err := f.conv.ConvertOne(ctx, src)
	require.NoError(t, err)

	require.NoError(t, f.conv.Forget(ctx, src))
	rec, err := f.store.Get(ctx, "pdf/doc.md")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUnreadableSourceFails(t *testing.T) {
	f := newFixture(t, config.FormatPDF, nil)
	outcome, err := f.conv.ConvertOne(context.Background(), filepath.Join(f.cfg.SourceDir, "gone.md"))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryIO))
	assert.Equal(t, 1, f.recorder.outcomes[string(OutcomeFailed)])
}

func TestOutputPath(t *testing.T) {
	f := newFixture(t, config.FormatEPUB, nil)

	assert.Equal(t, filepath.Join(f.cfg.OutputDir, "epub", "guide.epub"),
		f.conv.OutputPath(filepath.Join(f.cfg.SourceDir, "guide.md")))
}

func TestSilentToolDoesNotRefreshStaleArtifact(t *testing.T) {
	f := newFixture(t, config.FormatPDF, map[string]string{"doc.md": "# v1"})
	ctx := context.Background()
	src := filepath.Join(f.cfg.SourceDir, "doc.md")

	var writes atomic.Int32
	runner := func(_ context.Context, cmd render.Command) ([]byte, error) {
		// Only the first invocation produces a file; later ones exit 0 silently.
		if writes.Add(1) == 1 {
			return nil, os.WriteFile(cmd.Argv[2], []byte("PDF of v1"), 0o600)
		}
		return nil, nil
	}
	tools := config.ToolsConfig{PDFCommand: []string{"printer", "{input}", "{output}"}}
	conv, err := New(f.cfg, f.store, render.NewToolRenderer(tools, render.WithRunner(runner)))
	require.NoError(t, err)

	outcome, err := conv.ConvertOne(ctx, src)
	require.NoError(t, err)
	require.Equal(t, OutcomeConverted, outcome)

	writeSource(t, f.cfg, "doc.md", "# v2")
	outcome, err = conv.ConvertOne(ctx, src)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.NoFileExists(t, conv.OutputPath(src))

	outcome, err = conv.ConvertOne(ctx, src)
	require.Error(t, err)
	assert.NotEqual(t, OutcomeSkipped, outcome)

	rec, err := f.store.Get(ctx, "pdf/doc.md")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEqual(t, rec.SourceFingerprint, mustFingerprint(t, src))
}
