package docstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsRegenerationScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	out, outFP := writeOutput(t, "%PDF-1.7 rendered bytes")

	require.NoError(t, store.Save(ctx, "doc.md", "hashA", outFP, printConfig()))

	stale, err := store.NeedsRegeneration(ctx, "doc.md", "hashA", out, printConfig())
	require.NoError(t, err)
	assert.False(t, stale)

	// Repeated checks stay fresh.
	stale, err = store.NeedsRegeneration(ctx, "doc.md", "hashA", out, printConfig())
	require.NoError(t, err)
	assert.False(t, stale)

	screen := printConfig()
	screen.StyleProfile = "a4-screen"
	stale, err = store.NeedsRegeneration(ctx, "doc.md", "hashA", out, screen)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestNeedsRegenerationEmptyStore(t *testing.T) {
	store := newTestStore(t)

	stale, err := store.NeedsRegeneration(t.Context(), "missing.md", "anything", "/nonexistent/out.pdf", RenderConfig{})
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestCheckReasons(t *testing.T) {
	base := printConfig()

	tests := []struct {
		name string
		// setup saves state and returns the arguments for Check.
		setup func(t *testing.T, s *Store) (sourceFP, outputPath string, cfg RenderConfig)
		want  StaleReason
	}{
		{
			name: "fresh",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, fp := writeOutput(t, "artifact")
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", fp, base))
				return "src", out, base
			},
			want: ReasonFresh,
		},
		{
			name: "no record",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, _ := writeOutput(t, "artifact")
				return "src", out, base
			},
			want: ReasonNoRecord,
		},
		{
			name: "source changed",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, fp := writeOutput(t, "artifact")
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", fp, base))
				return "src-edited", out, base
			},
			want: ReasonSourceChanged,
		},
		{
			name: "output fingerprint absent",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, _ := writeOutput(t, "artifact")
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", "", base))
				return "src", out, base
			},
			want: ReasonNoOutputFingerprint,
		},
		{
			name: "output deleted",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, fp := writeOutput(t, "artifact")
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", fp, base))
				require.NoError(t, os.Remove(out))
				return "src", out, base
			},
			want: ReasonOutputMissing,
		},
		{
			name: "output tampered by one byte",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				out, fp := writeOutput(t, "artifact")
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", fp, base))
				require.NoError(t, os.WriteFile(out, []byte("artifacT"), 0o600))
				return "src", out, base
			},
			want: ReasonOutputModified,
		},
		{
			name: "output unreadable",
			setup: func(t *testing.T, s *Store) (string, string, RenderConfig) {
				// A directory exists but cannot be fingerprinted as a file.
				dir := filepath.Join(t.TempDir(), "doc.pdf")
				require.NoError(t, os.Mkdir(dir, 0o750))
				require.NoError(t, s.Save(t.Context(), "doc.md", "src", "deadbeef", base))
				return "src", dir, base
			},
			want: ReasonOutputUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			sourceFP, out, cfg := tt.setup(t, store)

			got, err := store.Check(t.Context(), "doc.md", sourceFP, out, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Stale(), got != ReasonFresh)
		})
	}
}

func TestCheckEachConfigFieldIndependently(t *testing.T) {
	base := printConfig()

	mutations := map[string]func(c *RenderConfig){
		"style_profile":      func(c *RenderConfig) { c.StyleProfile = "a4-screen" },
		"max_diagram_width":  func(c *RenderConfig) { c.MaxDiagramWidth = Percent(80) },
		"max_diagram_height": func(c *RenderConfig) { c.MaxDiagramHeight = Dimension{} },
		"page_margins":       func(c *RenderConfig) { c.PageMargins = "2cm" },
		"has_page_numbers":   func(c *RenderConfig) { c.PageNumbers = false },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			store := newTestStore(t)
			ctx := t.Context()
			out, fp := writeOutput(t, "artifact")
			require.NoError(t, store.Save(ctx, "doc.md", "src", fp, base))

			changed := base
			mutate(&changed)
			assert.Equal(t, []string{field}, base.Diff(changed))

			got, err := store.Check(ctx, "doc.md", "src", out, changed)
			require.NoError(t, err)
			assert.Equal(t, ReasonConfigChanged, got)
		})
	}
}

func TestCheckSourceBeforeConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	out, fp := writeOutput(t, "artifact")
	require.NoError(t, store.Save(ctx, "doc.md", "src", fp, printConfig()))

	changed := printConfig()
	changed.PageNumbers = false
	got, err := store.Check(ctx, "doc.md", "other", out, changed)
	require.NoError(t, err)
	assert.Equal(t, ReasonSourceChanged, got)
}

func TestReasonsFreshFirst(t *testing.T) {
	reasons := Reasons()
	require.NotEmpty(t, reasons)
	assert.Equal(t, ReasonFresh, reasons[0])
	for _, r := range reasons[1:] {
		assert.True(t, r.Stale(), r)
	}
}
