package render

import (
	"context"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
)

// Job is one document render.
type Job struct {
	// ID is the document state identifier; used for logs and temp names.
	ID               string
	SourcePath       string
	OutputPath       string
	TempDir          string
	Format           config.Format
	Profile          config.Profile
	Margins          config.Margins
	PageNumbers      bool
	MaxDiagramWidth  docstate.Dimension
	MaxDiagramHeight docstate.Dimension
	Author           string
	Language         string
}

// Renderer produces the artifact at job.OutputPath or fails. Implementations
// must honor ctx cancellation.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, job Job) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, job Job) error {
	return f(ctx, job)
}
