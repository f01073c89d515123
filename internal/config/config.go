package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/retry"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "mdconvert.yaml"

// Config represents the application configuration.
type Config struct {
	SourceDir        string             `yaml:"source_dir"`
	OutputDir        string             `yaml:"output_dir"`
	TempDir          string             `yaml:"temp_dir"`
	DBPath           string             `yaml:"db_path"`
	Format           Format             `yaml:"format"`
	Profile          string             `yaml:"profile,omitempty"`
	Margins          string             `yaml:"margins"`
	PageNumbers      bool               `yaml:"page_numbers"`
	MaxDiagramWidth  docstate.Dimension `yaml:"max_diagram_width"`
	MaxDiagramHeight docstate.Dimension `yaml:"max_diagram_height"`
	MaxWorkers       int                `yaml:"max_workers"`
	Parallel         bool               `yaml:"parallel"`
	Cleanup          bool               `yaml:"cleanup"`
	Author           string             `yaml:"author"`
	Language         string             `yaml:"language"`
	Render           RenderSettings     `yaml:"render"`
	Tools            ToolsConfig        `yaml:"tools"`
	Watch            WatchConfig        `yaml:"watch"`
	Logging          LoggingConfig      `yaml:"logging"`
	Metrics          MetricsConfig      `yaml:"metrics"`
}

// RenderSettings bounds a single document render.
type RenderSettings struct {
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig configures retries of transient render failures.
type RetryConfig struct {
	Mode       retry.Mode    `yaml:"mode"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries int           `yaml:"max_retries"`
}

// ToolsConfig holds the argv templates of the external converters. Elements may
// contain {input}, {output}, {title}, {author}, {language} and {css}. Diagram
// commands get {input}, {output} and {outdir} and must write a PNG to
// {output}. An empty diagram command leaves those blocks as code.
type ToolsConfig struct {
	PDFCommand      []string `yaml:"pdf_command"`
	EPUBCommand     []string `yaml:"epub_command"`
	MOBICommand     []string `yaml:"mobi_command"`
	MermaidCommand  []string `yaml:"mermaid_command"`
	PlantUMLCommand []string `yaml:"plantuml_command"`
}

// Diagram languages rendered to images when a command is configured.
const (
	DiagramMermaid  = "mermaid"
	DiagramPlantUML = "plantuml"
)

// DiagramLanguages lists the fenced code languages treated as diagrams.
func DiagramLanguages() []string {
	return []string{DiagramMermaid, DiagramPlantUML}
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MetricsAddr   string        `yaml:"metrics_addr,omitempty"`
}

// MetricsConfig configures metrics export of one-shot runs.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Overrides carries CLI flag values. Empty strings and nil pointers leave the
// lower layers untouched.
type Overrides struct {
	SourceDir        string
	OutputDir        string
	TempDir          string
	DBPath           string
	Format           string
	Profile          string
	Margins          string
	PageNumbers      *bool
	MaxDiagramWidth  string
	MaxDiagramHeight string
	MaxWorkers       int
	Parallel         *bool
	Cleanup          *bool
	Author           string
	Language         string
	MetricsTextfile  string
	LogLevel         string
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		SourceDir:        "docs",
		OutputDir:        "output",
		TempDir:          "temp",
		DBPath:           DefaultDBPath(),
		Format:           FormatPDF,
		Margins:          DefaultMargins,
		PageNumbers:      true,
		MaxDiagramWidth:  docstate.Pixels(1680),
		MaxDiagramHeight: docstate.Pixels(2240),
		MaxWorkers:       4,
		Parallel:         true,
		Cleanup:          true,
		Author:           "Unknown Author",
		Language:         "en",
		Render: RenderSettings{
			Timeout: 5 * time.Minute,
			Retry: RetryConfig{
				Mode:       retry.ModeLinear,
				Initial:    time.Second,
				Max:        10 * time.Second,
				MaxRetries: 2,
			},
		},
		Tools: DefaultTools(),
		Watch: WatchConfig{
			Debounce:      300 * time.Millisecond,
			SweepInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// DefaultTools returns the argv templates for chromium, pandoc, calibre,
// mermaid-cli and plantuml.
func DefaultTools() ToolsConfig {
	return ToolsConfig{
		PDFCommand: []string{
			"chromium", "--headless", "--disable-gpu", "--no-pdf-header-footer",
			"--print-to-pdf={output}", "{input}",
		},
		EPUBCommand: []string{
			"pandoc", "{input}", "-o", "{output}", "--standalone",
			"--metadata=title:{title}", "--metadata=author:{author}", "--metadata=language:{language}",
			"--toc", "--toc-depth=3", "--css={css}",
		},
		MOBICommand: []string{
			"ebook-convert", "{input}", "{output}",
			"--mobi-file-type", "both", "--personal-doc", "--no-inline-toc",
		},
		MermaidCommand:  []string{"mmdc", "-i", "{input}", "-o", "{output}", "-b", "white", "-s", "2"},
		PlantUMLCommand: []string{"plantuml", "-tpng", "-o", "{outdir}", "{input}"},
	}
}

// DefaultDBPath returns <user config dir>/mdconvert/state.db, or a path
// relative to the working directory when no config dir is known.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".mdconvert", "state.db")
	}
	return filepath.Join(dir, "mdconvert", "state.db")
}

// Load builds the configuration from defaults, the YAML file at path, the
// environment (including .env files) and overrides, in increasing precedence.
// A missing file at path is not an error.
func Load(path string, overrides Overrides) (*Config, error) {
	loadEnvFiles()

	cfg := Defaults()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.applyOverrides(overrides); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env and .env.local when present. Existing process
// environment variables are never overwritten.
func loadEnvFiles() {
	var found []string
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) > 0 {
		_ = godotenv.Load(found...)
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.ConfigError("failed to read config file").
			WithContext("path", path).
			WithCause(err).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return errors.ConfigError("failed to parse config file").
			WithContext("path", path).
			WithCause(err).
			Build()
	}
	return nil
}

// Environment variable names read by Load.
const (
	EnvSourceDir        = "MDCONVERT_SOURCE_DIR"
	EnvOutputDir        = "MDCONVERT_OUTPUT_DIR"
	EnvTempDir          = "MDCONVERT_TEMP_DIR"
	EnvDBPath           = "MDCONVERT_DB_PATH"
	EnvMaxDiagramWidth  = "MDCONVERT_MAX_DIAGRAM_WIDTH"
	EnvMaxDiagramHeight = "MDCONVERT_MAX_DIAGRAM_HEIGHT"
	EnvProfile          = "MDCONVERT_PROFILE"
	EnvFormat           = "MDCONVERT_FORMAT"
	EnvLogLevel         = "MDCONVERT_LOG_LEVEL"
)

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}
	if v, ok := get(EnvSourceDir); ok {
		c.SourceDir = v
	}
	if v, ok := get(EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := get(EnvTempDir); ok {
		c.TempDir = v
	}
	if v, ok := get(EnvDBPath); ok {
		c.DBPath = v
	}
	if v, ok := get(EnvProfile); ok {
		c.Profile = v
	}
	if v, ok := get(EnvFormat); ok {
		c.Format = Format(v)
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Logging.Level = LogLevel(v)
	}
	if v, ok := get(EnvMaxDiagramWidth); ok {
		d, err := parseDimensionSetting(EnvMaxDiagramWidth, v)
		if err != nil {
			return err
		}
		c.MaxDiagramWidth = d
	}
	if v, ok := get(EnvMaxDiagramHeight); ok {
		d, err := parseDimensionSetting(EnvMaxDiagramHeight, v)
		if err != nil {
			return err
		}
		c.MaxDiagramHeight = d
	}
	return nil
}

func (c *Config) applyOverrides(o Overrides) error {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&c.SourceDir, o.SourceDir)
	setString(&c.OutputDir, o.OutputDir)
	setString(&c.TempDir, o.TempDir)
	setString(&c.DBPath, o.DBPath)
	setString(&c.Profile, o.Profile)
	setString(&c.Margins, o.Margins)
	setString(&c.Author, o.Author)
	setString(&c.Language, o.Language)
	setString(&c.Metrics.Textfile, o.MetricsTextfile)
	if o.Format != "" {
		c.Format = Format(o.Format)
	}
	if o.LogLevel != "" {
		c.Logging.Level = LogLevel(o.LogLevel)
	}
	if o.PageNumbers != nil {
		c.PageNumbers = *o.PageNumbers
	}
	if o.Parallel != nil {
		c.Parallel = *o.Parallel
	}
	if o.Cleanup != nil {
		c.Cleanup = *o.Cleanup
	}
	if o.MaxWorkers != 0 {
		c.MaxWorkers = o.MaxWorkers
	}
	if o.MaxDiagramWidth != "" {
		d, err := parseDimensionSetting("--max-diagram-width", o.MaxDiagramWidth)
		if err != nil {
			return err
		}
		c.MaxDiagramWidth = d
	}
	if o.MaxDiagramHeight != "" {
		d, err := parseDimensionSetting("--max-diagram-height", o.MaxDiagramHeight)
		if err != nil {
			return err
		}
		c.MaxDiagramHeight = d
	}
	return nil
}

func parseDimensionSetting(source, raw string) (docstate.Dimension, error) {
	d, err := docstate.ParseDimension(raw)
	if err != nil {
		return docstate.Dimension{}, errors.ValidationError("invalid diagram dimension").
			WithContext("source", source).
			WithContext("value", raw).
			WithCause(err).
			Build()
	}
	return d, nil
}

// Validate normalizes enumerations and margins in place and checks that the
// configuration can drive a conversion.
func (c *Config) Validate() error {
	format, err := ParseFormat(string(c.Format))
	if err != nil {
		return err
	}
	c.Format = format

	if c.Profile == "" {
		c.Profile = DefaultProfileFor(c.Format)
	}
	profile, err := LookupProfile(c.Profile)
	if err != nil {
		return err
	}
	c.Profile = profile.Name
	if !profile.Supports(c.Format) {
		return errors.ValidationError("style profile does not support output format").
			WithContext("profile", profile.Name).
			WithContext("format", string(c.Format)).
			Build()
	}

	if c.Margins == "" {
		c.Margins = DefaultMargins
	}
	margins, err := NormalizeMargins(c.Margins)
	if err != nil {
		return err
	}
	c.Margins = margins

	if c.MaxWorkers < 1 {
		return errors.ValidationError("max_workers must be at least 1").
			WithContext("max_workers", strconv.Itoa(c.MaxWorkers)).
			Build()
	}
	if c.SourceDir == "" || c.OutputDir == "" || c.TempDir == "" || c.DBPath == "" {
		return errors.ConfigError("source_dir, output_dir, temp_dir and db_path must not be empty").Build()
	}
	if c.Render.Timeout < 0 {
		return errors.ValidationError("render.timeout cannot be negative").Build()
	}
	if c.Render.Retry.Mode != "" && retry.ParseMode(string(c.Render.Retry.Mode)) == "" {
		return errors.ValidationError("invalid retry mode").
			WithContext("mode", string(c.Render.Retry.Mode)).
			WithContext("valid", "fixed, linear, exponential").
			Build()
	}
	if c.Watch.SweepInterval < 0 || c.Watch.Debounce < 0 {
		return errors.ValidationError("watch intervals cannot be negative").Build()
	}

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	return nil
}

// RenderConfig returns the cache key tuple for the configured output. Ebook
// formats are reflowable, so margins are stored unset and page numbers false;
// changing them does not invalidate ebooks.
func (c *Config) RenderConfig() docstate.RenderConfig {
	rc := docstate.RenderConfig{
		StyleProfile:     c.Profile,
		MaxDiagramWidth:  c.MaxDiagramWidth,
		MaxDiagramHeight: c.MaxDiagramHeight,
	}
	if !c.Format.IsEbook() {
		rc.PageMargins = c.Margins
		rc.PageNumbers = c.PageNumbers
	}
	return rc
}

// RetryPolicy builds the render retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	r := c.Render.Retry
	return retry.NewPolicy(r.Mode, r.Initial, r.Max, r.MaxRetries)
}

// FormatOutputDir returns <output_dir>/<format>.
func (c *Config) FormatOutputDir() string {
	return filepath.Join(c.OutputDir, string(c.Format))
}

// ArtifactPath returns <output_dir>/<f>/<stem>.<f> for the source file name.
func (c *Config) ArtifactPath(f Format, sourceName string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.OutputDir, string(f), stem+f.Extension())
}

// DiagramCommand returns the argv template for a diagram language, or nil.
func (t ToolsConfig) DiagramCommand(lang string) []string {
	switch lang {
	case DiagramMermaid:
		return t.MermaidCommand
	case DiagramPlantUML:
		return t.PlantUMLCommand
	default:
		return nil
	}
}

// Command returns the argv template for format f.
func (t ToolsConfig) Command(f Format) []string {
	switch f {
	case FormatEPUB:
		return t.EPUBCommand
	case FormatMOBI:
		return t.MOBICommand
	default:
		return t.PDFCommand
	}
}
