package errors

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "io error", err: IOError("read failed").Build(), expected: 4},
		{name: "storage error", err: StorageError("db locked").Build(), expected: 6},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "dependency error", err: DependencyError("pandoc missing").Build(), expected: 9},
		{name: "render error", err: RenderError("tool failed").Build(), expected: 11},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: ""},
		{
			name: "internal error hidden in non-verbose mode",
			err:  InternalError("internal issue").Build(),
			want: "Internal error occurred (use -v for details)",
		},
		{
			name: "config error shows message",
			err:  ConfigError("unknown profile").Build(),
			want: "Error: unknown profile",
		},
		{
			name: "cause is appended",
			err:  IOError("read source").WithCause(&customError{msg: "permission denied"}).Build(),
			want: "Error: read source: permission denied",
		},
		{
			name: "unclassified error",
			err:  &customError{msg: "unknown error"},
			want: "Error: unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.FormatError(tt.err); got != tt.want {
				t.Errorf("FormatError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := NewCLIErrorAdapter(false, logger).WithOutput(&out)

	code := adapter.Report(StorageError("save failed").Build())
	if code != 6 {
		t.Errorf("Report() = %d, want 6", code)
	}
	if out.String() != "Error: save failed\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
