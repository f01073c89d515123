package fingerprint

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestBytesKnownVectors(t *testing.T) {
	assert.Equal(t, emptySHA256, Bytes(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Bytes([]byte("abc")))
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	content := []byte("# Title\n\nSome body text.\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(content), sum)
	assert.Len(t, sum, Length)
	assert.Equal(t, strings.ToLower(sum), sum)
}

func TestFileLargerThanChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	content := bytes.Repeat([]byte("0123456789abcdef"), ChunkSize) // 16 chunks
	content = append(content, 'x')
	require.NoError(t, os.WriteFile(path, content, 0o600))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(content), sum)
}

func TestFileDetectsSingleByteChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 payload"), 0o600))
	before, err := File(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 paYload"), 0o600))
	after, err := File(path)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFileMissingIsIOError(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	path, _ := classified.Context().GetString("path")
	assert.Contains(t, path, "missing.md")
}

func TestReaderReadsInChunks(t *testing.T) {
	r := &countingReader{r: bytes.NewReader(bytes.Repeat([]byte{'a'}, 3*ChunkSize))}
	sum, err := Reader(r)
	require.NoError(t, err)
	assert.Equal(t, Bytes(bytes.Repeat([]byte{'a'}, 3*ChunkSize)), sum)
	assert.LessOrEqual(t, r.maxRead, ChunkSize)
}

func TestReaderPropagatesReadError(t *testing.T) {
	_, err := Reader(io.MultiReader(strings.NewReader("abc"), failingReader{}))
	require.Error(t, err)
}

type countingReader struct {
	r       io.Reader
	maxRead int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if len(p) > c.maxRead {
		c.maxRead = len(p)
	}
	return c.r.Read(p)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device error") }
