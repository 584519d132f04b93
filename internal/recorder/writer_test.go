package recorder

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitragefx/internal/schema"
)

func TestWriterAppendThenReadBack(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	payload := []byte("hello")
	require.NoError(t, w.TryAppend(schema.NewHeader(schema.EventFill, 0, 1, 10, 10), payload))
	require.NoError(t, w.Close())

	files, err := ListSegments(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestWriterRejectsAppendBeforeStart(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	err = w.TryAppend(schema.NewHeader(schema.EventFill, 0, 1, 10, 10), nil)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestWriterRejectsAppendAfterClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())

	err = w.TryAppend(schema.NewHeader(schema.EventFill, 0, 1, 10, 10), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriterDoubleStartErrors(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
}

func TestNewWriterRejectsInvalidConfig(t *testing.T) {
	_, err := NewWriter(Config{Dir: ""})
	assert.Error(t, err)
}

func TestWriterStampsLeadingWalHeaderRecordPerSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.TryAppend(schema.NewHeader(schema.EventFill, 0, 1, 10, 10), []byte("hello")))
	require.NoError(t, w.Close())

	files, err := ListSegments(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	r := NewReader(f, ReaderOptions{})
	header, payload, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, schema.EventWalHeader, header.Type)
	ver, err := DecodeWalHeaderVersion(payload)
	require.NoError(t, err)
	assert.Equal(t, SupportedWalFormatVersion(), ver)

	header, _, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, schema.EventFill, header.Type)
}

func TestListSegmentsOnlyMatchesPrefixAndSuffix(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.TryAppend(schema.NewHeader(schema.EventFill, 0, 1, 10, 10), nil))
	require.NoError(t, w.Close())

	files, err := ListSegments(dir, "wal")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	files, err = ListSegments(dir, "other")
	require.NoError(t, err)
	assert.Empty(t, files)
}
