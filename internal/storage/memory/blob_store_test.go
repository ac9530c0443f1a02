package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("<html>snap</html>")
	uri, err := store.PutObject(context.Background(), "saramin/2026-03-02/ab/ab12.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://saramin/2026-03-02/ab/ab12.html", uri)

	payload[0] = 'X'
	blob, ok := store.Get("saramin/2026-03-02/ab/ab12.html")
	require.True(t, ok)
	assert.Equal(t, "<html>snap</html>", string(blob.Data))
	assert.Equal(t, "text/html", blob.ContentType)
	assert.Equal(t, []string{"saramin/2026-03-02/ab/ab12.html"}, store.Paths())
}

func TestBlobStorePutObjectErrors(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "", "", bytes.NewReader(nil))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), "x", "", failingReader{})
	assert.Error(t, err)
	assert.Empty(t, store.Paths())
}
