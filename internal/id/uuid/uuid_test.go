package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, goUUID.Version(7), parsed.Version())
	assert.True(t, id1 < id2 || id1[:8] == id2[:8], "v7 ids sort by time")
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Valid("0190a4f8-3c1e-7d2a-8f00-123456789abc"))
	assert.False(t, Valid("run-1"))
	assert.False(t, Valid(""))
}
