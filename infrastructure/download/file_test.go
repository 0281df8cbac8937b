package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile_RequiresPath(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}

func TestFile_Retrieve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,value\n1,a\n"), 0o600))

	dl, err := NewFile(path)
	require.NoError(t, err)

	data, err := dl.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id,value\n1,a\n", string(data))
}

func TestFile_RetrieveMissing(t *testing.T) {
	dl, err := NewFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)

	_, err = dl.Retrieve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_RetrieveCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	dl, err := NewFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dl.Retrieve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
