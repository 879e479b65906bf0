package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSnapshotDir(t *testing.T, basePath string, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, name), 0755))
}

func TestPublicationNothingPublished(t *testing.T) {
	pub := NewPublicationAdapter(t.TempDir())
	published, err := pub.Published()
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestPublicationSetAndRead(t *testing.T) {
	basePath := t.TempDir()
	makeSnapshotDir(t, basePath, "snapshot-20260314092653")
	pub := NewPublicationAdapter(basePath)

	require.NoError(t, pub.SetPublished("snapshot-20260314092653"))
	published, err := pub.Published()
	require.NoError(t, err)
	assert.Equal(t, "snapshot-20260314092653", published)

	// The pointer is a symlink resolving to the snapshot directory.
	target, err := os.Readlink(filepath.Join(basePath, "publish"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(basePath, "snapshot-20260314092653"), target)
}

func TestPublicationSwap(t *testing.T) {
	basePath := t.TempDir()
	makeSnapshotDir(t, basePath, "snapshot-20260314090000")
	makeSnapshotDir(t, basePath, "snapshot-20260314110000")
	pub := NewPublicationAdapter(basePath)

	require.NoError(t, pub.SetPublished("snapshot-20260314090000"))
	require.NoError(t, pub.SetPublished("snapshot-20260314110000"))

	published, err := pub.Published()
	require.NoError(t, err)
	assert.Equal(t, "snapshot-20260314110000", published)

	// The temporary link used for the swap never survives.
	assert.NoFileExists(t, filepath.Join(basePath, ".publish.tmp"))
}

func TestPublicationUnknownSnapshot(t *testing.T) {
	pub := NewPublicationAdapter(t.TempDir())
	err := pub.SetPublished("snapshot-20260314092653")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestPublicationUnknownSnapshotKeepsCurrent(t *testing.T) {
	basePath := t.TempDir()
	makeSnapshotDir(t, basePath, "snapshot-20260314090000")
	pub := NewPublicationAdapter(basePath)
	require.NoError(t, pub.SetPublished("snapshot-20260314090000"))

	err := pub.SetPublished("snapshot-20991231235959")
	require.Error(t, err)

	published, readErr := pub.Published()
	require.NoError(t, readErr)
	assert.Equal(t, "snapshot-20260314090000", published)
}

func TestPublicationRejectsInvalidName(t *testing.T) {
	pub := NewPublicationAdapter(t.TempDir())
	err := pub.SetPublished("mirror")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
