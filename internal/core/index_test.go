package core

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apt-mirror/internal/types"
)

const sampleIndex = `Package: ros-jazzy-rclcpp
Version: 28.1.5-1noble
Architecture: amd64
Filename: pool/main/r/ros-jazzy-rclcpp/ros-jazzy-rclcpp_28.1.5-1noble_amd64.deb
Size: 1234
SHA256: 0f343b0931126a20f133d67c2b018a3b5650f9a0d0b3e1e8e9a2b39b63e2a6f1

Package: curl
Version: 8.5.0-2
Filename: pool/main/c/curl/curl_8.5.0-2_amd64.deb
Size: 56789
SHA256: aa11bb22

Package: no-filename-stanza
Version: 1.0
`

func TestParsePackagesIndex(t *testing.T) {
	entries, err := ParsePackagesIndex(strings.NewReader(sampleIndex))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "ros-jazzy-rclcpp", entries[0].Name)
	assert.Equal(t, "28.1.5-1noble", entries[0].Version)
	assert.Equal(t, "pool/main/r/ros-jazzy-rclcpp/ros-jazzy-rclcpp_28.1.5-1noble_amd64.deb", entries[0].Filename)
	assert.Equal(t, int64(1234), entries[0].Size)

	assert.Equal(t, "curl", entries[1].Name)
	assert.Equal(t, int64(56789), entries[1].Size)
	assert.Equal(t, "aa11bb22", entries[1].SHA256)
}

func TestParsePackagesIndexEmpty(t *testing.T) {
	entries, err := ParsePackagesIndex(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenIndexGzip(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte(sampleIndex))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := filepath.Join(dir, "Packages.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	reader, err := OpenIndex(path)
	require.NoError(t, err)
	defer reader.Close()

	entries, err := ParsePackagesIndex(reader)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenIndexPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Packages")
	require.NoError(t, os.WriteFile(path, []byte(sampleIndex), 0644))

	reader, err := OpenIndex(path)
	require.NoError(t, err)
	defer reader.Close()

	entries, err := ParsePackagesIndex(reader)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenIndexMissingFile(t *testing.T) {
	_, err := OpenIndex(filepath.Join(t.TempDir(), "Packages.gz"))
	require.Error(t, err)
}

func TestSortEntries(t *testing.T) {
	entries := []types.PackageEntry{
		{Name: "curl", Version: "8.10.0-1"},
		{Name: "curl", Version: "8.5.0-2"},
		{Name: "bash", Version: "5.2-1"},
	}
	SortEntries(entries)
	assert.Equal(t, "bash", entries[0].Name)
	// 8.5.0 sorts before 8.10.0 under Debian version rules, not
	// lexically.
	assert.Equal(t, "8.5.0-2", entries[1].Version)
	assert.Equal(t, "8.10.0-1", entries[2].Version)
}

func TestIsIndexFile(t *testing.T) {
	assert.True(t, IsIndexFile("Packages"))
	assert.True(t, IsIndexFile("Packages.gz"))
	assert.True(t, IsIndexFile("Packages.bz2"))
	assert.True(t, IsIndexFile("Packages.xz"))
	assert.False(t, IsIndexFile("Release"))
	assert.False(t, IsIndexFile("Packages.diff"))
	assert.False(t, IsIndexFile("Sources.gz"))
}
