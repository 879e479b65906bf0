// Package testutil provides shared test helpers used across integration
// and unit test packages.
package testutil

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// TestDeb describes one package in a fabricated upstream archive. Data
// stands in for the actual .deb payload; the mirror only ever compares
// size and checksum, never parses the archive format.
type TestDeb struct {
	Name    string
	Version string
	Arch    string
	Data    []byte
}

// PoolPath returns the conventional pool location of the package,
// relative to the archive root.
func (d TestDeb) PoolPath() string {
	return fmt.Sprintf("pool/main/%s/%s/%s_%s_%s.deb", d.Name[:1], d.Name, d.Name, d.Version, d.Arch)
}

// SHA256Hex returns the hex digest of the given data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PackagesIndex renders an uncompressed Packages index covering the
// given packages.
func PackagesIndex(debs []TestDeb) []byte {
	var buf bytes.Buffer
	for _, deb := range debs {
		fmt.Fprintf(&buf, "Package: %s\n", deb.Name)
		fmt.Fprintf(&buf, "Version: %s\n", deb.Version)
		fmt.Fprintf(&buf, "Architecture: %s\n", deb.Arch)
		fmt.Fprintf(&buf, "Filename: %s\n", deb.PoolPath())
		fmt.Fprintf(&buf, "Size: %d\n", len(deb.Data))
		fmt.Fprintf(&buf, "SHA256: %s\n", SHA256Hex(deb.Data))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// GzipData compresses data with gzip, failing the test on error.
func GzipData(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

// WriteUpstreamArchive lays out a minimal Debian archive under dir: a
// gzipped Packages index for each listed architecture plus the pool
// files, ready to serve with ServeArchive.
func WriteUpstreamArchive(t *testing.T, dir string, suite string, component string, arches []string, debs []TestDeb) {
	t.Helper()
	index := GzipData(t, PackagesIndex(debs))
	for _, arch := range arches {
		indexDir := filepath.Join(dir, "dists", suite, component, "binary-"+arch)
		require.NoError(t, os.MkdirAll(indexDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(indexDir, "Packages.gz"), index, 0644))
	}
	release := fmt.Sprintf("Suite: %s\nComponents: %s\n", suite, component)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dists", suite, "Release"), []byte(release), 0644))
	for _, deb := range debs {
		target := filepath.Join(dir, filepath.FromSlash(deb.PoolPath()))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))
		require.NoError(t, os.WriteFile(target, deb.Data, 0644))
	}
}

// ServeArchive serves an archive directory over HTTP for the duration
// of the test.
func ServeArchive(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(server.Close)
	return server
}
