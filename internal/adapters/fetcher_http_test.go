package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apt-mirror/internal/types"
	"apt-mirror/tests/testutil"
)

func testSource(url string) types.MirrorSource {
	return types.MirrorSource{
		Line:       "deb " + url + " noble main",
		URL:        url,
		Suite:      "noble",
		Components: []string{"main"},
	}
}

func newTestFetcher() HTTPFetcherAdapter {
	// Short timeout and retry delay keep failure cases fast.
	return NewHTTPFetcherAdapter(5, 2, 10, 2)
}

func TestHTTPFetcherFetchTree(t *testing.T) {
	upstream := t.TempDir()
	debs := []testutil.TestDeb{
		{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")},
		{Name: "bash", Version: "5.2-1", Arch: "amd64", Data: []byte("bash-payload")},
	}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, debs)
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	report, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	assert.Len(t, report.Changed, 2)
	assert.Empty(t, report.Unchanged)
	assert.Empty(t, report.Failures)
	assert.Equal(t, int64(len("curl-payload")+len("bash-payload")), report.BytesFetched)

	for _, deb := range debs {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(deb.PoolPath())))
		require.NoError(t, err)
		assert.Equal(t, deb.Data, data)
	}
	assert.FileExists(t, filepath.Join(dest, "dists", "noble", "main", "binary-amd64", "Packages.gz"))
	assert.FileExists(t, filepath.Join(dest, "dists", "noble", "Release"))
}

func TestHTTPFetcherSecondFetchIsUnchanged(t *testing.T) {
	upstream := t.TempDir()
	debs := []testutil.TestDeb{
		{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")},
	}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, debs)
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	fetcher := newTestFetcher()
	_, err := fetcher.FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)

	report, err := fetcher.FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	assert.Empty(t, report.Changed)
	assert.Len(t, report.Unchanged, 1)
	assert.Zero(t, report.BytesFetched)
}

func TestHTTPFetcherRefetchesCorruptedLocalFile(t *testing.T) {
	upstream := t.TempDir()
	deb := testutil.TestDeb{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, []testutil.TestDeb{deb})
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	fetcher := newTestFetcher()
	_, err := fetcher.FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)

	local := filepath.Join(dest, filepath.FromSlash(deb.PoolPath()))
	require.NoError(t, os.WriteFile(local, []byte("same-length!"), 0644))

	report, err := fetcher.FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	assert.Len(t, report.Changed, 1)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, deb.Data, data)
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	upstream := t.TempDir()
	debs := []testutil.TestDeb{
		{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")},
	}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, debs)
	fileServer := http.FileServer(http.Dir(upstream))

	var failures int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".deb") && atomic.AddInt32(&failures, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fileServer.ServeHTTP(w, r)
	}))
	defer server.Close()

	dest := t.TempDir()
	report, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	assert.Len(t, report.Changed, 1)
	assert.Empty(t, report.Failures)
}

func TestHTTPFetcherRecordsPoolFailures(t *testing.T) {
	upstream := t.TempDir()
	present := testutil.TestDeb{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")}
	missing := testutil.TestDeb{Name: "ghost", Version: "1.0", Arch: "amd64", Data: []byte("never-served")}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, []testutil.TestDeb{present, missing})
	require.NoError(t, os.Remove(filepath.Join(upstream, filepath.FromSlash(missing.PoolPath()))))
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	report, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	assert.Len(t, report.Changed, 1)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, missing.PoolPath(), report.Failures[0].Path)

	// No partial download residue for the failed file.
	assertNoPartialFiles(t, dest)
}

func TestHTTPFetcherChecksumMismatch(t *testing.T) {
	upstream := t.TempDir()
	deb := testutil.TestDeb{Name: "curl", Version: "8.5.0-2", Arch: "amd64", Data: []byte("curl-payload")}
	testutil.WriteUpstreamArchive(t, upstream, "noble", "main", []string{"amd64"}, []testutil.TestDeb{deb})
	// Corrupt the served pool file after the index was written.
	served := filepath.Join(upstream, filepath.FromSlash(deb.PoolPath()))
	require.NoError(t, os.WriteFile(served, []byte("tampered!!!!"), 0644))
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	report, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.NoFileExists(t, filepath.Join(dest, filepath.FromSlash(deb.PoolPath())))
	assertNoPartialFiles(t, dest)
}

func TestHTTPFetcherRejectsUnsafePoolPath(t *testing.T) {
	upstream := t.TempDir()
	index := []byte("Package: evil\nVersion: 1.0\nFilename: ../../escape.deb\nSize: 4\n\n")
	indexDir := filepath.Join(upstream, "dists", "noble", "main", "binary-amd64")
	require.NoError(t, os.MkdirAll(indexDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(indexDir, "Packages"), index, 0644))
	server := testutil.ServeArchive(t, upstream)

	dest := t.TempDir()
	report, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), dest, []string{"amd64"})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Err, "unsafe pool path")
}

func TestHTTPFetcherMissingIndex(t *testing.T) {
	server := testutil.ServeArchive(t, t.TempDir())
	_, err := newTestFetcher().FetchTree(context.Background(), testSource(server.URL), t.TempDir(), []string{"amd64"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestHTTPFetcherNoComponents(t *testing.T) {
	source := types.MirrorSource{URL: "http://example.com", Suite: "noble"}
	_, err := newTestFetcher().FetchTree(context.Background(), source, t.TempDir(), []string{"amd64"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func assertNoPartialFiles(t *testing.T, root string) {
	t.Helper()
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			assert.False(t, strings.HasSuffix(entry.Name(), ".partial"), "partial file left behind: %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}
