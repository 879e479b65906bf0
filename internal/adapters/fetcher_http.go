package adapters

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apt-mirror/internal/core"
	"apt-mirror/internal/ports"
	"apt-mirror/internal/shared"
	"apt-mirror/internal/types"
)

const defaultPoolWorkers = 4
const defaultHTTPTimeout = 60 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

// partialSuffix marks in-flight downloads. Completed files are renamed
// into place, so a reader never observes a half-written pool file or
// index under its final name.
const partialSuffix = ".partial"

type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeHTTPConfig(timeoutSec int, retries int, delayMs int) httpRetryConfig {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	retryCount := retries
	if retryCount <= 0 {
		retryCount = defaultHTTPRetries
	}
	baseDelay := time.Duration(delayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultHTTPRetryDelay
	}
	return httpRetryConfig{
		timeout:   timeout,
		retries:   retryCount,
		baseDelay: baseDelay,
	}
}

// HTTPFetcherAdapter mirrors one APT source over plain HTTP: it fetches
// each component's Packages index, downloads pool files the index
// references that are missing or changed locally, and commits index
// files last so the committed indices never reference a pool file that
// was not fetched first.
type HTTPFetcherAdapter struct {
	cfg     httpRetryConfig
	workers int
}

func NewHTTPFetcherAdapter(timeoutSec int, retries int, retryDelayMs int, workers int) HTTPFetcherAdapter {
	if workers <= 0 {
		workers = defaultPoolWorkers
	}
	return HTTPFetcherAdapter{
		cfg:     normalizeHTTPConfig(timeoutSec, retries, retryDelayMs),
		workers: workers,
	}
}

func (a HTTPFetcherAdapter) FetchTree(ctx context.Context, source types.MirrorSource, destRoot string, arches []string) (types.FetchReport, error) {
	if strings.TrimSpace(destRoot) == "" {
		return types.FetchReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("fetch destination is empty")
	}
	if len(source.Components) == 0 {
		return types.FetchReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("mirror source has no components: " + source.Line)
	}
	if len(arches) == 0 {
		arches = []string{"amd64"}
	}
	base := strings.TrimRight(strings.TrimSpace(source.URL), "/")

	report := types.FetchReport{}
	type pendingIndex struct {
		relPath string
		data    []byte
	}
	var indices []pendingIndex
	for _, component := range source.Components {
		for _, arch := range arches {
			indexDir := path.Join("dists", source.Suite, component, "binary-"+arch)
			data, indexName, err := a.fetchIndex(ctx, base, indexDir)
			if err != nil {
				return report, err
			}
			reader, err := core.IndexReader(bytes.NewReader(data), indexName)
			if err != nil {
				return report, err
			}
			entries, err := core.ParsePackagesIndex(reader)
			if err != nil {
				return report, err
			}
			a.fetchPool(ctx, base, destRoot, entries, &report)
			indices = append(indices, pendingIndex{
				relPath: path.Join(indexDir, indexName),
				data:    data,
			})
		}
	}

	// Release files are informational for static serving; missing ones
	// are not an error.
	for _, name := range []string{"Release", "InRelease"} {
		relPath := path.Join("dists", source.Suite, name)
		data, err := a.fetchOptional(ctx, base+"/"+relPath)
		if err == nil && data != nil {
			indices = append(indices, pendingIndex{relPath: relPath, data: data})
		}
	}

	for _, index := range indices {
		target := filepath.Join(destRoot, filepath.FromSlash(index.relPath))
		if err := writeFileAtomic(target, index.data); err != nil {
			return report, err
		}
	}
	return report, nil
}

// fetchIndex retrieves a component's Packages index, preferring the
// gzipped form and falling back to the plain one, as the archive layout
// allows either.
func (a HTTPFetcherAdapter) fetchIndex(ctx context.Context, base string, indexDir string) ([]byte, string, error) {
	for _, name := range []string{"Packages.gz", "Packages.xz", "Packages"} {
		url := base + "/" + path.Join(indexDir, name)
		data, notFound, err := a.fetchBytes(ctx, url)
		if err != nil {
			return nil, "", err
		}
		if notFound {
			continue
		}
		return data, name, nil
	}
	return nil, "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("no packages index found under " + indexDir)
}

func (a HTTPFetcherAdapter) fetchOptional(ctx context.Context, url string) ([]byte, error) {
	data, notFound, err := a.fetchBytes(ctx, url)
	if err != nil || notFound {
		return nil, err
	}
	return data, nil
}

func (a HTTPFetcherAdapter) fetchBytes(ctx context.Context, url string) ([]byte, bool, error) {
	resp, err := doRequest(ctx, url, a.cfg)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch index").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read index body").
			WithCause(err)
	}
	return data, false, nil
}

// fetchPool downloads the pool files an index references, skipping
// files whose size and checksum already match. Individual failures are
// collected in the report rather than aborting the source.
func (a HTTPFetcherAdapter) fetchPool(ctx context.Context, base string, destRoot string, entries []types.PackageEntry, report *types.FetchReport) {
	workers := a.workers
	if len(entries) < workers {
		workers = len(entries)
	}
	if workers == 0 {
		return
	}
	var mu sync.Mutex
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, entry := range entries {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			relPath, err := safeRelPath(entry.Filename)
			if err != nil {
				mu.Lock()
				report.Failures = append(report.Failures, types.FetchFailure{Path: entry.Filename, Err: err.Error()})
				mu.Unlock()
				return
			}
			local := filepath.Join(destRoot, relPath)
			if identityMatches(local, types.FileIdentity{Size: entry.Size, SHA256: entry.SHA256}) {
				mu.Lock()
				report.Unchanged = append(report.Unchanged, entry.Filename)
				mu.Unlock()
				return
			}
			written, err := a.downloadPoolFile(ctx, base+"/"+entry.Filename, local, entry)
			mu.Lock()
			if err != nil {
				report.Failures = append(report.Failures, types.FetchFailure{Path: entry.Filename, Err: err.Error()})
			} else {
				report.Changed = append(report.Changed, entry.Filename)
				report.BytesFetched += written
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
}

func (a HTTPFetcherAdapter) downloadPoolFile(ctx context.Context, url string, dest string, entry types.PackageEntry) (int64, error) {
	resp, err := doRequest(ctx, url, a.cfg)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch pool file").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create pool directory").
			WithCause(err)
	}
	tmp := dest + partialSuffix
	file, err := os.Create(tmp)
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create pool file").
			WithCause(err)
	}
	hash := sha256.New()
	written, err := io.Copy(io.MultiWriter(file, hash), resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && entry.Size > 0 && written != entry.Size {
		err = shared.SizeMismatchError(entry.Size, written)
	}
	if err == nil && entry.SHA256 != "" {
		sum := hex.EncodeToString(hash.Sum(nil))
		if !strings.EqualFold(sum, entry.SHA256) {
			err = shared.ChecksumMismatchError(strings.ToLower(entry.SHA256), sum)
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to download pool file").
			WithCause(err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to commit pool file").
			WithCause(err)
	}
	log.Debug().Str("url", url).Int64("bytes", written).Msg("pool file fetched")
	return written, nil
}

func identityMatches(path string, identity types.FileIdentity) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if identity.Size > 0 && info.Size() != identity.Size {
		return false
	}
	if identity.SHA256 != "" {
		sum, err := fileSHA256(path)
		if err != nil {
			return false
		}
		return strings.EqualFold(sum, identity.SHA256)
	}
	return true
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// safeRelPath keeps index-supplied file names inside the destination
// root.
func safeRelPath(name string) (string, error) {
	cleaned := path.Clean(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || path.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("unsafe pool path: %s", name)
	}
	return filepath.FromSlash(cleaned), nil
}

func writeFileAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create index directory").
			WithCause(err)
	}
	tmp := target + partialSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write index file").
			WithCause(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to commit index file").
			WithCause(err)
	}
	return nil
}

func doRequest(ctx context.Context, url string, cfg httpRetryConfig) (*http.Response, error) {
	client := &http.Client{Timeout: cfg.timeout}
	for attempt := 0; attempt < cfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create request").
				WithCause(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("request canceled").
					WithCause(ctx.Err())
			}
			if attempt < cfg.retries-1 {
				time.Sleep(httpRetryDelay(attempt, cfg))
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request failed").
				WithCause(err)
		}
		if (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) && attempt < cfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			time.Sleep(httpRetryDelay(attempt, cfg))
			continue
		}
		return resp, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request retries exhausted")
}

func httpRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay << attempt
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	return delay
}

var _ ports.UpstreamFetcher = HTTPFetcherAdapter{}
