package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"apt-mirror/internal/core"
	"apt-mirror/internal/types"
)

// CheckPackages computes the pool files unreferenced by the mirror
// indices and by every retained snapshot. Read-only; it takes no lock
// because it only inspects committed state.
func (s Service) CheckPackages(ctx context.Context, req CheckPackagesRequest) (CheckPackagesResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return CheckPackagesResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	candidates, totalBytes, err := s.computeUnreferenced(ctx, basePath)
	if err != nil {
		return CheckPackagesResult{}, err
	}
	return CheckPackagesResult{Candidates: candidates, TotalBytes: totalBytes}, nil
}

// CleanupPackages removes the unreferenced pool files. Without Confirm
// it is a dry run: the candidate set is reported and nothing on disk
// changes. With Confirm the set is recomputed under the mirror lock and
// deleted; per-file failures are logged and skipped.
func (s Service) CleanupPackages(ctx context.Context, req CleanupRequest) (CleanupResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return CleanupResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	start := s.now()
	if !req.Confirm {
		candidates, totalBytes, err := s.computeUnreferenced(ctx, basePath)
		if err != nil {
			return CleanupResult{}, err
		}
		return CleanupResult{
			Confirmed:  false,
			Candidates: len(candidates),
			Elapsed:    s.now().Sub(start),
			Message: fmt.Sprintf(
				"Dry run: %d packages (%s) would be removed. Re-run with confirm to delete.",
				len(candidates), humanize.Bytes(uint64(totalBytes)),
			),
		}, nil
	}

	release, err := s.lock(basePath).Acquire("clean-up-packages")
	if err != nil {
		return CleanupResult{}, err
	}
	defer release()

	candidates, _, err := s.computeUnreferenced(ctx, basePath)
	if err != nil {
		return CleanupResult{}, err
	}
	removed, freed, failures := removeCandidates(candidates)
	for _, failure := range failures {
		log.Warn().Str("file", failure).Msg("cleanup could not remove file")
	}
	elapsed := s.now().Sub(start)
	message := fmt.Sprintf("Freed up %s by cleaning %d packages.", humanize.Bytes(uint64(freed)), removed)
	if len(failures) > 0 {
		message = fmt.Sprintf("%s %d files could not be removed, see the log for details.", message, len(failures))
	}
	log.Info().Int("removed", removed).Int64("bytes_freed", freed).Dur("elapsed", elapsed).Msg("cleanup complete")
	return CleanupResult{
		Confirmed:  true,
		Candidates: len(candidates),
		Removed:    removed,
		BytesFreed: freed,
		Failures:   failures,
		Elapsed:    elapsed,
		Message:    message,
	}, nil
}

// computeUnreferenced builds the reference index from the mirror tree
// and every retained snapshot, then subtracts it from the pool files
// present in the mirror store. It is recomputed from authoritative
// state on every call, never cached.
func (s Service) computeUnreferenced(ctx context.Context, basePath string) ([]types.CleanupCandidate, int64, error) {
	scanner := s.scanner()
	mirrorDir := filepath.Join(basePath, "mirror")
	roots := []string{mirrorDir}
	snapshots, err := s.snapshotStore(basePath).List(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, snapshot := range snapshots {
		roots = append(roots, filepath.Join(basePath, snapshot.Name))
	}

	// A snapshot lays its archive out under its own subtree, so its
	// indices carry the same pool-relative Filename values as the mirror
	// indices do. Resolving every index's filenames against each mirror
	// archive root makes a snapshot reference protect the mirror copy of
	// the file, not just the snapshot's own hard link.
	filenames := map[string]struct{}{}
	var referencedEntries []types.PackageEntry
	var mirrorRoots []string
	for _, root := range roots {
		locations, err := scanner.PackageIndices(root)
		if err != nil {
			return nil, 0, err
		}
		for _, location := range locations {
			if root == mirrorDir {
				mirrorRoots = append(mirrorRoots, location.ArchiveRoot)
			}
			for _, index := range location.Indices {
				entries, err := readIndexEntries(index)
				if err != nil {
					return nil, 0, err
				}
				for _, entry := range entries {
					filenames[entry.Filename] = struct{}{}
				}
				referencedEntries = append(referencedEntries, entries...)
			}
		}
	}
	referenced := map[string]struct{}{}
	for _, archiveRoot := range mirrorRoots {
		for filename := range filenames {
			path := filepath.Clean(filepath.Join(archiveRoot, filepath.FromSlash(filename)))
			referenced[path] = struct{}{}
		}
	}

	existing, err := scanner.PoolFiles(mirrorDir)
	if err != nil {
		return nil, 0, err
	}
	candidates := core.Unreferenced(existing, referenced)
	core.MarkSuperseded(candidates, referencedEntries)
	var totalBytes int64
	for _, candidate := range candidates {
		totalBytes += candidate.Size
	}
	return candidates, totalBytes, nil
}

func readIndexEntries(path string) ([]types.PackageEntry, error) {
	reader, err := core.OpenIndex(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return core.ParsePackagesIndex(reader)
}

func removeCandidates(candidates []types.CleanupCandidate) (int, int64, []string) {
	removed := 0
	var freed int64
	var failures []string
	for _, candidate := range candidates {
		if err := os.Remove(candidate.Path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			failures = append(failures, candidate.Path)
			continue
		}
		removed++
		freed += candidate.Size
	}
	return removed, freed, failures
}
