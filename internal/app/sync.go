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

// Synchronize fetches every selected source into the mirror store and
// then runs the conservative post-sync cleanup: only pool files
// unreferenced by the fresh mirror indices and by every retained
// snapshot are removed. A failing source is isolated; the remaining
// sources still synchronize and the failure is carried in the summary.
func (s Service) Synchronize(ctx context.Context, req SyncRequest) (SyncResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return SyncResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	sources, err := core.ParseMirrorList(ctx, req.MirrorList)
	if err != nil {
		return SyncResult{}, err
	}
	if len(sources) == 0 {
		return SyncResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("mirror list is empty")
	}
	selected, err := core.FilterSources(sources, req.SourceFilter)
	if err != nil {
		return SyncResult{}, err
	}
	if len(selected) == 0 {
		return SyncResult{
			NoOp:    true,
			Message: fmt.Sprintf("no mirror matches the filter %q", req.SourceFilter),
		}, nil
	}

	release, err := s.lock(basePath).Acquire("synchronize")
	if err != nil {
		return SyncResult{}, err
	}
	defer release()

	start := s.now()
	mirrorDir := filepath.Join(basePath, "mirror")
	if err := os.MkdirAll(mirrorDir, 0755); err != nil {
		return SyncResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create mirror directory").
			WithCause(err)
	}

	fetcher := s.fetcher(req)
	result := SyncResult{}
	for _, source := range selected {
		outcome := types.SourceOutcome{Source: source.Line}
		destRoot, err := core.SourceRoot(source)
		if err == nil {
			log.Info().Str("source", source.Line).Msg("synchronizing source")
			var report types.FetchReport
			report, err = fetcher.FetchTree(ctx, source, filepath.Join(mirrorDir, destRoot), req.Architectures)
			outcome.FilesChanged = len(report.Changed)
			outcome.FilesKept = len(report.Unchanged)
			outcome.BytesFetched = report.BytesFetched
			outcome.Failures = report.Failures
		}
		if err != nil {
			outcome.Err = err.Error()
			result.FailedSources++
			log.Error().Str("source", source.Line).Err(err).Msg("source synchronization failed")
		}
		result.FilesChanged += outcome.FilesChanged
		result.FilesKept += outcome.FilesKept
		result.BytesFetched += outcome.BytesFetched
		result.Sources = append(result.Sources, outcome)
	}

	if !req.SkipCleanup {
		candidates, _, err := s.computeUnreferenced(ctx, basePath)
		if err != nil {
			log.Warn().Err(err).Msg("post-sync cleanup skipped")
		} else {
			removed, freed, failures := removeCandidates(candidates)
			result.CleanedPackages = removed
			result.BytesFreed = freed
			for _, failure := range failures {
				log.Warn().Str("file", failure).Msg("post-sync cleanup could not remove file")
			}
		}
	}

	result.Elapsed = s.now().Sub(start)
	result.Message = fmt.Sprintf(
		"Transferred %s across %d files. Freed up %s by cleaning %d packages.",
		humanize.Bytes(uint64(result.BytesFetched)),
		result.FilesChanged,
		humanize.Bytes(uint64(result.BytesFreed)),
		result.CleanedPackages,
	)
	log.Info().
		Dur("elapsed", result.Elapsed).
		Int("changed", result.FilesChanged).
		Int("failed_sources", result.FailedSources).
		Msg("synchronization complete")
	return result, nil
}
