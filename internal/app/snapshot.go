package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apt-mirror/internal/core"
	"apt-mirror/internal/ports"
	"apt-mirror/internal/types"
)

// CreateSnapshot freezes the mirror store's committed state under a new
// timestamp-derived name. Creation within the same second falls back to
// a nanosecond-disambiguated name rather than failing.
func (s Service) CreateSnapshot(ctx context.Context, req CreateSnapshotRequest) (CreateSnapshotResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return CreateSnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	sources, err := core.ParseMirrorList(ctx, req.MirrorList)
	if err != nil {
		return CreateSnapshotResult{}, err
	}

	release, err := s.lock(basePath).Acquire("create-snapshot")
	if err != nil {
		return CreateSnapshotResult{}, err
	}
	defer release()

	now := s.now()
	createReq := ports.SnapshotCreateRequest{
		Name:      core.SnapshotName(now),
		CreatedAt: now,
		Sources:   sourceLines(req.MirrorList),
		Subtree: types.SubtreeOptions{
			StripMirrorName: req.StripMirrorName,
			StripMirrorPath: req.StripMirrorPath,
			MirrorNames:     core.SourceHosts(sources),
		},
	}
	store := s.snapshotStore(basePath)
	info, err := store.Create(ctx, createReq)
	if errbuilder.CodeOf(err) == errbuilder.CodeAlreadyExists {
		createReq.Name = core.SnapshotNameDisambiguated(now)
		info, err = store.Create(ctx, createReq)
	}
	if err != nil {
		return CreateSnapshotResult{}, err
	}
	return CreateSnapshotResult{Snapshot: info}, nil
}

// ListSnapshots returns all committed snapshots ordered by creation
// time, with the published one marked. Lock-free.
func (s Service) ListSnapshots(ctx context.Context, req ListSnapshotsRequest) (ListSnapshotsResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return ListSnapshotsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	snapshots, err := s.snapshotStore(basePath).List(ctx)
	if err != nil {
		return ListSnapshotsResult{}, err
	}
	published, err := s.publication(basePath).Published()
	if err != nil {
		return ListSnapshotsResult{}, err
	}
	for i := range snapshots {
		snapshots[i].Published = snapshots[i].Name == published
	}
	return ListSnapshotsResult{Snapshots: snapshots}, nil
}

// PublishSnapshot atomically repoints the publication pointer. Safe to
// call while a synchronization or snapshot creation runs: published
// content is immutable once created, so no lock is taken.
func (s Service) PublishSnapshot(ctx context.Context, req PublishSnapshotRequest) (PublishSnapshotResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishSnapshotResult{}, err
	}
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return PublishSnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	name := strings.TrimSpace(req.Name)
	if !core.IsSnapshotName(name) {
		return PublishSnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid snapshot name: " + name)
	}
	if err := s.publication(basePath).SetPublished(name); err != nil {
		return PublishSnapshotResult{}, err
	}
	return PublishSnapshotResult{
		Name:        name,
		PublishPath: filepath.Join(basePath, "publish"),
	}, nil
}

// DeleteSnapshot removes a retained snapshot. The published snapshot is
// protected; deleting it would break the serving tree out from under
// clients.
func (s Service) DeleteSnapshot(ctx context.Context, req DeleteSnapshotRequest) error {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	name := strings.TrimSpace(req.Name)
	if !core.IsSnapshotName(name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid snapshot name: " + name)
	}

	release, err := s.lock(basePath).Acquire("delete-snapshot")
	if err != nil {
		return err
	}
	defer release()

	published, err := s.publication(basePath).Published()
	if err != nil {
		return err
	}
	if published == name {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("snapshot is currently published: " + name)
	}
	if err := s.snapshotStore(basePath).Delete(ctx, name); err != nil {
		return err
	}
	log.Info().Str("snapshot", name).Msg("snapshot retention record removed")
	return nil
}

func sourceLines(lines []string) []string {
	var cleaned []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
