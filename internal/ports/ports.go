package ports

import (
	"context"
	"time"

	"apt-mirror/internal/types"
)

// UpstreamFetcher is the external transfer collaborator: it mirrors one
// source's index tree and pool files into destRoot, diffing against
// whatever is already present. Per-file failures are reported inside
// the FetchReport; an error return means the source as a whole failed.
type UpstreamFetcher interface {
	FetchTree(ctx context.Context, source types.MirrorSource, destRoot string, arches []string) (types.FetchReport, error)
}

type SnapshotCreateRequest struct {
	Name      string
	CreatedAt time.Time
	Sources   []string
	Subtree   types.SubtreeOptions
}

// SnapshotStore materializes and manages immutable snapshot trees.
// Create must never leave a partially built snapshot visible to List.
type SnapshotStore interface {
	Create(ctx context.Context, req SnapshotCreateRequest) (types.SnapshotInfo, error)
	List(ctx context.Context) ([]types.SnapshotInfo, error)
	Delete(ctx context.Context, name string) error
}

// Publication is the single mutable pointer naming the snapshot served
// to clients. SetPublished swaps atomically; readers observe either the
// old or the new target.
type Publication interface {
	Published() (string, error)
	SetPublished(name string) error
}

// MirrorLock serializes mutating operations over one mirror base path.
// Acquire fails fast when another operation holds the lock.
type MirrorLock interface {
	Acquire(operation string) (release func(), err error)
}

type IndexLocation struct {
	ArchiveRoot string
	Indices     []string
}

// PoolScanner inspects committed on-disk state for the retention
// engine.
type PoolScanner interface {
	PackageIndices(root string) ([]IndexLocation, error)
	PoolFiles(root string) (map[string]int64, error)
}
