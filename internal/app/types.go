package app

import (
	"time"

	"apt-mirror/internal/types"
)

type SyncRequest struct {
	BasePath         string
	MirrorList       []string
	SourceFilter     string
	Architectures    []string
	Workers          int
	HTTPTimeoutSec   int
	HTTPRetries      int
	HTTPRetryDelayMs int
	SkipCleanup      bool
}

type SyncResult struct {
	NoOp            bool
	Sources         []types.SourceOutcome
	FilesChanged    int
	FilesKept       int
	BytesFetched    int64
	FailedSources   int
	CleanedPackages int
	BytesFreed      int64
	Elapsed         time.Duration
	Message         string
}

type CreateSnapshotRequest struct {
	BasePath        string
	MirrorList      []string
	StripMirrorName bool
	StripMirrorPath string
}

type CreateSnapshotResult struct {
	Snapshot types.SnapshotInfo
}

type ListSnapshotsRequest struct {
	BasePath string
}

type ListSnapshotsResult struct {
	Snapshots []types.SnapshotInfo
}

type PublishSnapshotRequest struct {
	BasePath string
	Name     string
}

type PublishSnapshotResult struct {
	Name        string
	PublishPath string
}

type DeleteSnapshotRequest struct {
	BasePath string
	Name     string
}

type CheckPackagesRequest struct {
	BasePath string
}

type CheckPackagesResult struct {
	Candidates []types.CleanupCandidate
	TotalBytes int64
}

type CleanupRequest struct {
	BasePath string
	Confirm  bool
}

type CleanupResult struct {
	Confirmed  bool
	Candidates int
	Removed    int
	BytesFreed int64
	Failures   []string
	Elapsed    time.Duration
	Message    string
}

type PruneRequest struct {
	BasePath string
	KeepLast int
	KeepDays int
	DryRun   bool
}

type PruneResult struct {
	KeepCount   int
	DeleteCount int
	Deleted     []string
	DryRun      bool
}

type StatusRequest struct {
	BasePath string
}

type StatusResult struct {
	Published    string
	Synchronized bool
	LastSync     time.Time
}
