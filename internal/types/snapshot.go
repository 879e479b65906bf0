package types

import "time"

type SnapshotInfo struct {
	Name      string
	CreatedAt time.Time
	Published bool
	FileCount int
	ByteSize  int64
}

// SnapshotManifest is written as manifest.yaml inside every committed
// snapshot directory.
type SnapshotManifest struct {
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
	Sources   []string  `yaml:"sources,omitempty"`
	FileCount int       `yaml:"file_count"`
	ByteSize  int64     `yaml:"byte_size"`
}

type SnapshotRetentionPolicy struct {
	KeepLast  int
	KeepDays  int
	Protected []string
	DryRun    bool
}

type SnapshotPrunePlan struct {
	Keep   []SnapshotInfo
	Delete []SnapshotInfo
}
