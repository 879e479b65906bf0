package core

import (
	"fmt"
	"strings"
	"time"
)

// SnapshotPrefix marks every snapshot directory under the base path.
const SnapshotPrefix = "snapshot-"

// SnapshotName derives the sortable snapshot name from its creation
// time.
func SnapshotName(t time.Time) string {
	return SnapshotPrefix + t.Format("20060102150405")
}

// SnapshotNameDisambiguated appends the creation time's nanoseconds for
// the rare case where two snapshots are created within one second.
func SnapshotNameDisambiguated(t time.Time) string {
	return fmt.Sprintf("%s.%09d", SnapshotName(t), t.Nanosecond())
}

// IsSnapshotName reports whether name is a valid snapshot directory
// name: the prefix followed by a timestamp, with no path separators.
func IsSnapshotName(name string) bool {
	if !strings.HasPrefix(name, SnapshotPrefix) {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return len(name) > len(SnapshotPrefix)
}
