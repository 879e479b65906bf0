package core

import (
	"sort"
	"strings"
	"time"

	"apt-mirror/internal/types"
)

// BuildPrunePlan splits the retained snapshots into keep and delete
// sets for the given retention policy. Protected names (the published
// snapshot in particular) are always kept, regardless of age.
func BuildPrunePlan(snapshots []types.SnapshotInfo, policy types.SnapshotRetentionPolicy, now time.Time) types.SnapshotPrunePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	normalized := normalizeRetentionPolicy(policy)
	protected := normalizeSet(normalized.Protected)

	keepNames := map[string]struct{}{}
	for _, snapshot := range snapshots {
		if _, ok := protected[strings.ToLower(snapshot.Name)]; ok {
			keepNames[snapshot.Name] = struct{}{}
		}
		if normalized.KeepDays > 0 && !snapshot.CreatedAt.IsZero() {
			cutoff := now.AddDate(0, 0, -normalized.KeepDays)
			if !snapshot.CreatedAt.Before(cutoff) {
				keepNames[snapshot.Name] = struct{}{}
			}
		}
	}

	if normalized.KeepLast > 0 {
		sorted := append([]types.SnapshotInfo(nil), snapshots...)
		sort.Slice(sorted, func(i, j int) bool {
			if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
				return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
			}
			return sorted[i].Name > sorted[j].Name
		})
		limit := normalized.KeepLast
		if limit > len(sorted) {
			limit = len(sorted)
		}
		for i := 0; i < limit; i++ {
			keepNames[sorted[i].Name] = struct{}{}
		}
	}

	var keep []types.SnapshotInfo
	var del []types.SnapshotInfo
	for _, snapshot := range snapshots {
		if _, ok := keepNames[snapshot.Name]; ok {
			keep = append(keep, snapshot)
		} else {
			del = append(del, snapshot)
		}
	}
	return types.SnapshotPrunePlan{Keep: keep, Delete: del}
}

func normalizeRetentionPolicy(policy types.SnapshotRetentionPolicy) types.SnapshotRetentionPolicy {
	normalized := policy
	if normalized.KeepLast < 0 {
		normalized.KeepLast = 0
	}
	if normalized.KeepDays < 0 {
		normalized.KeepDays = 0
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}
