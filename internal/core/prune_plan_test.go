package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apt-mirror/internal/types"
)

func snapshotAt(name string, created time.Time) types.SnapshotInfo {
	return types.SnapshotInfo{Name: name, CreatedAt: created}
}

func TestBuildPrunePlanKeepLast(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []types.SnapshotInfo{
		snapshotAt("snapshot-a", now.AddDate(0, 0, -3)),
		snapshotAt("snapshot-b", now.AddDate(0, 0, -2)),
		snapshotAt("snapshot-c", now.AddDate(0, 0, -1)),
	}
	plan := BuildPrunePlan(snapshots, types.SnapshotRetentionPolicy{KeepLast: 2}, now)
	require.Len(t, plan.Keep, 2)
	require.Len(t, plan.Delete, 1)
	assert.Equal(t, "snapshot-a", plan.Delete[0].Name)
}

func TestBuildPrunePlanKeepDays(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []types.SnapshotInfo{
		snapshotAt("snapshot-old", now.AddDate(0, 0, -30)),
		snapshotAt("snapshot-new", now.AddDate(0, 0, -2)),
	}
	plan := BuildPrunePlan(snapshots, types.SnapshotRetentionPolicy{KeepDays: 7}, now)
	require.Len(t, plan.Keep, 1)
	assert.Equal(t, "snapshot-new", plan.Keep[0].Name)
	require.Len(t, plan.Delete, 1)
	assert.Equal(t, "snapshot-old", plan.Delete[0].Name)
}

func TestBuildPrunePlanProtectedAlwaysKept(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []types.SnapshotInfo{
		snapshotAt("snapshot-published", now.AddDate(0, 0, -90)),
		snapshotAt("snapshot-recent", now.AddDate(0, 0, -1)),
	}
	plan := BuildPrunePlan(snapshots, types.SnapshotRetentionPolicy{
		KeepLast:  1,
		Protected: []string{"snapshot-published"},
	}, now)
	require.Len(t, plan.Keep, 2)
	assert.Empty(t, plan.Delete)
}

func TestBuildPrunePlanCombinedPolicies(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []types.SnapshotInfo{
		snapshotAt("snapshot-ancient", now.AddDate(0, 0, -60)),
		snapshotAt("snapshot-old", now.AddDate(0, 0, -20)),
		snapshotAt("snapshot-week", now.AddDate(0, 0, -5)),
		snapshotAt("snapshot-today", now),
	}
	// Keep anything under 7 days old plus the single newest.
	plan := BuildPrunePlan(snapshots, types.SnapshotRetentionPolicy{KeepLast: 1, KeepDays: 7}, now)
	keepNames := make([]string, 0, len(plan.Keep))
	for _, snapshot := range plan.Keep {
		keepNames = append(keepNames, snapshot.Name)
	}
	assert.ElementsMatch(t, []string{"snapshot-week", "snapshot-today"}, keepNames)
	require.Len(t, plan.Delete, 2)
}

func TestBuildPrunePlanNegativeValuesTreatedAsUnset(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []types.SnapshotInfo{
		snapshotAt("snapshot-a", now.AddDate(0, 0, -1)),
	}
	plan := BuildPrunePlan(snapshots, types.SnapshotRetentionPolicy{KeepLast: -1, KeepDays: -1}, now)
	assert.Empty(t, plan.Keep)
	require.Len(t, plan.Delete, 1)
}
