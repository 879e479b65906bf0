package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apt-mirror/internal/core"
	"apt-mirror/internal/types"
)

// PruneSnapshots deletes retained snapshots per the keep-last/keep-days
// policy. The published snapshot is always protected. Pool files freed
// by the pruned snapshots become reclaimable on the next cleanup pass.
func (s Service) PruneSnapshots(ctx context.Context, req PruneRequest) (PruneResult, error) {
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return PruneResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	if req.KeepLast <= 0 && req.KeepDays <= 0 {
		return PruneResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("retention policy requires keep-last or keep-days")
	}

	release, err := s.lock(basePath).Acquire("prune")
	if err != nil {
		return PruneResult{}, err
	}
	defer release()

	store := s.snapshotStore(basePath)
	snapshots, err := store.List(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	published, err := s.publication(basePath).Published()
	if err != nil {
		return PruneResult{}, err
	}
	policy := types.SnapshotRetentionPolicy{
		KeepLast: req.KeepLast,
		KeepDays: req.KeepDays,
		DryRun:   req.DryRun,
	}
	if published != "" {
		policy.Protected = []string{published}
	}
	plan := core.BuildPrunePlan(snapshots, policy, s.now())
	if policy.DryRun {
		return PruneResult{
			KeepCount:   len(plan.Keep),
			DeleteCount: len(plan.Delete),
			DryRun:      true,
		}, nil
	}
	var deleted []string
	for _, snapshot := range plan.Delete {
		if err := store.Delete(ctx, snapshot.Name); err != nil {
			return PruneResult{}, err
		}
		deleted = append(deleted, snapshot.Name)
	}
	log.Info().Int("deleted", len(deleted)).Int("kept", len(plan.Keep)).Msg("snapshots pruned")
	return PruneResult{
		KeepCount:   len(plan.Keep),
		DeleteCount: len(deleted),
		Deleted:     deleted,
		DryRun:      false,
	}, nil
}
