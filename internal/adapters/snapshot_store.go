package adapters

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"apt-mirror/internal/core"
	"apt-mirror/internal/ports"
	"apt-mirror/internal/types"
)

const mirrorDirName = "mirror"
const manifestFileName = "manifest.yaml"
const stagingSuffix = ".staging"

// SnapshotStoreAdapter materializes snapshots on disk next to the
// mirror store. Pool files are hard-linked into the snapshot so the
// tree shares storage with the mirror yet survives any later mirror
// mutation: the synchronizer always commits pool files through a rename
// of a fresh inode, never an in-place rewrite. Index trees are small
// and copied outright. A snapshot builds inside a dot-prefixed staging
// directory and becomes visible only through the final rename.
type SnapshotStoreAdapter struct {
	BasePath string
}

func NewSnapshotStoreAdapter(basePath string) SnapshotStoreAdapter {
	return SnapshotStoreAdapter{BasePath: basePath}
}

func (a SnapshotStoreAdapter) Create(ctx context.Context, req ports.SnapshotCreateRequest) (types.SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.SnapshotInfo{}, err
	}
	if strings.TrimSpace(a.BasePath) == "" {
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("snapshot base path is empty")
	}
	if !core.IsSnapshotName(req.Name) {
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid snapshot name: " + req.Name)
	}
	final := filepath.Join(a.BasePath, req.Name)
	if _, err := os.Stat(final); err == nil {
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("snapshot already exists: " + req.Name)
	}
	mirrorPath := filepath.Join(a.BasePath, mirrorDirName)
	roots, err := findArchiveRoots(mirrorPath)
	if err != nil {
		return types.SnapshotInfo{}, err
	}
	if len(roots) == 0 {
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("mirror store is empty, synchronize before creating a snapshot")
	}

	staging := filepath.Join(a.BasePath, "."+req.Name+stagingSuffix)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create snapshot staging directory").
			WithCause(err)
	}
	manifest, err := a.populate(ctx, staging, mirrorPath, roots, req)
	if err != nil {
		_ = os.RemoveAll(staging)
		return types.SnapshotInfo{}, err
	}
	if err := writeManifest(filepath.Join(staging, manifestFileName), manifest); err != nil {
		_ = os.RemoveAll(staging)
		return types.SnapshotInfo{}, err
	}
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return types.SnapshotInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to commit snapshot").
			WithCause(err)
	}
	log.Info().Str("snapshot", req.Name).Int("files", manifest.FileCount).Msg("snapshot created")
	return types.SnapshotInfo{
		Name:      req.Name,
		CreatedAt: manifest.CreatedAt,
		FileCount: manifest.FileCount,
		ByteSize:  manifest.ByteSize,
	}, nil
}

func (a SnapshotStoreAdapter) populate(ctx context.Context, staging string, mirrorPath string, roots []string, req ports.SnapshotCreateRequest) (types.SnapshotManifest, error) {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	manifest := types.SnapshotManifest{
		Name:      req.Name,
		Sources:   req.Sources,
		CreatedAt: createdAt,
	}
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return manifest, err
		}
		subtree := core.BuildSubtree(root, mirrorPath, req.Subtree)
		dstRoot := filepath.Join(staging, subtree)
		srcPool := filepath.Join(root, "pool")
		if dirExists(srcPool) {
			files, bytes, err := linkTree(srcPool, filepath.Join(dstRoot, "pool"))
			if err != nil {
				return manifest, err
			}
			manifest.FileCount += files
			manifest.ByteSize += bytes
		}
		srcDists := filepath.Join(root, "dists")
		if dirExists(srcDists) {
			files, bytes, err := copyTree(srcDists, filepath.Join(dstRoot, "dists"))
			if err != nil {
				return manifest, err
			}
			manifest.FileCount += files
			manifest.ByteSize += bytes
		}
	}
	return manifest, nil
}

func (a SnapshotStoreAdapter) List(ctx context.Context) ([]types.SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.BasePath) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("snapshot base path is empty")
	}
	entries, err := os.ReadDir(a.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.SnapshotInfo{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read snapshot base directory").
			WithCause(err)
	}
	var snapshots []types.SnapshotInfo
	for _, entry := range entries {
		if !entry.IsDir() || !core.IsSnapshotName(entry.Name()) {
			continue
		}
		info := types.SnapshotInfo{Name: entry.Name()}
		manifest, err := readManifest(filepath.Join(a.BasePath, entry.Name(), manifestFileName))
		if err == nil {
			info.CreatedAt = manifest.CreatedAt
			info.FileCount = manifest.FileCount
			info.ByteSize = manifest.ByteSize
		} else if dirInfo, statErr := entry.Info(); statErr == nil {
			info.CreatedAt = dirInfo.ModTime().UTC()
		}
		snapshots = append(snapshots, info)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
		}
		return snapshots[i].Name < snapshots[j].Name
	})
	return snapshots, nil
}

func (a SnapshotStoreAdapter) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !core.IsSnapshotName(name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid snapshot name: " + name)
	}
	path := filepath.Join(a.BasePath, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("snapshot not found: " + name)
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat snapshot").
			WithCause(err)
	}
	if err := os.RemoveAll(path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to delete snapshot").
			WithCause(err)
	}
	log.Info().Str("snapshot", name).Msg("snapshot deleted")
	return nil
}

// findArchiveRoots returns the directories under the mirror store that
// hold a dists or pool subdirectory, one per mirrored archive.
func findArchiveRoots(mirrorPath string) ([]string, error) {
	var roots []string
	seen := map[string]struct{}{}
	err := filepath.WalkDir(mirrorPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if name != "pool" && name != "dists" {
			return nil
		}
		root := filepath.Dir(path)
		if _, ok := seen[root]; !ok {
			seen[root] = struct{}{}
			roots = append(roots, root)
		}
		return filepath.SkipDir
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan mirror store").
			WithCause(err)
	}
	sort.Strings(roots)
	return roots, nil
}

// linkTree recreates src under dst, hard-linking every regular file.
// Filesystems without hard-link support fall back to a plain copy.
func linkTree(src string, dst string) (int, int64, error) {
	files := 0
	var bytes int64
	err := filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(entry.Name(), partialSuffix) {
			return nil
		}
		if err := os.Link(path, target); err != nil {
			if _, copyErr := copyFile(path, target); copyErr != nil {
				return copyErr
			}
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to link snapshot pool").
			WithCause(err)
	}
	return files, bytes, nil
}

func copyTree(src string, dst string) (int, int64, error) {
	files := 0
	var bytes int64
	err := filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if strings.HasSuffix(entry.Name(), partialSuffix) {
			return nil
		}
		written, err := copyFile(path, target)
		if err != nil {
			return err
		}
		files++
		bytes += written
		return nil
	})
	if err != nil {
		return 0, 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to copy snapshot indices").
			WithCause(err)
	}
	return files, bytes, nil
}

func copyFile(src string, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func writeManifest(path string, manifest types.SnapshotManifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal snapshot manifest").
			WithCause(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write snapshot manifest").
			WithCause(err)
	}
	return nil
}

func readManifest(path string) (types.SnapshotManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SnapshotManifest{}, err
	}
	var manifest types.SnapshotManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.SnapshotManifest{}, err
	}
	return manifest, nil
}

var _ ports.SnapshotStore = SnapshotStoreAdapter{}
