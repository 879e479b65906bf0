package adapters

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"apt-mirror/internal/core"
	"apt-mirror/internal/ports"
)

// PoolScanAdapter walks committed on-disk state for the retention
// engine: Packages indices grouped by archive root, and the pool files
// physically present. Staging directories and in-flight partial files
// are never reported.
type PoolScanAdapter struct{}

func NewPoolScanAdapter() PoolScanAdapter {
	return PoolScanAdapter{}
}

func (a PoolScanAdapter) PackageIndices(root string) ([]ports.IndexLocation, error) {
	grouped := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if entry.IsDir() {
			if isStagingDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !core.IsIndexFile(entry.Name()) {
			return nil
		}
		archiveRoot, ok := archiveRootOf(path)
		if !ok {
			return nil
		}
		grouped[archiveRoot] = append(grouped[archiveRoot], path)
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan package indices").
			WithCause(err)
	}
	roots := make([]string, 0, len(grouped))
	for archiveRoot := range grouped {
		roots = append(roots, archiveRoot)
	}
	sort.Strings(roots)
	locations := make([]ports.IndexLocation, 0, len(roots))
	for _, archiveRoot := range roots {
		indices := grouped[archiveRoot]
		sort.Strings(indices)
		locations = append(locations, ports.IndexLocation{
			ArchiveRoot: archiveRoot,
			Indices:     indices,
		})
	}
	return locations, nil
}

func (a PoolScanAdapter) PoolFiles(root string) (map[string]int64, error) {
	files := map[string]int64{}
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if entry.IsDir() {
			if isStagingDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".deb") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files[filepath.Clean(path)] = info.Size()
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan pool files").
			WithCause(err)
	}
	return files, nil
}

// archiveRootOf finds the directory whose dists tree contains the given
// index file. Pool references in the index resolve against that root.
func archiveRootOf(indexPath string) (string, bool) {
	dir := filepath.Dir(indexPath)
	for {
		parent := filepath.Dir(dir)
		if filepath.Base(dir) == "dists" {
			return parent, true
		}
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func isStagingDir(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, stagingSuffix)
}

var _ ports.PoolScanner = PoolScanAdapter{}
