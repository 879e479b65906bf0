package core

import (
	"path/filepath"
	"sort"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"

	"apt-mirror/internal/types"
)

// Unreferenced subtracts the referenced pool paths from the files
// physically present and returns the remainder as removal candidates,
// sorted by path. Both maps are keyed by absolute, cleaned paths.
func Unreferenced(existing map[string]int64, referenced map[string]struct{}) []types.CleanupCandidate {
	var candidates []types.CleanupCandidate
	for path, size := range existing {
		if _, ok := referenced[path]; ok {
			continue
		}
		candidates = append(candidates, types.CleanupCandidate{Path: path, Size: size})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})
	return candidates
}

// MarkSuperseded flags candidates for which some retained index still
// references a newer version of the same package. The candidate's name
// and version come from the conventional name_version_arch.deb file
// name; files that do not follow it are left unflagged.
func MarkSuperseded(candidates []types.CleanupCandidate, referenced []types.PackageEntry) {
	newest := map[string]debversion.Version{}
	for _, entry := range referenced {
		if entry.Name == "" || entry.Version == "" {
			continue
		}
		version, err := debversion.NewVersion(entry.Version)
		if err != nil {
			continue
		}
		if current, ok := newest[entry.Name]; !ok || version.GreaterThan(current) {
			newest[entry.Name] = version
		}
	}
	for i := range candidates {
		name, rawVersion, ok := splitDebFileName(candidates[i].Path)
		if !ok {
			continue
		}
		version, err := debversion.NewVersion(rawVersion)
		if err != nil {
			continue
		}
		if current, ok := newest[name]; ok && current.GreaterThan(version) {
			candidates[i].Superseded = true
		}
	}
}

// splitDebFileName extracts package name and version from a
// name_version_arch.deb file name. Epoch colons are stored as %3a in
// pool file names; restore them before parsing.
func splitDebFileName(path string) (string, string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".deb") {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(base, ".deb"), "_")
	if len(parts) < 2 {
		return "", "", false
	}
	version := strings.ReplaceAll(parts[1], "%3a", ":")
	return parts[0], version, true
}
