package core

import (
	"path/filepath"
	"strings"

	"apt-mirror/internal/types"
)

// BuildSubtree maps a directory inside the mirror store to its subtree
// inside a snapshot. With no options set the snapshot mirrors the
// mirror store layout ("<host>/<path...>"); StripMirrorName drops the
// leading hostname and StripMirrorPath removes an arbitrary path
// component, matching the original mirror layout options.
func BuildSubtree(root string, mirrorPath string, opts types.SubtreeOptions) string {
	subtree, err := filepath.Rel(mirrorPath, root)
	if err != nil {
		return filepath.Base(root)
	}
	if opts.StripMirrorName {
		for _, name := range opts.MirrorNames {
			if name == "" {
				continue
			}
			if subtree == name {
				subtree = "."
				break
			}
			if strings.HasPrefix(subtree, name+string(filepath.Separator)) {
				subtree = strings.TrimPrefix(subtree, name+string(filepath.Separator))
				break
			}
		}
	}
	if opts.StripMirrorPath != "" && strings.Contains(subtree, opts.StripMirrorPath) {
		subtree = strings.ReplaceAll(subtree, opts.StripMirrorPath, "")
	}
	cleaned := filepath.Clean(subtree)
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		return "."
	}
	return cleaned
}
