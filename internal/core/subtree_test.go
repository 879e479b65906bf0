package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"apt-mirror/internal/types"
)

func TestBuildSubtreeDefault(t *testing.T) {
	mirror := filepath.Join("base", "mirror")
	root := filepath.Join(mirror, "archive.example.com", "ubuntu")
	subtree := BuildSubtree(root, mirror, types.SubtreeOptions{})
	assert.Equal(t, filepath.Join("archive.example.com", "ubuntu"), subtree)
}

func TestBuildSubtreeStripMirrorName(t *testing.T) {
	mirror := filepath.Join("base", "mirror")
	root := filepath.Join(mirror, "archive.example.com", "ubuntu")
	subtree := BuildSubtree(root, mirror, types.SubtreeOptions{
		StripMirrorName: true,
		MirrorNames:     []string{"archive.example.com"},
	})
	assert.Equal(t, "ubuntu", subtree)
}

func TestBuildSubtreeStripMirrorNameWholeTree(t *testing.T) {
	mirror := filepath.Join("base", "mirror")
	root := filepath.Join(mirror, "archive.example.com")
	subtree := BuildSubtree(root, mirror, types.SubtreeOptions{
		StripMirrorName: true,
		MirrorNames:     []string{"archive.example.com"},
	})
	assert.Equal(t, ".", subtree)
}

func TestBuildSubtreeStripMirrorPath(t *testing.T) {
	mirror := filepath.Join("base", "mirror")
	root := filepath.Join(mirror, "archive.example.com", "internal", "ubuntu")
	subtree := BuildSubtree(root, mirror, types.SubtreeOptions{StripMirrorPath: "internal"})
	assert.Equal(t, filepath.Join("archive.example.com", "ubuntu"), subtree)
}

func TestBuildSubtreeUnknownMirrorNameKept(t *testing.T) {
	mirror := filepath.Join("base", "mirror")
	root := filepath.Join(mirror, "other.example.com", "ros")
	subtree := BuildSubtree(root, mirror, types.SubtreeOptions{
		StripMirrorName: true,
		MirrorNames:     []string{"archive.example.com"},
	})
	assert.Equal(t, filepath.Join("other.example.com", "ros"), subtree)
}
