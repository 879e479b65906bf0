package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apt-mirror/internal/core"
	"apt-mirror/internal/ports"
)

const publishLinkName = "publish"

// PublicationAdapter is the single mutable pointer naming the served
// snapshot: a "publish" symlink in the base path. The swap creates a
// temporary symlink and renames it over the old one, so a reader
// resolving the link always sees either the previous or the new
// snapshot, never a missing or half-updated pointer.
type PublicationAdapter struct {
	BasePath string
}

func NewPublicationAdapter(basePath string) PublicationAdapter {
	return PublicationAdapter{BasePath: basePath}
}

func (a PublicationAdapter) Published() (string, error) {
	target, err := os.Readlink(filepath.Join(a.BasePath, publishLinkName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read publication pointer").
			WithCause(err)
	}
	return filepath.Base(target), nil
}

func (a PublicationAdapter) SetPublished(name string) error {
	if strings.TrimSpace(a.BasePath) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("publication base path is empty")
	}
	if !core.IsSnapshotName(name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid snapshot name: " + name)
	}
	target := filepath.Join(a.BasePath, name)
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("snapshot not found: " + name)
	}
	tmp := filepath.Join(a.BasePath, ".publish.tmp")
	_ = os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage publication pointer").
			WithCause(err)
	}
	if err := os.Rename(tmp, filepath.Join(a.BasePath, publishLinkName)); err != nil {
		_ = os.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to swap publication pointer").
			WithCause(err)
	}
	log.Info().Str("snapshot", name).Msg("snapshot published")
	return nil
}

var _ ports.Publication = PublicationAdapter{}
