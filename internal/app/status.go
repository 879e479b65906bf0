package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Status reports what is currently served: the published snapshot name,
// or the last successful synchronization time when nothing has been
// published yet.
func (s Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return StatusResult{}, err
	}
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		return StatusResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("base path is required")
	}
	published, err := s.publication(basePath).Published()
	if err != nil {
		return StatusResult{}, err
	}
	result := StatusResult{Published: published}
	if info, err := os.Stat(filepath.Join(basePath, "mirror")); err == nil {
		result.Synchronized = true
		result.LastSync = info.ModTime().UTC()
	}
	return result, nil
}
