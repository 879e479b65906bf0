package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"apt-mirror/internal/ports"
)

const lockFileName = ".apt-mirror.lock"

// LockFileAdapter serializes mutating operations over one base path
// with an advisory lock file created O_CREATE|O_EXCL. Contention fails
// fast rather than blocking; the external trigger layer retries on its
// own schedule.
type LockFileAdapter struct {
	BasePath string
}

func NewLockFileAdapter(basePath string) LockFileAdapter {
	return LockFileAdapter{BasePath: basePath}
}

func (a LockFileAdapter) Acquire(operation string) (func(), error) {
	if strings.TrimSpace(a.BasePath) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("lock base path is empty")
	}
	if err := os.MkdirAll(a.BasePath, 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create base directory").
			WithCause(err)
	}
	path := filepath.Join(a.BasePath, lockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder := "unknown"
			if content, readErr := os.ReadFile(path); readErr == nil {
				holder = strings.TrimSpace(string(content))
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("another operation holds the mirror lock: " + holder)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to acquire mirror lock").
			WithCause(err)
	}
	fmt.Fprintf(file, "pid=%d op=%s at=%s\n", os.Getpid(), operation, time.Now().UTC().Format(time.RFC3339))
	file.Close()
	return func() { _ = os.Remove(path) }, nil
}

var _ ports.MirrorLock = LockFileAdapter{}
