package app

import (
	"time"

	"apt-mirror/internal/adapters"
	"apt-mirror/internal/ports"
)

// Service orchestrates the mirror operations. Ports left nil are
// replaced by the default filesystem/HTTP adapters for the request's
// base path; tests inject fakes.
type Service struct {
	Fetcher     ports.UpstreamFetcher
	Snapshots   ports.SnapshotStore
	Publication ports.Publication
	Lock        ports.MirrorLock
	Scanner     ports.PoolScanner
	Clock       func() time.Time
}

func NewService() Service {
	return Service{Clock: time.Now}
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

func (s Service) fetcher(req SyncRequest) ports.UpstreamFetcher {
	if s.Fetcher != nil {
		return s.Fetcher
	}
	return adapters.NewHTTPFetcherAdapter(req.HTTPTimeoutSec, req.HTTPRetries, req.HTTPRetryDelayMs, req.Workers)
}

func (s Service) snapshotStore(basePath string) ports.SnapshotStore {
	if s.Snapshots != nil {
		return s.Snapshots
	}
	return adapters.NewSnapshotStoreAdapter(basePath)
}

func (s Service) publication(basePath string) ports.Publication {
	if s.Publication != nil {
		return s.Publication
	}
	return adapters.NewPublicationAdapter(basePath)
}

func (s Service) lock(basePath string) ports.MirrorLock {
	if s.Lock != nil {
		return s.Lock
	}
	return adapters.NewLockFileAdapter(basePath)
}

func (s Service) scanner() ports.PoolScanner {
	if s.Scanner != nil {
		return s.Scanner
	}
	return adapters.NewPoolScanAdapter()
}
