package types

// FetchFailure records a single failed file transfer within an
// otherwise successful source fetch.
type FetchFailure struct {
	Path string
	Err  string
}

// FetchReport summarizes one source fetch. Changed and Unchanged hold
// pool paths relative to the source's archive root.
type FetchReport struct {
	Changed      []string
	Unchanged    []string
	BytesFetched int64
	Failures     []FetchFailure
}

// SourceOutcome is the per-source result surfaced in a sync summary.
// Err is empty when the source synchronized cleanly.
type SourceOutcome struct {
	Source       string
	FilesChanged int
	FilesKept    int
	BytesFetched int64
	Failures     []FetchFailure
	Err          string
}

// CleanupCandidate is a pool file unreferenced by the mirror indices
// and by every retained snapshot. Superseded marks candidates for which
// a newer version of the same package is still referenced.
type CleanupCandidate struct {
	Path       string
	Size       int64
	Superseded bool
}
