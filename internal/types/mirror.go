package types

// MirrorSource is a single upstream APT source line of the form
// "deb <url> <suite> <components...>". The literal line is the identity
// used by the synchronize source filter.
type MirrorSource struct {
	Line       string
	URL        string
	Suite      string
	Components []string
}

// FileIdentity describes a pool file for change detection. SHA256 may
// be empty when the upstream index did not publish a checksum, in which
// case only the size is compared.
type FileIdentity struct {
	Size   int64
	SHA256 string
}

// PackageEntry is one stanza of a Packages index, reduced to the fields
// the mirror needs.
type PackageEntry struct {
	Name     string
	Version  string
	Filename string
	Size     int64
	SHA256   string
}

// SubtreeOptions control how a mirror directory maps to a snapshot
// subtree.
type SubtreeOptions struct {
	StripMirrorName bool
	StripMirrorPath string
	MirrorNames     []string
}
