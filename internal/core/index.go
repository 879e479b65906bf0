package core

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"
	"github.com/ulikunitz/xz"

	"apt-mirror/internal/types"
)

// ParsePackagesIndex reads a Packages index stanza by stanza, keeping
// the fields the mirror needs. Stanzas without a Filename are ignored
// (they cannot reference a pool file).
func ParsePackagesIndex(reader io.Reader) ([]types.PackageEntry, error) {
	var entries []types.PackageEntry
	buffered := bufio.NewReader(reader)
	var current types.PackageEntry
	flush := func() {
		if current.Filename != "" {
			entries = append(entries, current)
		}
		current = types.PackageEntry{}
	}
	for {
		line, err := buffered.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read packages index").
				WithCause(err)
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "Package:"):
			current.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "Package:"))
		case strings.HasPrefix(trimmed, "Version:"):
			current.Version = strings.TrimSpace(strings.TrimPrefix(trimmed, "Version:"))
		case strings.HasPrefix(trimmed, "Filename:"):
			current.Filename = strings.TrimSpace(strings.TrimPrefix(trimmed, "Filename:"))
		case strings.HasPrefix(trimmed, "Size:"):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "Size:"))
			if size, parseErr := strconv.ParseInt(value, 10, 64); parseErr == nil {
				current.Size = size
			}
		case strings.HasPrefix(trimmed, "SHA256:"):
			current.SHA256 = strings.TrimSpace(strings.TrimPrefix(trimmed, "SHA256:"))
		}
		if err == io.EOF {
			break
		}
	}
	flush()
	return entries, nil
}

// OpenIndex opens a possibly compressed Packages index, picking the
// decompressor from the file extension.
func OpenIndex(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open packages index").
			WithCause(err)
	}
	reader, err := IndexReader(file, path)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &indexReadCloser{reader: reader, file: file}, nil
}

// IndexReader wraps a raw index stream with the decompressor implied by
// the file name.
func IndexReader(raw io.Reader, name string) (io.Reader, error) {
	switch filepath.Ext(name) {
	case ".gz":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read gzipped packages index").
				WithCause(err)
		}
		return gz, nil
	case ".bz2":
		return bzip2.NewReader(raw), nil
	case ".xz", ".lzma":
		xzReader, err := xz.NewReader(raw)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read xz packages index").
				WithCause(err)
		}
		return xzReader, nil
	default:
		return raw, nil
	}
}

type indexReadCloser struct {
	reader io.Reader
	file   *os.File
}

func (rc *indexReadCloser) Read(p []byte) (int, error) {
	return rc.reader.Read(p)
}

func (rc *indexReadCloser) Close() error {
	if closer, ok := rc.reader.(io.Closer); ok {
		_ = closer.Close()
	}
	return rc.file.Close()
}

// SortEntries orders entries by package name, then by Debian version.
// Unparseable versions fall back to a lexical comparison.
func SortEntries(entries []types.PackageEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		vi, err := debversion.NewVersion(entries[i].Version)
		if err != nil {
			return entries[i].Version < entries[j].Version
		}
		vj, err := debversion.NewVersion(entries[j].Version)
		if err != nil {
			return entries[i].Version < entries[j].Version
		}
		return vi.Compare(vj) < 0
	})
}

// IsIndexFile reports whether a file name looks like a Packages index,
// in any of the compressions APT publishes.
func IsIndexFile(name string) bool {
	if name == "Packages" {
		return true
	}
	if !strings.HasPrefix(name, "Packages.") {
		return false
	}
	switch strings.TrimPrefix(name, "Packages") {
	case ".gz", ".bz2", ".xz", ".lzma":
		return true
	}
	return false
}
