package core

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"apt-mirror/internal/types"
)

// ParseMirrorList parses configured APT source lines. Blank lines are
// skipped; anything else must be "deb <url> <suite> [components...]".
func ParseMirrorList(ctx context.Context, lines []string) ([]types.MirrorSource, error) {
	var sources []types.MirrorSource
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 3 || fields[0] != "deb" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid mirror list entry: " + trimmed)
		}
		if _, err := url.Parse(fields[1]); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid mirror url: " + fields[1]).
				WithCause(err)
		}
		assert.NotEmpty(ctx, fields[1], "mirror url must be set")
		assert.NotEmpty(ctx, fields[2], "mirror suite must be set")
		sources = append(sources, types.MirrorSource{
			Line:       trimmed,
			URL:        fields[1],
			Suite:      fields[2],
			Components: fields[3:],
		})
	}
	return sources, nil
}

// FilterSources selects sources whose literal definition line matches
// the pattern. An empty pattern selects everything. A pattern that
// matches nothing yields an empty slice, which callers report as a
// no-op rather than an error.
func FilterSources(sources []types.MirrorSource, pattern string) ([]types.MirrorSource, error) {
	if strings.TrimSpace(pattern) == "" {
		return sources, nil
	}
	expr, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid source filter").
			WithCause(err)
	}
	var selected []types.MirrorSource
	for _, source := range sources {
		if expr.MatchString(source.Line) {
			selected = append(selected, source)
		}
	}
	return selected, nil
}

// SourceRoot returns the mirror-store subdirectory for a source:
// hostname followed by the URL path, mirroring the upstream layout.
func SourceRoot(source types.MirrorSource) (string, error) {
	parsed, err := url.Parse(source.URL)
	if err != nil || parsed.Hostname() == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("mirror url has no hostname: " + source.URL).
			WithCause(err)
	}
	root := parsed.Hostname()
	if trimmed := strings.Trim(parsed.Path, "/"); trimmed != "" {
		root = path.Join(root, trimmed)
	}
	return root, nil
}

// SourceHosts returns the distinct hostnames of the given sources, in
// first-seen order. Used for snapshot subtree stripping.
func SourceHosts(sources []types.MirrorSource) []string {
	seen := map[string]struct{}{}
	var hosts []string
	for _, source := range sources {
		parsed, err := url.Parse(source.URL)
		if err != nil {
			continue
		}
		host := parsed.Hostname()
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}
