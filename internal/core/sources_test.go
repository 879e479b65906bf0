package core

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apt-mirror/internal/types"
)

func TestParseMirrorList(t *testing.T) {
	sources, err := ParseMirrorList(context.Background(), []string{
		"deb http://archive.example.com/ubuntu noble main universe",
		"",
		"  deb http://ppa.example.com/ros jazzy main  ",
	})
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "http://archive.example.com/ubuntu", sources[0].URL)
	assert.Equal(t, "noble", sources[0].Suite)
	assert.Equal(t, []string{"main", "universe"}, sources[0].Components)
	assert.Equal(t, "deb http://archive.example.com/ubuntu noble main universe", sources[0].Line)

	assert.Equal(t, "jazzy", sources[1].Suite)
	assert.Equal(t, "deb http://ppa.example.com/ros jazzy main", sources[1].Line)
}

func TestParseMirrorListRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{name: "missing suite", line: "deb http://archive.example.com/ubuntu"},
		{name: "wrong keyword", line: "deb-src http://archive.example.com/ubuntu noble main"},
		{name: "garbage", line: "not a source line"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMirrorList(context.Background(), []string{tc.line})
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
}

func TestFilterSourcesEmptyPatternSelectsAll(t *testing.T) {
	sources := []types.MirrorSource{
		{Line: "deb http://a.example.com/ubuntu noble main"},
		{Line: "deb http://b.example.com/ros jazzy main"},
	}
	selected, err := FilterSources(sources, "")
	require.NoError(t, err)
	assert.Equal(t, sources, selected)
}

func TestFilterSourcesRegex(t *testing.T) {
	sources := []types.MirrorSource{
		{Line: "deb http://a.example.com/ubuntu noble main"},
		{Line: "deb http://b.example.com/ros jazzy main"},
	}
	selected, err := FilterSources(sources, "ros")
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, sources[1].Line, selected[0].Line)
}

func TestFilterSourcesNoMatchYieldsEmpty(t *testing.T) {
	sources := []types.MirrorSource{
		{Line: "deb http://a.example.com/ubuntu noble main"},
	}
	selected, err := FilterSources(sources, "does-not-match-anything")
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestFilterSourcesInvalidRegex(t *testing.T) {
	_, err := FilterSources(nil, "[unterminated")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestSourceRoot(t *testing.T) {
	root, err := SourceRoot(types.MirrorSource{URL: "http://archive.example.com/ubuntu"})
	require.NoError(t, err)
	assert.Equal(t, "archive.example.com/ubuntu", root)

	root, err = SourceRoot(types.MirrorSource{URL: "http://archive.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "archive.example.com", root)
}

func TestSourceRootRejectsHostlessURL(t *testing.T) {
	_, err := SourceRoot(types.MirrorSource{URL: "/just/a/path"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestSourceHosts(t *testing.T) {
	hosts := SourceHosts([]types.MirrorSource{
		{URL: "http://a.example.com/ubuntu"},
		{URL: "http://b.example.com/ros"},
		{URL: "http://a.example.com/extras"},
	})
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, hosts)
}
