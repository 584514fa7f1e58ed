package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteToReadFromRoundTrip(t *testing.T) {
	f := New()
	f.Set("guid-1", Section{
		ListenAddr: "127.0.0.1", ListenPort: 60000,
		ChildPortMin: 60000, ChildPortMax: 60099,
		ParentAddr: "127.0.0.1", ParentPort: 8081,
		Token: "guid-1", HostScheme: "http", HostAddr: "127.0.0.1", HostPort: 8081,
	})

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	decoded, err := ReadFrom(&buf)
	require.NoError(t, err)

	section, ok := decoded.Get("guid-1")
	require.True(t, ok)
	assert.Equal(t, 60000, section.ListenPort)
	assert.Equal(t, "127.0.0.1", section.ListenAddr)
	assert.Equal(t, "guid-1", section.Token)
}

func TestCloneOverridesListenPort(t *testing.T) {
	f := New()
	f.Set("parent", Section{ListenAddr: "127.0.0.1", ListenPort: 8081})

	clone := f.Clone("parent", "child", func(s *Section) {
		s.ListenPort = 60001
	})
	assert.Equal(t, 60001, clone.ListenPort)
	assert.Equal(t, "127.0.0.1", clone.ListenAddr)

	stored, ok := f.Get("child")
	require.True(t, ok)
	assert.Equal(t, 60001, stored.ListenPort)
}

func TestReferenceSetsParentBackPointer(t *testing.T) {
	f := New()
	f.Set("parent", Section{ListenAddr: "10.0.0.1", ListenPort: 9000})
	f.Set("child", Section{ListenAddr: "10.0.0.2", ListenPort: 9001})

	ref := f.Reference("parent", "child")
	assert.Equal(t, "10.0.0.1", ref.ParentAddr)
	assert.Equal(t, 9000, ref.ParentPort)
}

func TestRemoveDeletesSection(t *testing.T) {
	f := New()
	f.Set("guid", Section{ListenPort: 1})
	f.Remove("guid")
	_, ok := f.Get("guid")
	assert.False(t, ok)
}
