package netns

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNetns(t *testing.T) (*Netns, afero.Fs, *MockMounter) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m := NewMockMounter()
	return NewForTest("/run/netns", fs, m), fs, m
}

func TestBindNamed(t *testing.T) {
	n, fs, m := newTestNetns(t)
	require.NoError(t, afero.WriteFile(fs, "/proc/4242/ns/net", nil, 0o444))

	require.NoError(t, n.BindNamed(4242, "web"))
	assert.Equal(t, "/proc/4242/ns/net", m.Mounts["/run/netns/web"])

	ok, err := n.Exists("web")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBindNamedMissingProcess(t *testing.T) {
	n, _, m := newTestNetns(t)

	err := n.BindNamed(1, "web")
	require.ErrorIs(t, err, ErrProcessNotFound)
	assert.Empty(t, m.Mounts)
}

func TestBindNamedExisting(t *testing.T) {
	n, fs, _ := newTestNetns(t)
	require.NoError(t, afero.WriteFile(fs, "/proc/7/ns/net", nil, 0o444))
	require.NoError(t, afero.WriteFile(fs, "/run/netns/web", nil, 0o444))

	require.ErrorIs(t, n.BindNamed(7, "web"), ErrNamespaceExists)
}

func TestBindNamedMountFailureRemovesMountPoint(t *testing.T) {
	n, fs, m := newTestNetns(t)
	require.NoError(t, afero.WriteFile(fs, "/proc/7/ns/net", nil, 0o444))
	m.MountErr = assert.AnError

	require.ErrorIs(t, n.BindNamed(7, "web"), assert.AnError)
	ok, err := afero.Exists(fs, "/run/netns/web")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnbindNamed(t *testing.T) {
	n, fs, m := newTestNetns(t)
	require.NoError(t, afero.WriteFile(fs, "/proc/7/ns/net", nil, 0o444))
	require.NoError(t, n.BindNamed(7, "web"))

	require.NoError(t, n.UnbindNamed("web"))
	assert.Empty(t, m.Mounts)
	ok, err := n.Exists("web")
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, n.UnbindNamed("web"), ErrNamespaceNotFound)
}

func TestPath(t *testing.T) {
	n := NewWithDir("/tmp/netns")
	assert.Equal(t, "/tmp/netns/a", n.Path("a"))
	assert.Equal(t, "/tmp/netns", n.Dir())
}
