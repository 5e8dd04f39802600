package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultModelDirForLinuxWithXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/dev", "/tmp/xdg-data")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-data/simpletranscribe/models", dir)
}

func TestDefaultModelDirForLinuxWithoutXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/home/dev/.local/share/simpletranscribe/models", dir)
}

func TestDefaultModelDirForMacOS(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("darwin", "/Users/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/Users/dev/Library/Application Support/simpletranscribe/models", dir)
}

func TestDefaultModelDirForUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("windows", "/Users/dev", "")
	require.Error(t, err)
}

func TestDefaultModelDirForEmptyHome(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("linux", "", "")
	require.Error(t, err)
}

func TestDefaultConfigPathFor(t *testing.T) {
	t.Parallel()

	path, err := DefaultConfigPathFor("linux", "/home/dev", "/tmp/xdg-config")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-config/simpletranscribe/config.yaml", path)

	path, err = DefaultConfigPathFor("linux", "/home/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/home/dev/.config/simpletranscribe/config.yaml", path)

	path, err = DefaultConfigPathFor("darwin", "/Users/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/Users/dev/Library/Application Support/simpletranscribe/config.yaml", path)
}

func TestResolveModelDirPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ModelDirEnv, filepath.Join(dir, "env"))

	got, err := ResolveModelDir(filepath.Join(dir, "flag", ".."))
	require.NoError(t, err)
	require.Equal(t, dir, got)

	got, err = ResolveModelDir("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "env"), got)
}

func TestResolveConfigPathOverride(t *testing.T) {
	t.Parallel()

	got, err := ResolveConfigPath("/etc/simpletranscribe//config.yaml")
	require.NoError(t, err)
	require.Equal(t, "/etc/simpletranscribe/config.yaml", got)
}
