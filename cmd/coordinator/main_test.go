package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/coordinator"
)

func newTestViper(t *testing.T, setters func(v *viper.Viper)) *viper.Viper {
	cmd := newRootCmd()
	v := viper.New()
	require.NoError(t, v.BindPFlags(cmd.Flags()))
	if setters != nil {
		setters(v)
	}
	return v
}

func TestLoadFilesFromFlagOnly(t *testing.T) {
	v := newTestViper(t, func(v *viper.Viper) {
		v.Set("file", []string{"a.txt", "b.txt"})
	})

	files, err := loadFiles(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, files)
}

func TestLoadFilesMergesFilesFrom(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "files.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("c.txt\n\nd.txt\n"), 0o644))

	v := newTestViper(t, func(v *viper.Viper) {
		v.Set("file", []string{"a.txt"})
		v.Set("files-from", listPath)
	})

	files, err := loadFiles(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "c.txt", "d.txt"}, files)
}

func TestLoadFilesErrorsWhenEmpty(t *testing.T) {
	v := newTestViper(t, nil)

	_, err := loadFiles(v)
	assert.Error(t, err)
}

func TestFileResponseForDispatched(t *testing.T) {
	body := fileResponseFor("a.txt", coordinator.Dispatched, 3)
	assert.Equal(t, int32(3), body.Epoch)
	assert.Equal(t, "a.txt", body.File)
}

func TestFileResponseForEpochDone(t *testing.T) {
	body := fileResponseFor("", coordinator.EpochDone, 3)
	assert.Equal(t, int32(-1), body.Epoch)
	assert.Empty(t, body.File)
}

func TestFileResponseForNoFile(t *testing.T) {
	body := fileResponseFor("", coordinator.NoFile, 5)
	assert.Equal(t, int32(5), body.Epoch)
	assert.Empty(t, body.File)
}
