package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodtracker/internal/model"
	fileRepo "github.com/sakif/foodtracker/internal/repository/file"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "foodtracker version 0.1.0 (build: dev)\n", out)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOODTRACKER_DATA_DIR", dir)
	t.Setenv("FOODTRACKER_ARCHIVE", "file")

	archive, err := fileRepo.New(dir, fileRepo.DefaultName, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	soup, err := model.NewMeal("Soup", nil, 3)
	require.NoError(t, err)
	require.NoError(t, archive.Save(context.Background(), []*model.Meal{soup}))

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Soup")
	assert.Contains(t, out, "★★★☆☆")
	assert.Contains(t, out, "1 meal(s) in "+filepath.Join(dir, "meals"))
}

func TestList_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foodtracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: sqlite\n  data_dir: "+dir+"\n"), 0o644))

	out, err := execute(t, "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 meal(s) in "+filepath.Join(dir, "meals.db"))
}

func TestList_BadLogLevel(t *testing.T) {
	t.Setenv("FOODTRACKER_DATA_DIR", t.TempDir())

	_, err := execute(t, "list", "--log-level", "loud")
	assert.Error(t, err)
}

func TestStars(t *testing.T) {
	assert.Equal(t, "☆☆☆☆☆", stars(0))
	assert.Equal(t, "★★★★★", stars(5))
}
