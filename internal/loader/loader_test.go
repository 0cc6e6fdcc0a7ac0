package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFileSourceList(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "DGS10.csv", "2024-01-02,3.95\n")
	writeSourceFile(t, dir, "DGS2.csv", "2024-01-02,4.33\n")
	writeSourceFile(t, dir, "notes.md", "not a series\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	source := NewFileSource(dir, zerolog.Nop())
	ids, err := source.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DGS10", "DGS2"}, ids)
}

func TestFileSourceLoad(t *testing.T) {
	log := zerolog.Nop()

	t.Run("parses comma-delimited rows", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "DGS10.csv", "2024-01-02,3.95\n2024-01-03,3.91\n")

		series, err := NewFileSource(dir, log).Load(context.Background(), "DGS10")
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series[0].Date)
		assert.Equal(t, "3.95", series[0].Raw)
	})

	t.Run("skips a header row", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "DGS2.csv", "DATE,DGS2\n2024-01-02,4.33\n")

		series, err := NewFileSource(dir, log).Load(context.Background(), "DGS2")
		require.NoError(t, err)
		require.Len(t, series, 1)
	})

	t.Run("parses tab-delimited rows", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "DGS30.tsv", "2024-01-02\t4.08\n2024-01-03\t4.05\n")

		series, err := NewFileSource(dir, log).Load(context.Background(), "DGS30")
		require.NoError(t, err)
		require.Len(t, series, 2)
	})

	t.Run("passes malformed value cells through raw", func(t *testing.T) {
		// Placeholder cells like FRED's "." are the cleaner's problem,
		// not a load failure.
		dir := t.TempDir()
		writeSourceFile(t, dir, "DGS5.csv", "2024-01-02,4.01\n2024-01-03,.\n2024-01-04,3.97\n")

		series, err := NewFileSource(dir, log).Load(context.Background(), "DGS5")
		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.Equal(t, ".", series[1].Raw)
	})

	t.Run("tolerates unordered rows", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "DGS7.csv", "2024-01-05,4.02\n2024-01-02,4.10\n")

		series, err := NewFileSource(dir, log).Load(context.Background(), "DGS7")
		require.NoError(t, err)
		require.Len(t, series, 2)
		// Delivered as-is; the aligner sorts
		assert.True(t, series[0].Date.After(series[1].Date))
	})

	t.Run("fails on an unparseable date row", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "bad.csv", "2024-01-02,4.01\nnot-a-date,4.02\n")

		_, err := NewFileSource(dir, log).Load(context.Background(), "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unparseable date")
	})

	t.Run("fails on an empty series", func(t *testing.T) {
		dir := t.TempDir()
		writeSourceFile(t, dir, "empty.csv", "DATE,VALUE\n")

		_, err := NewFileSource(dir, log).Load(context.Background(), "empty")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no observations")
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir(), log).Load(context.Background(), "nope")
		require.Error(t, err)
	})
}
