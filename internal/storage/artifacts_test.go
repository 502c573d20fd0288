package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/manager-records-crawler/internal/storage"
	"github.com/JakeFAU/manager-records-crawler/internal/storage/local"
)

func TestUploadArtifacts(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	managers := filepath.Join(src, "managers.csv")
	stats := filepath.Join(src, "manager_stats.csv")
	require.NoError(t, os.WriteFile(managers, []byte("season,manager,identifier,club\n"), 0o600))
	require.NoError(t, os.WriteFile(stats, []byte("id,name\n"), 0o600))

	dst := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dst})
	require.NoError(t, err)

	uris, err := storage.UploadArtifacts(context.Background(), store, "manager-records", "run-1", managers, stats)
	require.NoError(t, err)
	require.Len(t, uris, 2)

	got, err := os.ReadFile(filepath.Join(dst, "manager-records", "run-1", "manager_stats.csv"))
	require.NoError(t, err)
	require.Equal(t, "id,name\n", string(got))
}

func TestUploadArtifactsMissingFile(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	uris, err := storage.UploadArtifacts(context.Background(), store, "p", "run", filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	require.Empty(t, uris)
}

func TestArtifactKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "runs/abc/stats.csv", storage.ArtifactKey("runs", "abc", "/tmp/out/stats.csv"))
	require.Equal(t, "abc/stats.csv", storage.ArtifactKey("", "abc", "stats.csv"))
}
