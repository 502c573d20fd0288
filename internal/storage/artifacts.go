// Package storage copies finished run artifacts to a blob store.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

// ArtifactKey returns the object key of a local file for a run.
func ArtifactKey(prefix, runID, localPath string) string {
	return path.Join(prefix, runID, filepath.Base(localPath))
}

// UploadArtifacts copies each local file to store under prefix/runID and
// returns the resulting URIs in input order.
func UploadArtifacts(ctx context.Context, store crawler.BlobStore, prefix, runID string, localPaths ...string) ([]string, error) {
	uris := make([]string, 0, len(localPaths))
	for _, p := range localPaths {
		uri, err := uploadFile(ctx, store, ArtifactKey(prefix, runID, p), p)
		if err != nil {
			return uris, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func uploadFile(ctx context.Context, store crawler.BlobStore, key, localPath string) (string, error) {
	// #nosec G304 -- paths come from the run's own output configuration.
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	uri, err := store.PutObject(ctx, key, "text/csv; charset=utf-8", f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	return uri, nil
}
