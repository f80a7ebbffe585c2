package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ponesicek/s4chat/internal/config"
	"github.com/Ponesicek/s4chat/internal/infrastructure/logger"
	"github.com/Ponesicek/s4chat/internal/utils/idgen"
	"github.com/Ponesicek/s4chat/internal/utils/platformerrors"
)

const blobIDLength = 24

// LocalBlobStore persists generated and uploaded images on the local
// filesystem, addressed by opaque blob references.
type LocalBlobStore struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
}

// NewLocalBlobStore creates a filesystem-backed blob store rooted at the
// configured storage path.
func NewLocalBlobStore(cfg *config.Config) (*LocalBlobStore, error) {
	log := logger.Component("blob-storage")

	basePath := strings.TrimSpace(cfg.BlobStoragePath)
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "s4chat-blobs")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob storage directory: %w", err)
	}

	store := &LocalBlobStore{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(strings.TrimSpace(cfg.BlobBaseURL), "/"),
		log:      log,
	}

	log.Info().
		Str("path", basePath).
		Str("base_url", store.baseURL).
		Msg("local blob storage initialized")

	return store, nil
}

// Store writes the blob and returns its reference.
func (l *LocalBlobStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	ref, err := idgen.GenerateSecureID("blob", blobIDLength)
	if err != nil {
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to generate blob reference")
	}

	fullPath := filepath.Join(l.basePath, ref+extensionFor(contentType))
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to write blob")
	}

	l.log.Debug().
		Str("ref", ref).
		Int("bytes", len(data)).
		Str("content_type", contentType).
		Msg("blob stored")

	return ref, nil
}

// ResolveURL returns a servable URL for the blob reference, or an error when
// the blob does not exist.
func (l *LocalBlobStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	path, err := l.find(ref)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, "blob not found", err, "")
	}
	if l.baseURL != "" {
		return fmt.Sprintf("%s/%s", l.baseURL, ref), nil
	}
	return fmt.Sprintf("file://%s", path), nil
}

// Open returns a reader over the blob along with its content type.
func (l *LocalBlobStore) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	path, err := l.find(ref)
	if err != nil {
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, "blob not found", err, "")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to open blob")
	}
	return file, contentTypeFor(path), nil
}

// find locates the stored file for a reference regardless of extension.
func (l *LocalBlobStore) find(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, "/\\.") {
		return "", fmt.Errorf("invalid blob reference: %q", ref)
	}
	matches, err := filepath.Glob(filepath.Join(l.basePath, ref+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		bare := filepath.Join(l.basePath, ref)
		if _, statErr := os.Stat(bare); statErr == nil {
			return bare, nil
		}
		return "", fmt.Errorf("blob not found: %s", ref)
	}
	return matches[0], nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
