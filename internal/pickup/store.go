package pickup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Store persists rendered pickup artifacts and returns where they can be fetched.
type Store interface {
	// Put stores data under key and returns its URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// fileStore implements Store on the local file system.
type fileStore struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
}

// NewFileStore creates a Store that writes artifacts below dir. Returned URLs are
// baseURL joined with the key, or the file path when baseURL is empty.
func NewFileStore(dir, baseURL string, logger zerolog.Logger) Store {
	return &fileStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With().Str("component", "artifact-file-store").Logger(),
	}
}

// Put writes data to dir/key.
func (s *fileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to create artifact directory")
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write artifact")
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("artifact written")

	if s.baseURL == "" {
		return path, nil
	}
	return s.baseURL + "/" + key, nil
}
