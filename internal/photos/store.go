package photos

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps student photos. The default backend writes files under a
// local uploads directory, served by the API at /uploads. When a Cloudinary
// client is supplied, photos go there instead and the stored path is the
// delivery URL.
type Store struct {
	dir   string
	cloud *Cloudinary
	log   *zap.Logger
}

// NewStore creates the store and ensures the local upload directory exists.
// cloud may be nil.
func NewStore(dir string, cloud *Cloudinary, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photos: create upload dir: %w", err)
	}
	return &Store{dir: dir, cloud: cloud, log: log}, nil
}

// Dir returns the local upload directory.
func (s *Store) Dir() string { return s.dir }

// Save stores photo bytes and returns the path to record on the student:
// "/uploads/<name>" for local files, the secure URL for Cloudinary.
func (s *Store) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	if s.cloud != nil {
		result, err := s.cloud.UploadBytes(ctx, data, originalName)
		if err != nil {
			return "", err
		}
		return result.SecureURL, nil
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("photos: write file: %w", err)
	}
	return "/uploads/" + name, nil
}

// Remove deletes a stored photo by its recorded path. A missing local file
// is not an error; an unparseable remote URL is skipped with a log line.
func (s *Store) Remove(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if s.cloud == nil {
			s.log.Debug("remote photo left in place, cloudinary not configured", zap.String("path", path))
			return nil
		}
		publicID := publicIDFromURL(path)
		if publicID == "" {
			s.log.Debug("could not derive public id from photo url", zap.String("path", path))
			return nil
		}
		return s.cloud.Destroy(ctx, publicID)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// publicIDFromURL recovers the Cloudinary public id from a delivery URL:
// everything after the /upload/v<N>/ segment, minus the file extension.
func publicIDFromURL(url string) string {
	_, after, found := strings.Cut(url, "/upload/")
	if !found {
		return ""
	}
	if seg, rest, ok := strings.Cut(after, "/"); ok && len(seg) > 1 && seg[0] == 'v' {
		allDigits := true
		for _, r := range seg[1:] {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			after = rest
		}
	}
	if ext := filepath.Ext(after); ext != "" {
		after = strings.TrimSuffix(after, ext)
	}
	return after
}
