package contacts

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/goliatone/go-errors"
)

// LocalAvatarStore writes uploaded avatars to a directory on disk and
// serves them under a URL prefix. It satisfies the AvatarStore contract;
// resizing is out of scope here.
type LocalAvatarStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalAvatarStore creates a disk-backed avatar store rooted at dir
func NewLocalAvatarStore(dir, urlPrefix string) *LocalAvatarStore {
	if urlPrefix == "" {
		urlPrefix = "/avatars"
	}
	return &LocalAvatarStore{Dir: dir, URLPrefix: urlPrefix}
}

// Save stores the uploaded file under a name derived from the user id so a
// re-upload replaces the previous avatar.
func (s *LocalAvatarStore) Save(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to prepare avatar directory")
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}

	name := userID + ext
	target := filepath.Join(s.Dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to create avatar file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to write avatar file")
	}

	return s.URLPrefix + "/" + name, nil
}
