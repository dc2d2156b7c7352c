package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ credentials.Store = (*FileStore)(nil)

const filePerm = 0o600

// fileContents is the on-disk layout. Exactly one of Values or Sealed is set.
type fileContents struct {
	Values map[string]string `json:"values,omitempty"`
	Sealed *sealedBox        `json:"sealed,omitempty"`
}

// FileStore persists credentials to a single JSON file. Every write replaces
// the file atomically. When a passphrase is configured the values are sealed.
type FileStore struct {
	path        string
	passphrase  string
	sealer      *sealer
	values      map[string]string
	lastModTime time.Time
	mu          sync.RWMutex
}

type Option func(*FileStore)

// WithPassphrase enables at-rest sealing.
func WithPassphrase(passphrase string) Option {
	return func(fs *FileStore) {
		fs.passphrase = passphrase
	}
}

// New opens the store at path, creating nothing until the first write.
// A sealed file opened with the wrong or no passphrase fails with ErrStoreSealed.
func New(path string, options ...Option) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "filestore.New")
	}
	fs := &FileStore{
		path:   absPath,
		values: make(map[string]string),
	}
	for _, opt := range options {
		opt(fs)
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the absolute file location.
func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get(_ context.Context, key string) (*string, error) {
	fs.reloadIfChanged()

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	v, ok := fs.values[key]
	if !ok {
		return nil, nil
	}
	return utils.Ptr(v), nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.reloadIfChanged()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous, existed := fs.values[key]
	fs.values[key] = value
	if err := fs.save(); err != nil {
		if existed {
			fs.values[key] = previous
		} else {
			delete(fs.values, key)
		}
		return err
	}
	return nil
}

func (fs *FileStore) Remove(ctx context.Context, key string) error {
	return fs.RemoveAll(ctx, []string{key})
}

func (fs *FileStore) RemoveAll(_ context.Context, keys []string) error {
	fs.reloadIfChanged()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	removed := make(map[string]string)
	for _, k := range keys {
		if v, ok := fs.values[k]; ok {
			removed[k] = v
			delete(fs.values, k)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := fs.save(); err != nil {
		for k, v := range removed {
			fs.values[k] = v
		}
		return err
	}
	return nil
}

func (fs *FileStore) load() error {
	stat, err := os.Stat(fs.path)
	if os.IsNotExist(err) {
		return fs.initSealer(nil)
	}
	if err != nil {
		return errors.Wrap(err, "filestore stat")
	}

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return errors.Wrap(err, "filestore read")
	}

	var contents fileContents
	if len(data) > 0 {
		if err := json.Unmarshal(data, &contents); err != nil {
			return errors.Wrap(err, "filestore parse")
		}
	}

	values := contents.Values
	if contents.Sealed != nil {
		if fs.passphrase == "" {
			return errors.Wrap(ErrStoreSealed, "filestore load")
		}
		if err := fs.initSealer(contents.Sealed.Salt); err != nil {
			return err
		}
		if values, err = fs.sealer.open(contents.Sealed); err != nil {
			return err
		}
	} else if err := fs.initSealer(nil); err != nil {
		return err
	}

	if values == nil {
		values = make(map[string]string)
	}
	fs.values = values
	fs.lastModTime = stat.ModTime()
	return nil
}

func (fs *FileStore) initSealer(salt []byte) error {
	if fs.passphrase == "" {
		return nil
	}
	if fs.sealer != nil && (salt == nil || bytes.Equal(fs.sealer.salt, salt)) {
		return nil
	}
	s, err := newSealer(fs.passphrase, salt)
	if err != nil {
		return err
	}
	fs.sealer = s
	return nil
}

// save must be called with the write lock held.
func (fs *FileStore) save() error {
	contents := fileContents{}
	if fs.sealer != nil {
		box, err := fs.sealer.seal(fs.values)
		if err != nil {
			return err
		}
		contents.Sealed = box
	} else {
		contents.Values = fs.values
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return errors.Wrap(err, "filestore encode")
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "filestore mkdir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "filestore create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "filestore write")
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "filestore chmod")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "filestore sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "filestore close")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return errors.Wrap(err, "filestore rename")
	}

	if stat, err := os.Stat(fs.path); err == nil {
		fs.lastModTime = stat.ModTime()
	}
	return nil
}

// reloadIfChanged picks up writes made by another process.
func (fs *FileStore) reloadIfChanged() {
	stat, err := os.Stat(fs.path)
	if err != nil {
		return
	}

	fs.mu.RLock()
	lastMod := fs.lastModTime
	fs.mu.RUnlock()

	if !stat.ModTime().After(lastMod) {
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.load(); err != nil {
		log.Err(err).Str("path", fs.path).Msg("Failed to reload credential file")
	}
}
